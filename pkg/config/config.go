package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/failure"
	"github.com/cass-sched/cass/pkg/notify"
	"github.com/cass-sched/cass/pkg/provider/registry"
	"github.com/cass-sched/cass/pkg/scoring"
)

// Config is the root configuration for the scheduler.
type Config struct {
	RegionCatalog    []RegionCfg      `yaml:"region_catalog,omitempty"`
	ObjectiveWeights *scoring.Weights `yaml:"objective_weights,omitempty"`
	Mode             string           `yaml:"mode,omitempty"`             // single, multi. Default: multi
	CandidateFilter  string           `yaml:"candidate_filter,omitempty"` // CEL over candidate.*
	Retry            RetryCfg         `yaml:"retry,omitempty"`
	CloudProvider    string           `yaml:"cloud_provider,omitempty"` // gcp, aws, azure or none
	Providers        registry.Config  `yaml:"providers,omitempty"`
	Fallback         FallbackCfg      `yaml:"fallback,omitempty"`
	Carbon           CarbonCfg        `yaml:"carbon,omitempty"`
	DecisionLog      DecisionLogCfg   `yaml:"decision_log,omitempty"`
	Notify           NotifyCfg        `yaml:"notify,omitempty"`
	Server           ServerCfg        `yaml:"server,omitempty"`
}

// RegionCfg is one region catalog entry.
type RegionCfg struct {
	Code        string            `yaml:"code"`
	LatencyMs   *float64          `yaml:"latency_ms,omitempty"`    // Default: 100
	CostPerUnit *float64          `yaml:"cost_per_unit,omitempty"` // Default: 0.05
	WorkerURL   string            `yaml:"worker_url,omitempty"`    // Used by the direct fallback
	Targets     map[string]string `yaml:"targets,omitempty"`       // provider -> provider region
}

// RetryCfg configures dispatch retries.
type RetryCfg struct {
	MaxAttempts    int      `yaml:"max_attempts,omitempty"`    // Default: 3
	DelaySeconds   *float64 `yaml:"delay_seconds,omitempty"`   // Default: 2
	TimeoutSeconds float64  `yaml:"timeout_seconds,omitempty"` // Default: 30
}

// FallbackCfg configures authentication for the direct HTTP fallback.
type FallbackCfg struct {
	Auth     string `yaml:"auth,omitempty"`      // none, adc, token. Default: none
	TokenEnv string `yaml:"token_env,omitempty"` // Env var holding a static bearer token
	Audience string `yaml:"audience,omitempty"`  // OAuth2 scope for adc
}

// CarbonCfg configures the carbon-intensity source.
type CarbonCfg struct {
	BaseURL         string             `yaml:"base_url,omitempty"`
	APIKeyEnv       string             `yaml:"api_key_env,omitempty"`       // Default: ELECTRICITYMAPS_API_KEY
	CacheTTLSeconds int                `yaml:"cache_ttl_seconds,omitempty"` // Default: 300
	TimeoutSeconds  float64            `yaml:"timeout_seconds,omitempty"`   // Default: 10
	Static          map[string]float64 `yaml:"static,omitempty"`            // Fixed intensities instead of the API
}

// DecisionLogCfg configures where decisions are recorded.
type DecisionLogCfg struct {
	Backend          string `yaml:"backend,omitempty"` // memory, redis. Default: memory
	RedisAddr        string `yaml:"redis_addr,omitempty"`
	RedisPasswordEnv string `yaml:"redis_password_env,omitempty"`
	RedisDB          int    `yaml:"redis_db,omitempty"`
	Key              string `yaml:"key,omitempty"`
	MaxEntries       int    `yaml:"max_entries,omitempty"` // Default: 1000
}

// NotifyCfg configures event notifications. Without a webhook URL events
// are only logged.
type NotifyCfg struct {
	WebhookURL     string            `yaml:"webhook_url,omitempty"`
	Events         []string          `yaml:"events,omitempty"` // region_changed, dispatch_exhausted, tick_failed
	Headers        map[string]string `yaml:"headers,omitempty"`
	TimeoutSeconds float64           `yaml:"timeout_seconds,omitempty"` // Default: 10
}

// ServerCfg configures the scheduler daemon.
type ServerCfg struct {
	Address      string        `yaml:"address,omitempty"`       // Default: ":8080"
	TickInterval time.Duration `yaml:"tick_interval,omitempty"` // Default: 15m
	AuthTokenEnv string        `yaml:"auth_token_env,omitempty"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses, validates and defaults configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func configErr(format string, args ...any) error {
	return failure.Newf(failure.ConfigurationError, "config", format, args...)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// An absent key means the built-in catalog; an explicit empty list is an error.
	if c.RegionCatalog != nil && len(c.RegionCatalog) == 0 {
		return configErr("region_catalog must list at least one region")
	}
	seen := make(map[string]bool)
	for i, r := range c.RegionCatalog {
		if strings.TrimSpace(r.Code) == "" {
			return configErr("region_catalog[%d]: code is required", i)
		}
		if seen[r.Code] {
			return configErr("region_catalog: duplicate region %q", r.Code)
		}
		seen[r.Code] = true
		if r.LatencyMs != nil && *r.LatencyMs < 0 {
			return configErr("region %q: latency_ms must be >= 0", r.Code)
		}
		if r.CostPerUnit != nil && *r.CostPerUnit < 0 {
			return configErr("region %q: cost_per_unit must be >= 0", r.Code)
		}
	}

	if c.ObjectiveWeights != nil {
		if err := c.ObjectiveWeights.Validate(); err != nil {
			return err
		}
	}

	if _, err := decision.ParseMode(c.Mode); err != nil {
		return err
	}
	if _, err := decision.CompileFilter(c.CandidateFilter); err != nil {
		return configErr("candidate_filter: %v", err)
	}

	if c.Retry.MaxAttempts < 0 {
		return configErr("retry.max_attempts must be >= 0")
	}
	if c.Retry.DelaySeconds != nil && *c.Retry.DelaySeconds < 0 {
		return configErr("retry.delay_seconds must be >= 0")
	}
	if c.Retry.TimeoutSeconds < 0 {
		return configErr("retry.timeout_seconds must be >= 0")
	}

	if _, err := registry.Canonical(c.CloudProvider); err != nil {
		return err
	}

	switch strings.ToLower(c.Fallback.Auth) {
	case "", "none", "adc":
	case "token":
		if c.Fallback.TokenEnv == "" {
			return configErr("fallback.token_env is required when auth is token")
		}
	default:
		return configErr("fallback.auth must be none, adc or token, got %q", c.Fallback.Auth)
	}

	if c.Carbon.CacheTTLSeconds < 0 {
		return configErr("carbon.cache_ttl_seconds must be >= 0")
	}

	switch strings.ToLower(c.DecisionLog.Backend) {
	case "", "memory":
	case "redis":
		if c.DecisionLog.RedisAddr == "" {
			return configErr("decision_log.redis_addr is required for the redis backend")
		}
	default:
		return configErr("decision_log.backend must be memory or redis, got %q", c.DecisionLog.Backend)
	}

	if c.Notify.WebhookURL != "" {
		u, err := url.Parse(c.Notify.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return configErr("notify.webhook_url must be an http(s) URL, got %q", c.Notify.WebhookURL)
		}
	}
	for _, e := range c.Notify.Events {
		switch e {
		case notify.EventRegionChanged, notify.EventDispatchExhausted, notify.EventTickFailed:
		default:
			return configErr("notify.events: unknown event %q", e)
		}
	}

	if c.Server.TickInterval < 0 {
		return configErr("server.tick_interval must be >= 0")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.RegionCatalog == nil {
		for _, r := range decision.DefaultCatalog() {
			latency, cost := r.LatencyMs, r.CostPerUnit
			c.RegionCatalog = append(c.RegionCatalog, RegionCfg{
				Code:        r.Code,
				LatencyMs:   &latency,
				CostPerUnit: &cost,
				Targets:     r.Targets,
			})
		}
	}
	for i := range c.RegionCatalog {
		r := &c.RegionCatalog[i]
		if r.LatencyMs == nil {
			v := float64(decision.DefaultLatencyMs)
			r.LatencyMs = &v
		}
		if r.CostPerUnit == nil {
			v := decision.DefaultCostPerUnit
			r.CostPerUnit = &v
		}
	}

	if c.ObjectiveWeights == nil {
		w := scoring.DefaultWeights()
		c.ObjectiveWeights = &w
	}
	if c.Mode == "" {
		c.Mode = string(decision.ModeMulti)
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.DelaySeconds == nil {
		d := 2.0
		c.Retry.DelaySeconds = &d
	}
	if c.Retry.TimeoutSeconds == 0 {
		c.Retry.TimeoutSeconds = 30
	}

	if c.Carbon.APIKeyEnv == "" {
		c.Carbon.APIKeyEnv = "ELECTRICITYMAPS_API_KEY"
	}
	if c.Carbon.CacheTTLSeconds == 0 {
		c.Carbon.CacheTTLSeconds = 300
	}
	if c.Carbon.TimeoutSeconds == 0 {
		c.Carbon.TimeoutSeconds = 10
	}

	if c.DecisionLog.Backend == "" {
		c.DecisionLog.Backend = "memory"
	}
	if c.DecisionLog.MaxEntries == 0 {
		c.DecisionLog.MaxEntries = 1000
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.TickInterval == 0 {
		c.Server.TickInterval = 15 * time.Minute
	}
}

// Catalog returns the region catalog in decision form.
func (c *Config) Catalog() decision.Catalog {
	out := make(decision.Catalog, 0, len(c.RegionCatalog))
	for _, r := range c.RegionCatalog {
		region := decision.Region{
			Code:        r.Code,
			LatencyMs:   decision.DefaultLatencyMs,
			CostPerUnit: decision.DefaultCostPerUnit,
			WorkerURL:   r.WorkerURL,
			Targets:     r.Targets,
		}
		if r.LatencyMs != nil {
			region.LatencyMs = *r.LatencyMs
		}
		if r.CostPerUnit != nil {
			region.CostPerUnit = *r.CostPerUnit
		}
		out = append(out, region)
	}
	return out
}

// WorkerURLs returns the configured direct-dispatch URLs keyed by region.
func (c *Config) WorkerURLs() map[string]string {
	urls := make(map[string]string)
	for _, r := range c.RegionCatalog {
		if r.WorkerURL != "" {
			urls[r.Code] = r.WorkerURL
		}
	}
	return urls
}

// Weights returns the objective weights.
func (c *Config) Weights() scoring.Weights {
	if c.ObjectiveWeights == nil {
		return scoring.DefaultWeights()
	}
	return *c.ObjectiveWeights
}

// RetryDelay returns the fixed inter-attempt delay.
func (c *Config) RetryDelay() time.Duration {
	if c.Retry.DelaySeconds == nil {
		return 2 * time.Second
	}
	return seconds(*c.Retry.DelaySeconds)
}

// RetryTimeout returns the per-attempt timeout.
func (c *Config) RetryTimeout() time.Duration {
	return seconds(c.Retry.TimeoutSeconds)
}

// NotifyTimeout returns the webhook request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	if c.Notify.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return seconds(c.Notify.TimeoutSeconds)
}

// CacheTTL returns the carbon cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Carbon.CacheTTLSeconds) * time.Second
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
