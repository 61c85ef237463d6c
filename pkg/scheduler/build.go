package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/cass-sched/cass/pkg/carbon"
	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/config"
	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/decisionlog"
	"github.com/cass-sched/cass/pkg/dispatch"
	"github.com/cass-sched/cass/pkg/failure"
	"github.com/cass-sched/cass/pkg/metrics"
	"github.com/cass-sched/cass/pkg/notify"
	"github.com/cass-sched/cass/pkg/provider"
	"github.com/cass-sched/cass/pkg/provider/direct"
	"github.com/cass-sched/cass/pkg/provider/registry"
)

const defaultTokenScope = "https://www.googleapis.com/auth/cloud-platform"

// Options tunes Build.
type Options struct {
	Logger *slog.Logger
	Clock  clock.Clock
	DryRun bool
	// Getenv resolves secrets named in the config. Defaults to os.Getenv.
	Getenv func(string) string
	// Source overrides the configured carbon source.
	Source carbon.Source
	// Log overrides the configured decision log.
	Log decisionlog.Log
}

// Components are the wired parts of a scheduler.
type Components struct {
	Scheduler  *Scheduler
	Engine     *decision.Engine
	Dispatcher *dispatch.Engine
	Log        decisionlog.Log
	Metrics    *metrics.Metrics
	Source     carbon.Source
	Cache      *carbon.Cache
}

// Close releases the decision log.
func (c *Components) Close() error {
	if c.Log == nil {
		return nil
	}
	return c.Log.Close()
}

// Build wires a scheduler from configuration. Any misconfiguration is
// reported here, before the first tick.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Components, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	c := &Components{}

	c.Source = opts.Source
	if c.Source == nil {
		src, cache, err := buildSource(cfg, clk, logger, getenv)
		if err != nil {
			return nil, err
		}
		c.Source, c.Cache = src, cache
	}

	mode, err := decision.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	catalog := cfg.Catalog()
	c.Engine, err = decision.NewEngine(c.Source, catalog, decision.Config{
		Mode:    mode,
		Weights: cfg.Weights(),
		Filter:  cfg.CandidateFilter,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	c.Log = opts.Log
	if c.Log == nil {
		c.Log, err = buildLog(ctx, cfg, clk, getenv)
		if err != nil {
			return nil, err
		}
	}
	c.Metrics = metrics.New(c.Log, clk)

	adapter, err := buildAdapter(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	fallback, err := buildFallback(ctx, cfg, logger, getenv)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Dispatcher = dispatch.New(adapter, dispatch.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.RetryDelay(),
		Timeout:     cfg.RetryTimeout(),
		Clock:       clk,
		Logger:      logger,
		Observer:    c.Metrics,
		Fallback:    fallback,
	})

	c.Scheduler = New(c.Engine, c.Dispatcher, c.Log, Config{
		Catalog:  catalog,
		DryRun:   opts.DryRun,
		Clock:    clk,
		Recorder: c.Metrics,
		Notifier: buildNotifier(cfg, logger),
	}, logger)
	return c, nil
}

func buildSource(cfg *config.Config, clk clock.Clock, logger *slog.Logger, getenv func(string) string) (carbon.Source, *carbon.Cache, error) {
	if len(cfg.Carbon.Static) > 0 {
		return &carbon.Static{Intensities: cfg.Carbon.Static, Clock: clk}, nil, nil
	}
	key := getenv(cfg.Carbon.APIKeyEnv)
	if key == "" {
		return nil, nil, failure.Newf(failure.ConfigurationError, "scheduler",
			"no carbon data source: set %s or configure carbon.static", cfg.Carbon.APIKeyEnv)
	}
	cache := carbon.NewCache(cfg.CacheTTL(), clk)
	client, err := carbon.New(carbon.Config{
		APIKey:  key,
		BaseURL: cfg.Carbon.BaseURL,
		Timeout: time.Duration(cfg.Carbon.TimeoutSeconds * float64(time.Second)),
		Clock:   clk,
		Logger:  logger,
	}, cache)
	if err != nil {
		return nil, nil, err
	}
	return client, cache, nil
}

func buildNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	if cfg.Notify.WebhookURL == "" {
		return notify.NewLogNotifier(logger)
	}
	return notify.NewWebhook(notify.WebhookConfig{
		URL:     cfg.Notify.WebhookURL,
		Events:  cfg.Notify.Events,
		Headers: cfg.Notify.Headers,
		Timeout: cfg.NotifyTimeout(),
	}, logger)
}

func buildLog(ctx context.Context, cfg *config.Config, clk clock.Clock, getenv func(string) string) (decisionlog.Log, error) {
	dl := cfg.DecisionLog
	if strings.EqualFold(dl.Backend, "redis") {
		var password string
		if dl.RedisPasswordEnv != "" {
			password = getenv(dl.RedisPasswordEnv)
		}
		log, err := decisionlog.NewRedisLog(ctx, decisionlog.RedisConfig{
			Addr:       dl.RedisAddr,
			Password:   password,
			DB:         dl.RedisDB,
			Key:        dl.Key,
			MaxEntries: dl.MaxEntries,
			Clock:      clk,
		})
		if err != nil {
			return nil, fmt.Errorf("decision log: %w", err)
		}
		return log, nil
	}
	return decisionlog.NewInMemLog(dl.MaxEntries, clk), nil
}

func buildAdapter(cfg *config.Config) (provider.Adapter, error) {
	pc := cfg.Providers
	timeout := cfg.RetryTimeout()
	pc.GCP.Timeout = timeout
	pc.AWS.Timeout = timeout
	pc.Azure.Timeout = timeout
	return registry.New(cfg.CloudProvider, pc)
}

func buildFallback(ctx context.Context, cfg *config.Config, logger *slog.Logger, getenv func(string) string) (direct.Config, error) {
	fb := direct.Config{
		URLs:    cfg.WorkerURLs(),
		Timeout: cfg.RetryTimeout(),
		Logger:  logger,
	}
	switch strings.ToLower(cfg.Fallback.Auth) {
	case "adc":
		scope := cfg.Fallback.Audience
		if scope == "" {
			scope = defaultTokenScope
		}
		ts, err := google.DefaultTokenSource(ctx, scope)
		if err != nil {
			// Requests go out unauthenticated rather than failing startup.
			logger.Warn("no application default credentials, fallback dispatch is unauthenticated",
				slog.String("error", err.Error()),
			)
			return fb, nil
		}
		fb.TokenSource = ts
	case "token":
		tok := getenv(cfg.Fallback.TokenEnv)
		if tok == "" {
			return fb, failure.Newf(failure.ConfigurationError, "scheduler", "%s is not set", cfg.Fallback.TokenEnv)
		}
		fb.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"})
	}
	return fb, nil
}
