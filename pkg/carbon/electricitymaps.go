package carbon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/failure"
)

const (
	defaultBaseURL = "https://api.electricitymap.org/v3"
	defaultTimeout = 10 * time.Second
)

// Config holds configuration for the ElectricityMaps client.
type Config struct {
	APIKey  string        // Sent as the auth-token header
	BaseURL string        // Optional, for testing
	Timeout time.Duration // Per-request timeout
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Client fetches live readings from the ElectricityMaps API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *Cache
	clock   clock.Clock
	logger  *slog.Logger
}

type latestResponse struct {
	Zone            string   `json:"zone"`
	CarbonIntensity *float64 `json:"carbonIntensity"`
	Datetime        string   `json:"datetime"`
	UpdatedAt       string   `json:"updatedAt"`
}

// New creates a client. cache may be nil to disable caching.
func New(cfg Config, cache *Cache) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, failure.Newf(failure.ConfigurationError, "carbon", "api key is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return NewWithClient(cfg, cache, &http.Client{Timeout: timeout}), nil
}

// NewWithClient creates a client with a custom HTTP client (for testing).
func NewWithClient(cfg Config, cache *Cache, client *http.Client) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		cache:   cache,
		clock:   clk,
		logger:  logger.With(slog.String("component", "carbon")),
	}
}

// Cache returns the cache the client reads through, or nil.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Fetch returns the latest reading for a single zone, consulting the cache
// first.
func (c *Client) Fetch(ctx context.Context, zone string) (Reading, error) {
	if c.cache != nil {
		if r, ok := c.cache.Get(zone); ok {
			return r, nil
		}
	}

	u := fmt.Sprintf("%s/carbon-intensity/latest?zone=%s", c.baseURL, url.QueryEscape(zone))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("auth-token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to fetch %s: %w", zone, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Reading{}, fmt.Errorf("electricitymaps %s: status %d: %s", zone, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var lr latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return Reading{}, fmt.Errorf("failed to decode response for %s: %w", zone, err)
	}
	if lr.CarbonIntensity == nil {
		return Reading{}, fmt.Errorf("electricitymaps %s: response has no carbonIntensity", zone)
	}

	now := c.clock.Now()
	r := Reading{
		Zone:            zone,
		CarbonIntensity: *lr.CarbonIntensity,
		Timestamp:       parseTime(lr.Datetime, now),
		FetchedAt:       now,
	}
	if c.cache != nil {
		c.cache.Put(r)
	}
	return r, nil
}

// FetchAll fetches every zone sequentially. Failed zones are logged and
// omitted.
func (c *Client) FetchAll(ctx context.Context, zones []string) (map[string]Reading, error) {
	out := make(map[string]Reading, len(zones))
	var errs []error
	for _, z := range zones {
		r, err := c.Fetch(ctx, z)
		if err != nil {
			c.logger.WarnContext(ctx, "carbon fetch failed",
				slog.String("zone", z),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			continue
		}
		out[z] = r
	}
	if len(out) == 0 && len(zones) > 0 {
		return out, failure.New(failure.DataUnavailable, "carbon", errors.Join(errs...))
	}
	return out, nil
}

func parseTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback
	}
	return t
}
