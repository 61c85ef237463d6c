// Package direct posts jobs straight to per-region worker URLs. It is the
// fallback used when no cloud provider is configured.
package direct

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/cass-sched/cass/pkg/provider"
)

const (
	defaultUserAgent = "cass-scheduler"
	defaultTimeout   = 30 * time.Second
)

// Config holds configuration for the direct adapter.
type Config struct {
	// URLs maps a region code to its worker URL. Regions without an entry
	// use PlaceholderURL.
	URLs map[string]string
	// TokenSource, when set, supplies a bearer token for every request. A
	// token failure is logged and the request is sent unauthenticated.
	TokenSource oauth2.TokenSource
	UserAgent   string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Adapter implements provider.Adapter over plain HTTP.
type Adapter struct {
	urls      map[string]string
	tokens    oauth2.TokenSource
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

// New creates a direct adapter.
func New(cfg Config) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return NewWithClient(cfg, &http.Client{Timeout: timeout})
}

// NewWithClient creates a direct adapter with a custom HTTP client (for testing).
func NewWithClient(cfg Config, client *http.Client) *Adapter {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	urls := make(map[string]string, len(cfg.URLs))
	for k, v := range cfg.URLs {
		urls[k] = v
	}
	return &Adapter{
		urls:      urls,
		tokens:    cfg.TokenSource,
		userAgent: userAgent,
		client:    client,
		logger:    logger.With(slog.String("component", "direct-adapter")),
	}
}

// PlaceholderURL is the worker URL assumed for a region with no configured URL.
func PlaceholderURL(region string) string {
	return fmt.Sprintf("https://%s-worker.cloudfunctions.net/execute", strings.ToLower(region))
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "direct"
}

// Regions returns the regions with a configured URL, sorted.
func (a *Adapter) Regions() []string {
	out := make([]string, 0, len(a.urls))
	for r := range a.urls {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// URL returns the worker URL for region.
func (a *Adapter) URL(region string) string {
	if u, ok := a.urls[region]; ok && u != "" {
		return u
	}
	return PlaceholderURL(region)
}

// DeployJob posts the payload to the region's worker. Any region is
// accepted; unknown ones go to the placeholder URL.
func (a *Adapter) DeployJob(ctx context.Context, region string, payload provider.Payload) (*provider.DeployResult, error) {
	headers := http.Header{}
	headers.Set("User-Agent", a.userAgent)
	if a.tokens != nil {
		tok, err := a.tokens.Token()
		if err != nil {
			a.logger.WarnContext(ctx, "failed to obtain token, continuing without authentication",
				slog.String("region", region),
				slog.String("error", err.Error()),
			)
		} else {
			headers.Set("Authorization", tok.Type()+" "+tok.AccessToken)
		}
	}

	url := a.URL(region)
	resp, err := provider.PostJSON(ctx, a.client, url, payload, headers)
	if err != nil {
		return nil, fmt.Errorf("direct %s: %w", region, err)
	}

	return &provider.DeployResult{
		JobID:      payload.JobID(),
		Region:     region,
		Provider:   "direct",
		URL:        url,
		Message:    fmt.Sprintf("job delivered to worker for %s", region),
		StatusCode: resp.StatusCode,
		Response:   resp.Body,
	}, nil
}
