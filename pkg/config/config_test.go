package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cass-sched/cass/pkg/failure"
)

func TestLoad(t *testing.T) {
	yaml := `
region_catalog:
  - code: FI
    latency_ms: 180
    cost_per_unit: 0.057
    targets:
      gcp: europe-west1
  - code: DE
    worker_url: https://de.example.com/run

objective_weights:
  carbon: 2
  latency: 1
  cost: 1

mode: single
cloud_provider: Google

providers:
  gcp:
    project_id: my-project
    function_name: worker

retry:
  max_attempts: 5
  delay_seconds: 0.5

server:
  tick_interval: 5m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	catalog := cfg.Catalog()
	if len(catalog) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(catalog))
	}
	if catalog[0].Code != "FI" || catalog[0].LatencyMs != 180 || catalog[0].Target("gcp") != "europe-west1" {
		t.Errorf("unexpected FI entry: %+v", catalog[0])
	}
	if catalog[1].LatencyMs != 100 || catalog[1].CostPerUnit != 0.05 {
		t.Errorf("DE defaults not applied: %+v", catalog[1])
	}
	if urls := cfg.WorkerURLs(); urls["DE"] != "https://de.example.com/run" || len(urls) != 1 {
		t.Errorf("WorkerURLs() = %v", urls)
	}

	if w := cfg.Weights(); w.Carbon != 2 || w.Latency != 1 {
		t.Errorf("Weights() = %+v", w)
	}
	if cfg.Mode != "single" {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if cfg.Providers.GCP.ProjectID != "my-project" || cfg.Providers.GCP.FunctionName != "worker" {
		t.Errorf("gcp provider = %+v", cfg.Providers.GCP)
	}

	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cfg.Retry.MaxAttempts)
	}
	if cfg.RetryDelay() != 500*time.Millisecond {
		t.Errorf("RetryDelay() = %v", cfg.RetryDelay())
	}
	if cfg.RetryTimeout() != 30*time.Second {
		t.Errorf("RetryTimeout() = %v, want default 30s", cfg.RetryTimeout())
	}
	if cfg.Server.TickInterval != 5*time.Minute {
		t.Errorf("TickInterval = %v", cfg.Server.TickInterval)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("Address = %q", cfg.Server.Address)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Catalog()) != 6 {
		t.Errorf("expected 6 default regions, got %d", len(cfg.Catalog()))
	}
	if w := cfg.Weights(); w.Carbon != 0.5 || w.Latency != 0.3 || w.Cost != 0.2 {
		t.Errorf("default weights = %+v", w)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.RetryDelay() != 2*time.Second || cfg.RetryTimeout() != 30*time.Second {
		t.Errorf("default retry = %+v", cfg.Retry)
	}
	if cfg.CacheTTL() != 5*time.Minute {
		t.Errorf("CacheTTL() = %v", cfg.CacheTTL())
	}
	if cfg.Server.TickInterval != 15*time.Minute {
		t.Errorf("TickInterval = %v", cfg.Server.TickInterval)
	}
	if cfg.DecisionLog.Backend != "memory" {
		t.Errorf("Backend = %q", cfg.DecisionLog.Backend)
	}
	if cfg.Carbon.APIKeyEnv != "ELECTRICITYMAPS_API_KEY" {
		t.Errorf("APIKeyEnv = %q", cfg.Carbon.APIKeyEnv)
	}
}

func TestParse_Notify(t *testing.T) {
	cfg, err := Parse([]byte("notify:\n  webhook_url: https://hooks.example.com/cass\n  events: [region_changed]\n  timeout_seconds: 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Notify.WebhookURL != "https://hooks.example.com/cass" || len(cfg.Notify.Events) != 1 {
		t.Errorf("Notify = %+v", cfg.Notify)
	}
	if cfg.NotifyTimeout() != 2*time.Second {
		t.Errorf("NotifyTimeout() = %v", cfg.NotifyTimeout())
	}
	if Default().NotifyTimeout() != 10*time.Second {
		t.Errorf("default NotifyTimeout() = %v", Default().NotifyTimeout())
	}
}

func TestParse_AbsentCatalogDefaults(t *testing.T) {
	cfg, err := Parse([]byte("mode: single\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(cfg.Catalog()); got != 6 {
		t.Errorf("expected 6 default regions, got %d", got)
	}
}

func TestParse_ZeroDelayKept(t *testing.T) {
	cfg, err := Parse([]byte("retry:\n  delay_seconds: 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RetryDelay() != 0 {
		t.Errorf("RetryDelay() = %v, want 0", cfg.RetryDelay())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "zero weights",
			yaml:    "objective_weights: {carbon: 0, latency: 0, cost: 0}",
			wantErr: "sum to zero",
		},
		{
			name:    "negative weight",
			yaml:    "objective_weights: {carbon: 1, latency: -1, cost: 0}",
			wantErr: "negative",
		},
		{
			name:    "unknown provider",
			yaml:    "cloud_provider: ibm",
			wantErr: "unknown provider",
		},
		{
			name:    "unknown mode",
			yaml:    "mode: random",
			wantErr: "unknown mode",
		},
		{
			name:    "duplicate region",
			yaml:    "region_catalog: [{code: FI}, {code: FI}]",
			wantErr: "duplicate region",
		},
		{
			name:    "empty region catalog",
			yaml:    "region_catalog: []",
			wantErr: "at least one region",
		},
		{
			name:    "missing code",
			yaml:    "region_catalog: [{latency_ms: 10}]",
			wantErr: "code is required",
		},
		{
			name:    "bad filter",
			yaml:    `candidate_filter: "candidate.latency_ms <"`,
			wantErr: "candidate_filter",
		},
		{
			name:    "redis without address",
			yaml:    "decision_log: {backend: redis}",
			wantErr: "redis_addr",
		},
		{
			name:    "unknown backend",
			yaml:    "decision_log: {backend: firestore}",
			wantErr: "memory or redis",
		},
		{
			name:    "token auth without env",
			yaml:    "fallback: {auth: token}",
			wantErr: "token_env",
		},
		{
			name:    "bad webhook url",
			yaml:    "notify: {webhook_url: ftp://example.com}",
			wantErr: "webhook_url",
		},
		{
			name:    "unknown notify event",
			yaml:    "notify: {webhook_url: https://example.com/hook, events: [node_down]}",
			wantErr: "unknown event",
		},
		{
			name:    "negative retries",
			yaml:    "retry: {max_attempts: -1}",
			wantErr: "max_attempts",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
			if !failure.Is(err, failure.ConfigurationError) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
