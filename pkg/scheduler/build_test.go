package scheduler

import (
	"context"
	"testing"

	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/config"
	"github.com/cass-sched/cass/pkg/failure"
)

func noEnv(string) string { return "" }

func TestBuild_StaticSource(t *testing.T) {
	cfg := config.Default()
	cfg.Carbon.Static = intensities
	cfg.Mode = "single"

	c, err := Build(context.Background(), cfg, Options{Clock: clock.NewFakeClock(epoch), Getenv: noEnv, DryRun: true})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	defer c.Close()

	if c.Cache != nil {
		t.Error("static source should not be cached")
	}
	if got := c.Dispatcher.ProviderName(); got != "direct" {
		t.Errorf("ProviderName() = %q, want direct", got)
	}

	res, err := c.Scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if res.Decision.SelectedRegion != "FI" {
		t.Errorf("SelectedRegion = %q, want FI", res.Decision.SelectedRegion)
	}
}

func TestBuild_ElectricityMapsSource(t *testing.T) {
	cfg := config.Default()
	cfg.CloudProvider = "gcp"
	env := map[string]string{"ELECTRICITYMAPS_API_KEY": "k"}

	c, err := Build(context.Background(), cfg, Options{Getenv: func(k string) string { return env[k] }})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	defer c.Close()

	if c.Cache == nil {
		t.Error("expected a carbon cache")
	}
	if got := c.Dispatcher.ProviderName(); got != "gcp" {
		t.Errorf("ProviderName() = %q, want gcp", got)
	}
}

func TestBuild_MissingAPIKey(t *testing.T) {
	_, err := Build(context.Background(), config.Default(), Options{Getenv: noEnv})
	if !failure.Is(err, failure.ConfigurationError) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestBuild_TokenFallback(t *testing.T) {
	cfg := config.Default()
	cfg.Carbon.Static = intensities
	cfg.Fallback.Auth = "token"
	cfg.Fallback.TokenEnv = "WORKER_TOKEN"

	if _, err := Build(context.Background(), cfg, Options{Getenv: noEnv}); !failure.Is(err, failure.ConfigurationError) {
		t.Fatalf("expected ConfigurationError for unset token, got %v", err)
	}

	c, err := Build(context.Background(), cfg, Options{Getenv: func(k string) string {
		if k == "WORKER_TOKEN" {
			return "secret"
		}
		return ""
	}})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	c.Close()
}
