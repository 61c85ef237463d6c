package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/cass-sched/cass/pkg/config"
	"github.com/cass-sched/cass/pkg/scheduler"
)

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// buildLocal wires the scheduler in-process. Component logs go to stderr
// so they never mix with JSON output.
func buildLocal(ctx context.Context, cfg *config.Config, dryRun bool) (*scheduler.Components, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return scheduler.Build(ctx, cfg, scheduler.Options{Logger: logger, DryRun: dryRun})
}

func remote() bool {
	return serverAddr != ""
}
