package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/cass-sched/cass/pkg/api"
	"github.com/cass-sched/cass/pkg/auth"
	"github.com/cass-sched/cass/pkg/config"
	"github.com/cass-sched/cass/pkg/decisionlog"
	"github.com/cass-sched/cass/pkg/scheduler"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	addr := flag.String("addr", "", "Listen address (overrides server.address)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	authToken := flag.String("auth-token", "", "API bearer token (or set the env var named by server.auth_token_env, default CASS_AUTH_TOKEN)")
	dryRun := flag.Bool("dry-run", false, "Decide without dispatching")
	noImmediate := flag.Bool("no-immediate", false, "Wait one interval before the first tick")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}

	token := *authToken
	if token == "" {
		tokenEnv := cfg.Server.AuthTokenEnv
		if tokenEnv == "" {
			tokenEnv = "CASS_AUTH_TOKEN"
		}
		token = os.Getenv(tokenEnv)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := scheduler.Build(ctx, cfg, scheduler.Options{Logger: logger, DryRun: *dryRun})
	if err != nil {
		logger.Error("failed to initialize scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		components.Metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := newMux(components, registry, logger)

	var handler http.Handler = mux
	if token != "" {
		logger.Info("authentication enabled")
		handler = auth.Protect(token, mux, auth.WithLogger(logger))
	}

	logger.Info("starting cass scheduler",
		slog.String("addr", cfg.Server.Address),
		slog.String("provider", components.Dispatcher.ProviderName()),
		slog.String("mode", cfg.Mode),
		slog.Int("regions", len(cfg.RegionCatalog)),
		slog.Duration("tick_interval", cfg.Server.TickInterval),
		slog.Bool("dry_run", *dryRun),
	)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}

	components.Scheduler.Start(ctx, cfg.Server.TickInterval, !*noImmediate)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrChan:
		logger.Error("server error triggered shutdown", slog.String("error", err.Error()))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	components.Scheduler.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
	}
	if err := components.Close(); err != nil {
		logger.Error("error closing decision log", slog.String("error", err.Error()))
	}

	logger.Info("scheduler stopped")
}

func newMux(c *scheduler.Components, gatherer prometheus.Gatherer, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(api.Config{
		Scheduler:  c.Scheduler,
		Candidates: c.Engine,
		Log:        c.Log,
		Logger:     logger,
	}).Register(mux)
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/readyz", readyzHandler(c.Log, logger))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func readyzHandler(log decisionlog.Log, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := log.Recent(r.Context(), 1); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("decision log not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
