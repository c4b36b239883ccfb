package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/crosstalk-ai/crosstalk/internal/api"
	"github.com/crosstalk-ai/crosstalk/internal/backend"
	"github.com/crosstalk-ai/crosstalk/internal/bus"
	"github.com/crosstalk-ai/crosstalk/internal/clock"
	"github.com/crosstalk-ai/crosstalk/internal/config"
	"github.com/crosstalk-ai/crosstalk/internal/coordinator"
	"github.com/crosstalk-ai/crosstalk/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("crosstalkd starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store: Postgres when configured, in-memory otherwise (dev mode;
	// captured context does not survive a restart).
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("database connected")
	} else {
		st = store.NewMemory()
		slog.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Backend extraction/retrieval service client.
	be := backend.NewClient(cfg.BackendURL)
	slog.Info("backend client ready", "url", cfg.BackendURL)

	// NATS: the inter-context message channel to page adapters.
	busClient, err := bus.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Coordinator runs the capture-and-injection pipeline.
	coord := coordinator.New(st, be, busClient, slog.Default())

	if err := busClient.Serve(coord.HandleRequest); err != nil {
		slog.Error("failed to serve page requests", "error", err)
		os.Exit(1)
	}

	// Periodic backend liveness probe, log-only.
	monitor := backend.NewMonitor(be, cfg.HealthCheckInterval, clock.System{}, slog.Default())
	stopMonitor := monitor.Start()
	defer stopMonitor()

	// Admin HTTP API.
	srv := api.NewServer(cfg.Port, coord)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("crosstalkd ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("crosstalkd stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
