// Command server runs the analytics engine behind an HTTP API: dataset
// queries and aggregations over REST, refresh events over WebSocket, and
// Prometheus metrics. The dataset is refreshed on a schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-analytics-lab/internal/aggcache"
	"trade-analytics-lab/internal/api"
	"trade-analytics-lab/internal/config"
	"trade-analytics-lab/internal/engine"
	"trade-analytics-lab/internal/logger"
	"trade-analytics-lab/internal/notifications"
	"trade-analytics-lab/internal/observability"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	refresh := flag.Duration("refresh", 0, "Dataset refresh interval (overrides REFRESH_INTERVAL)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *refresh > 0 {
		cfg.RefreshInterval = *refresh
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	logger.Init(logger.Config{
		Level:          level,
		Format:         cfg.LogFormat,
		TracingEnabled: cfg.TraceEnabled,
		ServiceName:    "trade-analytics-server",
	})
	defer logger.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter, cleanup, err := engine.BuildAdapter(ctx, cfg)
	if err != nil {
		slog.Error("data source setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	obs := observability.NewMetrics("")
	eng := engine.New(engine.Options{
		Adapter:     adapter,
		Cache:       aggcache.New(cfg.CacheCapacity),
		Metrics:     obs,
		Notifier:    notifications.NewSender(cfg.WebhookURL, ""),
		LoadTimeout: cfg.LoadTimeout,
	})

	srv := api.NewServer(api.Options{
		Engine:  eng,
		Metrics: obs,
		Addr:    cfg.HTTPAddr,
	})

	// Load the first dataset before accepting traffic. A failure here is not
	// fatal: the API serves 503s and the refresh loop keeps retrying.
	if _, err := eng.Refresh(ctx); err != nil {
		slog.Warn("initial dataset load failed, serving without dataset", "error", err)
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating graceful shutdown", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			slog.Warn("received second signal, forcing immediate shutdown", "signal", sig.String())
			os.Exit(1)
		case <-time.After(30 * time.Second):
			slog.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	go srv.RunRefreshLoop(ctx, cfg.RefreshInterval)

	slog.Info("http server listening",
		"addr", cfg.HTTPAddr,
		"source", adapter.Name(),
		"refresh_interval", cfg.RefreshInterval.String())
	err = srv.Start()
	done <- err
	cancel()

	if err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}
