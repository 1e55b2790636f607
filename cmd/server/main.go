package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Fillereine/MathE/internal/config"
	"github.com/Fillereine/MathE/internal/core"
	"github.com/Fillereine/MathE/internal/ingest"
	"github.com/Fillereine/MathE/internal/logging"
	"github.com/Fillereine/MathE/internal/metrics"
	"github.com/Fillereine/MathE/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded", "config", cfg.String())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := core.Options{
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		Timeout:       cfg.Upload.Timeout,
		Metrics:       metrics.New(reg),
		PreviewRows:   cfg.Upload.PreviewRows,
	}
	if cfg.Cache.Enabled {
		opts.Cache = ingest.NewMemoryCache(cfg.Cache.MaxEntries)
	}
	service := core.NewService(opts)

	server := web.NewServer(service, cfg, reg)

	// Cancelled on shutdown to stop background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancel()

		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stop()

		if st := service.LimiterStatus(); st.Active > 0 {
			slog.Info("waiting for jobs to complete", "active", st.Active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown did not complete in time", "error", err)
		} else {
			slog.Info("all jobs completed")
		}
	}()

	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
