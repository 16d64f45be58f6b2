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

	"github.com/movieverse/movieverse-gateway/api"
	"github.com/movieverse/movieverse-gateway/api/handler"
	"github.com/movieverse/movieverse-gateway/config"
	"github.com/movieverse/movieverse-gateway/session"
	"github.com/movieverse/movieverse-gateway/upstream"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// Optional .env for local development; real deployments set the
	// environment directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := upstream.New(cfg.UpstreamBaseURL, cfg.RequestTimeout)

	health := upstream.NewHealthChecker(client, cfg.HealthCheckInterval)
	health.Start(ctx)
	defer health.Stop()

	registry := session.NewRegistry(cfg.UsernameCacheTTL, cfg.MovieCacheTTL)
	cleaner := session.NewCleaner(registry, cfg.SessionIdleTTL)
	cleaner.Start(ctx)
	defer cleaner.Stop()

	wsHub := handler.NewWSHub()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewRouter(cfg, client, registry, health, wsHub),
	}

	go func() {
		slog.Info("gateway listening", "addr", cfg.ListenAddr, "upstream", cfg.UpstreamBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	wsHub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	registry.CloseAll()
	slog.Info("stopped")
}
