package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Nonith-Rao/Live-Tracking/internal/config"
	"github.com/Nonith-Rao/Live-Tracking/internal/hub"
	"github.com/Nonith-Rao/Live-Tracking/internal/logging"
	"github.com/Nonith-Rao/Live-Tracking/internal/persist"
	"github.com/Nonith-Rao/Live-Tracking/internal/server"
	"github.com/Nonith-Rao/Live-Tracking/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRepository(cfg *config.Config) persist.Repository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case cfg.DatabaseURL != "":
		repo, err := persist.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		return repo
	case cfg.RedisURL != "":
		repo, err := persist.NewRedisRepository(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		return repo
	default:
		return nil
	}
}

func runGracefulShutdown(srv *server.Server, h *hub.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		// Close every WebSocket with a going-away frame before the
		// listener stops accepting.
		h.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	h := hub.New(hub.Options{
		MaxSessions:         cfg.MaxSessions,
		RegistrationTimeout: cfg.RegistrationTimeout,
		LocationTTL:         cfg.LocationTTL,
		JanitorInterval:     cfg.JanitorInterval,
		RateLimitWindow:     cfg.RateLimitWindow,
		RateLimitMax:        cfg.RateLimitMax,
	}, clock)

	repo := setupRepository(cfg)
	if repo != nil {
		defer repo.Close()
	}

	srv := server.NewServer(cfg, h, repo)

	done := runGracefulShutdown(srv, h)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
