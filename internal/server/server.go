package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/singleflight"

	"github.com/Nonith-Rao/Live-Tracking/internal/config"
	"github.com/Nonith-Rao/Live-Tracking/internal/hub"
	"github.com/Nonith-Rao/Live-Tracking/internal/persist"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	hub       *hub.Hub
	repo      persist.Repository
	limits    *ConnectionLimits
	listGroup singleflight.Group
	startTime time.Time
}

// NewServer wires the HTTP layer. repo may be nil when no persistence
// backend is configured; the REST API is then not registered.
func NewServer(cfg *config.Config, h *hub.Hub, repo persist.Repository) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		hub:       h,
		repo:      repo,
		limits:    NewConnectionLimits(cfg.MaxConnections, cfg.MaxConnectionsPerIP, cfg.ConnectionRate, cfg.ConnectionBurst),
		startTime: time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
