package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Nonith-Rao/Live-Tracking/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(200, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).Seconds(),
		"version": version.Get(),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	if s.repo != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := s.repo.Ping(ctx); err != nil {
			return c.JSON(503, map[string]any{
				"status":       "unhealthy",
				"failed_check": "repository",
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) handleStats(c echo.Context) error {
	stats := s.hub.Stats()
	return c.JSON(200, map[string]any{
		"hub": stats,
		"connections": map[string]any{
			"current":    s.limits.Current(),
			"max":        s.limits.Max(),
			"unique_ips": s.limits.UniqueIPs(),
		},
	})
}
