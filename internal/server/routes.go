package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/stats", s.handleStats)

	// WebSocket endpoint
	s.echo.GET("/ws", s.handleWebSocket)

	// REST location API, only with a persistence backend configured
	if s.repo != nil {
		s.echo.POST("/api/locations", s.handleSaveLocation)
		s.echo.GET("/api/locations", s.handleListLocations)
		s.echo.DELETE("/api/locations/:userId", s.handleDeleteLocation)
	}

	// Static browser client
	if s.config.StaticDir != "" {
		s.echo.Static("/", s.config.StaticDir)
	}
}
