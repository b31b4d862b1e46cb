package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Nonith-Rao/Live-Tracking/internal/persist"
	"github.com/Nonith-Rao/Live-Tracking/internal/presence"
)

type saveLocationRequest struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

func (s *Server) handleSaveLocation(c echo.Context) error {
	var req saveLocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
	}

	if strings.TrimSpace(req.UserID) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User ID is required"})
	}
	if !presence.ValidCoordinates(req.Lat, req.Lng) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid location data"})
	}

	name := req.Name
	if name == "" {
		name = "Anonymous"
	}

	loc := persist.SharedLocation{
		UserID:    req.UserID,
		Name:      name,
		Latitude:  req.Lat,
		Longitude: req.Lng,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Save(c.Request().Context(), loc); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save location"})
	}

	return c.JSON(http.StatusOK, loc)
}

func (s *Server) handleListLocations(c echo.Context) error {
	// Concurrent list requests collapse into one repository query.
	result, err, _ := s.listGroup.Do("list", func() (any, error) {
		return s.repo.List(c.Request().Context())
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list locations"})
	}

	return c.JSON(http.StatusOK, map[string]any{"locations": result.([]persist.SharedLocation)})
}

func (s *Server) handleDeleteLocation(c echo.Context) error {
	userID := c.Param("userId")

	err := s.repo.Delete(c.Request().Context(), userID)
	if errors.Is(err, persist.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Location not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete location"})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
