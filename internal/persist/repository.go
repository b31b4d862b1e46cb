package persist

import (
	"context"
	"errors"
	"time"

	"github.com/Nonith-Rao/Live-Tracking/internal/metrics"
)

// ErrNotFound is returned when the requested location does not exist.
var ErrNotFound = errors.New("location not found")

// SharedLocation is a durably published location.
type SharedLocation struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository stores shared locations. Implementations must be safe for
// concurrent use.
type Repository interface {
	// Save creates or overwrites the location for its UserID.
	Save(ctx context.Context, loc SharedLocation) error
	// List returns all stored locations ordered by UserID.
	List(ctx context.Context) ([]SharedLocation, error)
	// Delete removes the location for userID; ErrNotFound if absent.
	Delete(ctx context.Context, userID string) error
	// Ping verifies backend connectivity for readiness checks.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close()
}

// observe records operation metrics for a repository call.
func observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.PersistOpsTotal.WithLabelValues(operation, status).Inc()
	metrics.PersistOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
