package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"

	"github.com/Nonith-Rao/Live-Tracking/internal/metrics"
)

// PostgresRepository persists shared locations in Postgres. Writes go
// through a circuit breaker so a struggling database sheds load instead of
// piling up blocked requests.
type PostgresRepository struct {
	pool    *pgxpool.Pool
	breaker *gobreaker.CircuitBreaker
}

// NewPostgresRepository connects, runs migrations, and wraps the pool.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	slog.Info("Database connected", "max_conns", poolCfg.MaxConns)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "postgres-writes",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.PersistBreakerState.Set(breakerStateToFloat(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &PostgresRepository{pool: pool, breaker: breaker}, nil
}

func breakerStateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS shared_locations (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT 'Anonymous',
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shared_locations_updated_at ON shared_locations(updated_at)`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}

func (r *PostgresRepository) Save(ctx context.Context, loc SharedLocation) (err error) {
	start := time.Now()
	defer func() { observe("save", start, err) }()

	_, err = r.breaker.Execute(func() (any, error) {
		_, execErr := r.pool.Exec(ctx, `
			INSERT INTO shared_locations (user_id, name, latitude, longitude, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				name = EXCLUDED.name,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				updated_at = EXCLUDED.updated_at
		`, loc.UserID, loc.Name, loc.Latitude, loc.Longitude, loc.UpdatedAt)
		return nil, execErr
	})
	if err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) (locs []SharedLocation, err error) {
	start := time.Now()
	defer func() { observe("list", start, err) }()

	rows, err := r.pool.Query(ctx, `
		SELECT user_id, name, latitude, longitude, updated_at
		FROM shared_locations
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	locs = make([]SharedLocation, 0)
	for rows.Next() {
		var loc SharedLocation
		if err := rows.Scan(&loc.UserID, &loc.Name, &loc.Latitude, &loc.Longitude, &loc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locs = append(locs, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read locations: %w", err)
	}
	return locs, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) (err error) {
	start := time.Now()
	defer func() { observe("delete", start, err) }()

	_, err = r.breaker.Execute(func() (any, error) {
		tag, execErr := r.pool.Exec(ctx, `DELETE FROM shared_locations WHERE user_id = $1`, userID)
		if execErr != nil {
			return nil, execErr
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
		return nil, nil
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}
