package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const locationsKey = "shared_locations"

// RedisRepository persists shared locations in a single Redis hash keyed by
// user ID, with JSON-encoded values.
type RedisRepository struct {
	rdb *goredis.Client
}

// NewRedisRepository connects to Redis via URL (e.g. "redis://localhost:6379").
func NewRedisRepository(ctx context.Context, redisURL string) (*RedisRepository, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	slog.Info("Redis connected", "addr", opts.Addr)
	return &RedisRepository{rdb: rdb}, nil
}

func (r *RedisRepository) Save(ctx context.Context, loc SharedLocation) (err error) {
	start := time.Now()
	defer func() { observe("save", start, err) }()

	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}

	if err = r.rdb.HSet(ctx, locationsKey, loc.UserID, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

func (r *RedisRepository) List(ctx context.Context) (locs []SharedLocation, err error) {
	start := time.Now()
	defer func() { observe("list", start, err) }()

	entries, err := r.rdb.HGetAll(ctx, locationsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	locs = make([]SharedLocation, 0, len(entries))
	for userID, raw := range entries {
		var loc SharedLocation
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			slog.Warn("Skipping corrupt location entry", "user_id", userID, "error", err)
			continue
		}
		locs = append(locs, loc)
	}

	sort.Slice(locs, func(i, j int) bool { return locs[i].UserID < locs[j].UserID })
	return locs, nil
}

func (r *RedisRepository) Delete(ctx context.Context, userID string) (err error) {
	start := time.Now()
	defer func() { observe("delete", start, err) }()

	removed, err := r.rdb.HDel(ctx, locationsKey, userID).Result()
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisRepository) Close() {
	if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		slog.Warn("Failed to close redis client", "error", err)
	}
}
