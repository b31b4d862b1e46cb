package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Hub limits and timers.
	MaxSessions         int           `env:"MAX_SESSIONS" default:"100"`
	RegistrationTimeout time.Duration `env:"REGISTRATION_TIMEOUT" default:"30s"`
	LocationTTL         time.Duration `env:"LOCATION_TTL" default:"5m"`
	JanitorInterval     time.Duration `env:"JANITOR_INTERVAL" default:"60s"`
	RateLimitWindow     time.Duration `env:"RATE_LIMIT_WINDOW" default:"1s"`
	RateLimitMax        int           `env:"RATE_LIMIT_MAX" default:"10"`

	// Transport-level connection limits.
	MaxConnections      int64   `env:"MAX_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP int     `env:"MAX_CONNECTIONS_PER_IP" default:"20"`
	ConnectionRate      float64 `env:"CONNECTION_RATE" default:"10"`
	ConnectionBurst     int     `env:"CONNECTION_BURST" default:"10"`

	// Web client directory; empty disables static serving.
	StaticDir string `env:"STATIC_DIR" default:"web/static"`

	// Optional shared-location persistence. At most one may be set; when
	// neither is, the REST location API is not mounted.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.MaxSessions <= 0 {
		return errors.New("MAX_SESSIONS must be positive")
	}
	if cfg.RegistrationTimeout <= 0 {
		return errors.New("REGISTRATION_TIMEOUT must be positive")
	}
	if cfg.LocationTTL <= 0 {
		return errors.New("LOCATION_TTL must be positive")
	}
	if cfg.JanitorInterval <= 0 {
		return errors.New("JANITOR_INTERVAL must be positive")
	}
	if cfg.RateLimitWindow <= 0 || cfg.RateLimitMax <= 0 {
		return errors.New("RATE_LIMIT_WINDOW and RATE_LIMIT_MAX must be positive")
	}
	if cfg.DatabaseURL != "" && cfg.RedisURL != "" {
		return errors.New("DATABASE_URL and REDIS_URL are mutually exclusive")
	}
	return nil
}

// PersistenceEnabled reports whether a shared-location store is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != "" || c.RedisURL != ""
}
