package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100, cfg.MaxSessions)
	assert.Equal(t, 30*time.Second, cfg.RegistrationTimeout)
	assert.Equal(t, 5*time.Minute, cfg.LocationTTL)
	assert.Equal(t, 60*time.Second, cfg.JanitorInterval)
	assert.Equal(t, time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.False(t, cfg.PersistenceEnabled())
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("MAX_SESSIONS", "5")
	t.Setenv("REGISTRATION_TIMEOUT", "10s")
	t.Setenv("LOCATION_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.MaxSessions)
	assert.Equal(t, 10*time.Second, cfg.RegistrationTimeout)
	assert.Equal(t, 90*time.Second, cfg.LocationTTL)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		envKey  string
		value   string
		wantErr string
	}{
		{"zero sessions", "MAX_SESSIONS", "0", "MAX_SESSIONS must be positive"},
		{"negative ttl", "LOCATION_TTL", "-1m", "LOCATION_TTL must be positive"},
		{"zero rate max", "RATE_LIMIT_MAX", "0", "RATE_LIMIT_WINDOW and RATE_LIMIT_MAX must be positive"},
		{"zero janitor interval", "JANITOR_INTERVAL", "0s", "JANITOR_INTERVAL must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_MutuallyExclusiveBackends(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tracking")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, "DATABASE_URL and REDIS_URL are mutually exclusive", err.Error())
}

func TestPersistenceEnabled(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tracking")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.PersistenceEnabled())
}
