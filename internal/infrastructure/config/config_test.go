package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Len(t, cfg.Server.AllowedOrigins, 2)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Session config
	assert.Equal(t, "events", cfg.Session.Variant)
	assert.Zero(t, cfg.Session.SpawnPeriod)
	assert.Equal(t, 600*time.Millisecond, cfg.Session.LoopPeriod)

	// Storage config
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "./data", cfg.Storage.Path)

	// Stream config
	assert.Equal(t, 100*time.Millisecond, cfg.Stream.FrameInterval)
	assert.Equal(t, 30, cfg.Stream.MessagesPerSec)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                  "9000",
		"HOST":                  "127.0.0.1",
		"CORS_ORIGINS":          "https://airwave.example",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"RATE_LIMIT_RPS":        "500",
		"RATE_LIMIT_BURST":      "1000",
		"RATE_LIMIT_ENABLED":    "false",
		"SESSION_VARIANT":       "tracks",
		"SESSION_SPAWN_PERIOD":  "1500ms",
		"STORAGE_BACKEND":       "sqlite",
		"STORAGE_PATH":          "/var/lib/soundscape/db.sqlite",
		"STORAGE_URL":           "http://kv:8080",
		"STREAM_FRAME_INTERVAL": "50ms",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, []string{"https://airwave.example"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)

	assert.Equal(t, "tracks", cfg.Session.Variant)
	assert.Equal(t, 1500*time.Millisecond, cfg.Session.SpawnPeriod)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/soundscape/db.sqlite", cfg.Storage.Path)
	assert.Equal(t, "http://kv:8080", cfg.Storage.URL)

	assert.Equal(t, 50*time.Millisecond, cfg.Stream.FrameInterval)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "lots")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
}
