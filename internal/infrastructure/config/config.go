package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Storage   StorageConfig
	Stream    StreamConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string   `envconfig:"PORT" default:"8000"`
	Host           string   `envconfig:"HOST" default:"0.0.0.0"`
	AllowedOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// SessionConfig selects the session variant and its timer periods.
// Zero periods keep the variant defaults.
type SessionConfig struct {
	Variant     string        `envconfig:"SESSION_VARIANT" default:"events"`
	SpawnPeriod time.Duration `envconfig:"SESSION_SPAWN_PERIOD"`
	SweepPeriod time.Duration `envconfig:"SESSION_SWEEP_PERIOD"`
	DriftPeriod time.Duration `envconfig:"SESSION_DRIFT_PERIOD"`
	EntityTTL   time.Duration `envconfig:"SESSION_ENTITY_TTL"`
	ClosureHold time.Duration `envconfig:"SESSION_CLOSURE_HOLD" default:"3s"`
	LoopPeriod  time.Duration `envconfig:"SESSION_LOOP_PERIOD" default:"600ms"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string        `envconfig:"STORAGE_BACKEND" default:"file"`
	Path    string        `envconfig:"STORAGE_PATH" default:"./data"`
	URL     string        `envconfig:"STORAGE_URL"`
	Timeout time.Duration `envconfig:"STORAGE_TIMEOUT" default:"2s"`
}

// StreamConfig holds WebSocket stream configuration.
type StreamConfig struct {
	FrameInterval   time.Duration `envconfig:"STREAM_FRAME_INTERVAL" default:"100ms"`
	MessagesPerSec  int           `envconfig:"STREAM_MESSAGES_PER_SEC" default:"30"`
	MessageBurst    int           `envconfig:"STREAM_MESSAGE_BURST" default:"60"`
	SendBufferSize  int           `envconfig:"STREAM_SEND_BUFFER" default:"64"`
	MaxMessageBytes int64         `envconfig:"STREAM_MAX_MESSAGE_BYTES" default:"4096"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Session: SessionConfig{
			Variant:     "events",
			ClosureHold: 3 * time.Second,
			LoopPeriod:  600 * time.Millisecond,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "./data",
			Timeout: 2 * time.Second,
		},
		Stream: StreamConfig{
			FrameInterval:   100 * time.Millisecond,
			MessagesPerSec:  30,
			MessageBurst:    60,
			SendBufferSize:  64,
			MaxMessageBytes: 4096,
		},
	}
}
