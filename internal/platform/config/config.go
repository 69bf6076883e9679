package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// InstanceID tags relayed updates; generated when empty.
	InstanceID    string `env:"INSTANCE_ID"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	WebSocketRateLimit      float64 `env:"WEBSOCKET_RATE_LIMIT" default:"10"`
	WebSocketRateBurst      int     `env:"WEBSOCKET_RATE_BURST" default:"20"`

	DBBreakerFailures uint32        `env:"DB_BREAKER_FAILURES" default:"5"`
	DBBreakerOpenFor  time.Duration `env:"DB_BREAKER_OPEN_FOR" default:"30s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
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

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	return &cfg, nil
}

// IsDevelopment reports whether localhost origins are accepted.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// RelayEnabled reports whether updates are relayed to other instances.
func (c *Config) RelayEnabled() bool {
	return c.RedisURL != ""
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.MaxWebSocketConnections < 0 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must not be negative")
	}
	if cfg.WebSocketRateLimit <= 0 || cfg.WebSocketRateBurst <= 0 {
		return errors.New("WEBSOCKET_RATE_LIMIT and WEBSOCKET_RATE_BURST must be positive")
	}

	if cfg.DBBreakerFailures == 0 {
		return errors.New("DB_BREAKER_FAILURES must be at least 1")
	}
	if cfg.DBBreakerOpenFor <= 0 {
		return errors.New("DB_BREAKER_OPEN_FOR must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	if cfg.AllowedOrigin != "" {
		u, err := url.Parse(cfg.AllowedOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("ALLOWED_ORIGIN must be an absolute URL, got %q", cfg.AllowedOrigin)
		}
	}

	return nil
}
