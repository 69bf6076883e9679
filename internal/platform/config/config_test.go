package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
}

func TestLoad_AllRequiredVarsSet(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.False(t, cfg.RelayEnabled())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, "DATABASE_URL is required", err.Error())
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 10000, cfg.MaxWebSocketConnections)
	assert.Equal(t, 10.0, cfg.WebSocketRateLimit)
	assert.Equal(t, 20, cfg.WebSocketRateBurst)
	assert.Equal(t, uint32(5), cfg.DBBreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.DBBreakerOpenFor)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_GeneratesInstanceID(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	_, err = uuid.Parse(cfg.InstanceID)
	assert.NoError(t, err)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("INSTANCE_ID", "board-1")
	t.Setenv("ALLOWED_ORIGIN", "https://board.example.com")
	t.Setenv("DB_BREAKER_OPEN_FOR", "1m")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.RelayEnabled())
	assert.Equal(t, "board-1", cfg.InstanceID)
	assert.Equal(t, "https://board.example.com", cfg.AllowedOrigin)
	assert.Equal(t, time.Minute, cfg.DBBreakerOpenFor)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"log format", "LOG_FORMAT", "xml", `LOG_FORMAT must be text or json, got "xml"`},
		{"negative connections", "MAX_WEBSOCKET_CONNECTIONS", "-1", "MAX_WEBSOCKET_CONNECTIONS must not be negative"},
		{"zero rate", "WEBSOCKET_RATE_LIMIT", "0", "WEBSOCKET_RATE_LIMIT and WEBSOCKET_RATE_BURST must be positive"},
		{"zero burst", "WEBSOCKET_RATE_BURST", "0", "WEBSOCKET_RATE_LIMIT and WEBSOCKET_RATE_BURST must be positive"},
		{"zero breaker failures", "DB_BREAKER_FAILURES", "0", "DB_BREAKER_FAILURES must be at least 1"},
		{"zero breaker window", "DB_BREAKER_OPEN_FOR", "0s", "DB_BREAKER_OPEN_FOR must be positive"},
		{"zero shutdown timeout", "SHUTDOWN_TIMEOUT", "0s", "SHUTDOWN_TIMEOUT must be positive"},
		{"relative origin", "ALLOWED_ORIGIN", "board.example.com", `ALLOWED_ORIGIN must be an absolute URL, got "board.example.com"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_MalformedDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
