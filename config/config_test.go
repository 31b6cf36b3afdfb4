package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_File(t *testing.T) {
	cfg, err := Load("testdata/flowx.yaml")
	require.NoError(t, err)

	assert.Equal(t, "https://flowx.example.com", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "flowx-go", cfg.API.UserAgent, "defaults survive partial files")
	assert.Equal(t, "file-token", cfg.Auth.Token)
	assert.Equal(t, "wss://flowx.example.com/ws/notifications", cfg.WebSocket.URL)
	assert.Equal(t, 500, cfg.Cache.Capacity)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, PersistSQLite, cfg.Persistence.Driver)
	assert.Equal(t, "msgpack", cfg.Persistence.Codec)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLOWX_API_URL", "http://localhost:8080")
	t.Setenv("FLOWX_TOKEN", "env-token")
	t.Setenv("FLOWX_PERSIST_DRIVER", "memory")
	t.Setenv("FLOWX_LOG_LEVEL", "warn")

	cfg, err := Load("testdata/flowx.yaml")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, "env-token", cfg.Auth.Token)
	assert.Equal(t, "ws://localhost:8080/ws/notifications", cfg.WebSocket.URL)
	assert.Equal(t, PersistMemory, cfg.Persistence.Driver)
	assert.Equal(t, slog.LevelWarn, cfg.Log.SlogLevel())
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv("FLOWX_API_URL", "https://api.flowx.dev")
	t.Setenv("FLOWX_WS_URL", "wss://push.flowx.dev/feed")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "wss://push.flowx.dev/feed", cfg.WebSocket.URL)
	assert.Equal(t, PersistNone, cfg.Persistence.Driver)
	assert.Equal(t, 10000, cfg.Cache.Capacity)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load("testdata/invalid.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	_, err = Load("testdata/missing.yaml")
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err, "a base URL is required")
}

func TestPersistenceConfig_RequiresDSN(t *testing.T) {
	assert.Error(t, PersistenceConfig{Driver: PersistPostgres}.Validate())
	assert.NoError(t, PersistenceConfig{Driver: PersistMemory}.Validate())
}
