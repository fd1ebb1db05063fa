package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// No configs/ directory exists under the test working directory, so
	// every value comes from the viper defaults.
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 5, cfg.Registry.MaxLinks)
	assert.Equal(t, 6, cfg.Registry.CodeLength)
	assert.Equal(t, "file::memory:?cache=shared", cfg.Database.DSN)
	assert.Equal(t, 1000, cfg.Analytics.BufferSize)
	assert.Equal(t, 5, cfg.Analytics.WorkerCount)
	assert.Equal(t, 5, cfg.Monitor.IntervalMinutes)
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, 5.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, "local", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REGISTRY_MAX_LINKS", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Registry.MaxLinks)
}
