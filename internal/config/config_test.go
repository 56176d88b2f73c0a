package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)
	assert.False(t, cfg.Sandbox.Verbose)
	assert.Equal(t, "apps.yaml", cfg.Shell.Manifest)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":            "9000",
		"HOST":            "127.0.0.1",
		"SANDBOX_TIMEOUT": "250ms",
		"SANDBOX_VERBOSE": "true",
		"MANIFEST":        "shell/apps.yaml",
		"LOG_LEVEL":       "debug",
		"RATE_LIMIT_RPS":  "500",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Sandbox.Timeout)
	assert.True(t, cfg.Sandbox.Verbose)
	assert.Equal(t, "shell/apps.yaml", cfg.Shell.Manifest)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadOrDefault(t *testing.T) {
	os.Unsetenv("PORT")
	cfg := LoadOrDefault()

	require.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
}
