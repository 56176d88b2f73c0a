package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all host configuration.
type Config struct {
	Server    ServerConfig
	Sandbox   SandboxConfig
	Shell     ShellConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP orchestrator configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// SandboxConfig holds hosted-module execution configuration.
type SandboxConfig struct {
	Timeout time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	Verbose bool          `envconfig:"SANDBOX_VERBOSE" default:"false"`
}

// ShellConfig holds the host shell's input paths.
type ShellConfig struct {
	Manifest  string `envconfig:"MANIFEST" default:"apps.yaml"`
	IndexHTML string `envconfig:"INDEX_HTML" default:""`
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

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns configuration with all defaults applied and no
// environment lookup.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8000", Host: "0.0.0.0"},
		Sandbox: SandboxConfig{Timeout: 5 * time.Second},
		Shell:   ShellConfig{Manifest: "apps.yaml"},
		Logging: LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// LoadOrDefault loads from the environment, falling back to defaults on
// error.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}
