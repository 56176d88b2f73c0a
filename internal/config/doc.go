// Package config provides 12-factor configuration management for the host.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: HTTP orchestrator settings (port, host)
//   - Sandbox: hosted-module execution settings (timeout, verbose dumps)
//   - Shell: manifest and index document paths
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Host running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - SANDBOX_TIMEOUT, SANDBOX_VERBOSE
//   - MANIFEST, INDEX_HTML
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
