// Package config loads application configuration from environment
// variables with sensible defaults. Validation fails fast: a process with
// broken configuration must not serve traffic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Roster        RosterConfig
	Authz         AuthzConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RosterConfig holds the outlet/roster service client configuration
type RosterConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// AuthzConfig holds authorization engine configuration
type AuthzConfig struct {
	// PolicyFile optionally overlays the compiled-in tables. Empty means
	// defaults only.
	PolicyFile string
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TILLSTACK_HOST", "0.0.0.0"),
			Port:            getEnv("TILLSTACK_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TILLSTACK_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TILLSTACK_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("TILLSTACK_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TILLSTACK_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Roster: RosterConfig{
			BaseURL:  getEnv("TILLSTACK_ROSTER_URL", "http://localhost:8090"),
			Timeout:  getEnvDuration("TILLSTACK_ROSTER_TIMEOUT", 2*time.Second),
			CacheTTL: getEnvDuration("TILLSTACK_ROSTER_CACHE_TTL", 30*time.Second),
		},
		Authz: AuthzConfig{
			PolicyFile: getEnv("TILLSTACK_POLICY_FILE", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("TILLSTACK_LOG_LEVEL", "info"),
			MetricsEnabled: getEnvBool("TILLSTACK_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must not be empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if c.Roster.BaseURL == "" {
		return fmt.Errorf("roster base URL must not be empty")
	}
	if c.Roster.Timeout <= 0 {
		return fmt.Errorf("roster timeout must be positive, got %s", c.Roster.Timeout)
	}
	if c.Roster.Timeout > 10*time.Second {
		return fmt.Errorf("roster timeout %s too large for the request hot path", c.Roster.Timeout)
	}
	if c.Roster.CacheTTL < 0 {
		return fmt.Errorf("roster cache TTL must not be negative, got %s", c.Roster.CacheTTL)
	}
	return nil
}

// Addr returns the server listen address.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
