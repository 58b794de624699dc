package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the environment-level configuration of the CLI
type Config struct {
	// Environment is "production" unless HEALTHLENS_ENV says otherwise.
	Environment string

	// APIURL overrides server selection when set.
	APIURL string

	// TokenStore is the token backend: keyring or file.
	TokenStore string

	// Timeout bounds every HTTP call.
	Timeout time.Duration

	// Logging Configuration
	Logging LoggingConfig
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// IsProduction reports whether debug-only behaviour should be disabled.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	timeout := 30 * time.Second
	if raw := os.Getenv("HEALTHLENS_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid HEALTHLENS_TIMEOUT %q: %w", raw, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid HEALTHLENS_TIMEOUT %q: must be positive", raw)
		}
		timeout = d
	}

	tokenStore := strings.ToLower(getEnv("HEALTHLENS_TOKEN_STORE", "keyring"))
	if tokenStore != "keyring" && tokenStore != "file" {
		return nil, fmt.Errorf("invalid HEALTHLENS_TOKEN_STORE %q: use keyring or file", tokenStore)
	}

	return &Config{
		Environment: strings.ToLower(getEnv("HEALTHLENS_ENV", "production")),
		APIURL:      strings.TrimRight(os.Getenv("HEALTHLENS_API_URL"), "/"),
		TokenStore:  tokenStore,
		Timeout:     timeout,
		Logging: LoggingConfig{
			// Quiet by default; a CLI should only print what was asked for
			Level:  getEnv("HEALTHLENS_LOG_LEVEL", "warn"),
			Format: getEnv("HEALTHLENS_LOG_FORMAT", "console"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
