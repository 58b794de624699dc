package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HEALTHLENS_ENV", "HEALTHLENS_API_URL", "HEALTHLENS_TOKEN_STORE", "HEALTHLENS_TIMEOUT", "HEALTHLENS_LOG_LEVEL", "HEALTHLENS_LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != "production" || !cfg.IsProduction() {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.TokenStore != "keyring" {
		t.Errorf("TokenStore = %q, want keyring", cfg.TokenStore)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.APIURL != "" {
		t.Errorf("APIURL = %q, want empty", cfg.APIURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HEALTHLENS_ENV", "Development")
	t.Setenv("HEALTHLENS_API_URL", "http://localhost:8000/")
	t.Setenv("HEALTHLENS_TOKEN_STORE", "file")
	t.Setenv("HEALTHLENS_TIMEOUT", "5s")
	t.Setenv("HEALTHLENS_LOG_LEVEL", "debug")
	t.Setenv("HEALTHLENS_LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != "development" || cfg.IsProduction() {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.TokenStore != "file" {
		t.Errorf("TokenStore = %q", cfg.TokenStore)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad timeout", key: "HEALTHLENS_TIMEOUT", value: "soon"},
		{name: "negative timeout", key: "HEALTHLENS_TIMEOUT", value: "-1s"},
		{name: "unknown token store", key: "HEALTHLENS_TOKEN_STORE", value: "vault"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv("HEALTHLENS_TIMEOUT", "")
			t.Setenv("HEALTHLENS_TOKEN_STORE", "")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q expected error", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// godotenv never overrides a variable that is set, even to "".
	t.Setenv("HEALTHLENS_ENV", "")
	os.Unsetenv("HEALTHLENS_ENV")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HEALTHLENS_ENV=staging\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("Environment = %q, want staging from .env", cfg.Environment)
	}
}
