package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://localhost:8000", "http://localhost:8000"},
		{"http://localhost:8000/", "http://localhost:8000"},
		{"  https://api.healthlens.dev//  ", "https://api.healthlens.dev"},
		{"localhost:8000", "http://localhost:8000"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeURL(tt.input); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		servers       []Server
		errorContains string
	}{
		{
			name:    "valid",
			servers: []Server{{URL: "http://localhost:8000", Alias: "local"}, {URL: "https://api.healthlens.dev", Alias: "prod"}},
		},
		{
			name:          "missing alias",
			servers:       []Server{{URL: "http://localhost:8000"}},
			errorContains: "required",
		},
		{
			name:          "not a url",
			servers:       []Server{{URL: "not a url", Alias: "bad"}},
			errorContains: "http_url",
		},
		{
			name:          "duplicate alias",
			servers:       []Server{{URL: "http://a:1", Alias: "x"}, {URL: "http://b:2", Alias: "x"}},
			errorContains: "duplicate server alias",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Config{Servers: tt.servers}).Validate()
			if tt.errorContains == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errorContains)
			}
			if !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.errorContains)
			}
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := DefaultConfig("localhost:8000/")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	server, err := loaded.GetDefaultServer()
	if err != nil {
		t.Fatalf("GetDefaultServer() error = %v", err)
	}
	if server.URL != "http://localhost:8000" || server.Alias != "default" {
		t.Errorf("server = %+v", server)
	}
}

func TestLoad_NormalizesAndRejects(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	os.WriteFile(good, []byte(`{"servers":[{"url":"http://localhost:8000/","alias":"local"}]}`), 0644)
	cfg, err := Load(good)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Servers[0].URL != "http://localhost:8000" {
		t.Errorf("URL = %q, want trailing slash trimmed", cfg.Servers[0].URL)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"servers":[{"url":"http://localhost:8000"}]}`), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("Load() accepted a server without alias")
	}

	broken := filepath.Join(dir, "broken.json")
	os.WriteFile(broken, []byte(`{"servers":`), 0644)
	if _, err := Load(broken); err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("Load() error = %v, want parse error", err)
	}
}

func TestFindConfigFile_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := Save(filepath.Join(root, ConfigFileName), DefaultConfig("http://localhost:8000")); err != nil {
		t.Fatal(err)
	}
	chdir(t, nested)

	path, err := FindConfigFile()
	if err != nil {
		t.Fatalf("FindConfigFile() error = %v", err)
	}
	// macOS resolves temp dirs through /private, so compare base names.
	if filepath.Base(filepath.Dir(path)) != filepath.Base(root) {
		t.Errorf("FindConfigFile() = %q, want file in %q", path, root)
	}
}

func TestFindConfigFile_NotFound(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := FindConfigFile()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindConfigFile() error = %v, want ErrNotFound", err)
	}
}

func TestConfig_Lookups(t *testing.T) {
	cfg := &Config{Servers: []Server{
		{URL: "http://localhost:8000", Alias: "local"},
		{URL: "https://api.healthlens.dev", Alias: "prod"},
	}}

	if s, err := cfg.GetServerByAlias("prod"); err != nil || s.URL != "https://api.healthlens.dev" {
		t.Errorf("GetServerByAlias(prod) = %v, %v", s, err)
	}
	if _, err := cfg.GetServerByAlias("staging"); err == nil {
		t.Error("GetServerByAlias(staging) expected error")
	}
	if s, err := cfg.GetServerByURL("http://localhost:8000/"); err != nil || s.Alias != "local" {
		t.Errorf("GetServerByURL() = %v, %v", s, err)
	}
	if s, err := cfg.GetServerByURLOrAlias("local"); err != nil || s.URL != "http://localhost:8000" {
		t.Errorf("GetServerByURLOrAlias(local) = %v, %v", s, err)
	}
	if s, err := cfg.GetServerByURLOrAlias("https://api.healthlens.dev"); err != nil || s.Alias != "prod" {
		t.Errorf("GetServerByURLOrAlias(url) = %v, %v", s, err)
	}

	empty := &Config{}
	if _, err := empty.GetDefaultServer(); err == nil {
		t.Error("GetDefaultServer() on empty config expected error")
	}
}
