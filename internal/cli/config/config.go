package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

const ConfigFileName = "healthlens.json"

// ErrNotFound is returned by FindConfigFile when no project file exists.
var ErrNotFound = errors.New(ConfigFileName + " not found")

// Server represents a HealthLens API server
type Server struct {
	URL   string `json:"url" validate:"required,http_url"`
	Alias string `json:"alias" validate:"required"`
}

// Label returns "alias (url)" for prompts and listings
func (s Server) Label() string {
	return fmt.Sprintf("%s (%s)", s.Alias, s.URL)
}

// Config represents the CLI configuration file
type Config struct {
	Servers []Server `json:"servers" validate:"dive"`
}

// DefaultConfig returns a configuration pointing at a single API server
func DefaultConfig(apiURL string) *Config {
	return &Config{
		Servers: []Server{
			{
				URL:   NormalizeURL(apiURL),
				Alias: "default",
			},
		},
	}
}

// NormalizeURL trims whitespace and trailing slashes, and adds http:// to
// bare hosts such as "localhost:8000".
func NormalizeURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u != "" && !strings.Contains(u, "://") {
		u = "http://" + u
	}
	return u
}

// Validate checks that every server has an alias and an http(s) URL and
// that aliases are unique.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid server entry %s: %s check failed", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(c.Servers))
	for _, s := range c.Servers {
		if seen[s.Alias] {
			return fmt.Errorf("duplicate server alias '%s'", s.Alias)
		}
		seen[s.Alias] = true
	}
	return nil
}

// FindConfigFile searches for healthlens.json in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find healthlens.json or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, currentDir)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for i := range cfg.Servers {
		cfg.Servers[i].URL = NormalizeURL(cfg.Servers[i].URL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURL returns a server by its URL, ignoring trailing slashes
func (c *Config) GetServerByURL(rawURL string) (*Server, error) {
	want := NormalizeURL(rawURL)
	for i := range c.Servers {
		if c.Servers[i].URL == want {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL '%s' not found", rawURL)
}

// GetServerByURLOrAlias finds a server by URL first, then by alias
func (c *Config) GetServerByURLOrAlias(urlOrAlias string) (*Server, error) {
	if s, err := c.GetServerByURL(urlOrAlias); err == nil {
		return s, nil
	}
	if s, err := c.GetServerByAlias(urlOrAlias); err == nil {
		return s, nil
	}
	return nil, fmt.Errorf("server with URL or alias '%s' not found", urlOrAlias)
}

// GetDefaultServer returns the first server in the list
func (c *Config) GetDefaultServer() (*Server, error) {
	if len(c.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", ConfigFileName)
	}
	return &c.Servers[0], nil
}
