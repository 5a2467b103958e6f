// Package config loads and persists vaultview settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds user-tunable settings.
type Config struct {
	// APIBaseURL is the hierarchy service root, e.g. http://localhost:3000.
	APIBaseURL string `yaml:"api_base_url"`
	// RequestTimeoutMS bounds a single service request.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
	// DebounceMS is the free-text filter debounce window.
	DebounceMS int `yaml:"debounce_ms"`
	// FilterMode is "hide" or "dim" for non-matching nodes.
	FilterMode string `yaml:"filter_mode"`
	// ChunkSize is how many nodes a traversal processes before yielding.
	ChunkSize int `yaml:"chunk_size"`
	// AuditDBPath is where the local edit journal lives. Empty disables it.
	AuditDBPath string `yaml:"audit_db_path"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		APIBaseURL:       "http://localhost:3000",
		RequestTimeoutMS: 10000,
		DebounceMS:       300,
		FilterMode:       "hide",
		ChunkSize:        128,
		AuditDBPath:      filepath.Join(defaultDir(), "audit.db"),
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.yaml")
}

func defaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vaultview")
	}
	return ".vaultview"
}

// Load reads the config at path, layering it over defaults. A missing
// file is not an error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// RequestTimeout returns the request timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Debounce returns the debounce window as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

func (c *Config) normalize() {
	d := Default()
	if c.APIBaseURL == "" {
		c.APIBaseURL = d.APIBaseURL
	}
	if c.RequestTimeoutMS <= 0 {
		c.RequestTimeoutMS = d.RequestTimeoutMS
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = d.DebounceMS
	}
	if c.FilterMode != "hide" && c.FilterMode != "dim" {
		c.FilterMode = d.FilterMode
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
}
