package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config is the global CLI config stored at ~/.config/visita/config.json.
type Config struct {
	ServerURL string `json:"server_url"`
	APIKey    string `json:"api_key,omitempty"`
	PageSize  int    `json:"page_size,omitempty"` // stores per page, default 20
}

const (
	defaultServerURL = "http://localhost:8080"
	defaultPageSize  = 20
)

// Dir returns ~/.config/visita, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "visita")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config from ~/.config/visita/config.json.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config to ~/.config/visita/config.json
// (0600 perms, the file may hold an API key).
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0600)
}

// ServerURL returns the API server URL.
// Priority: VISITA_SERVER_URL env > config.json > default.
func ServerURL() string {
	if v := os.Getenv("VISITA_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := Load()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return defaultServerURL
}

// APIKey returns the API key.
// Priority: VISITA_API_KEY env > config.json.
func APIKey() string {
	if v := os.Getenv("VISITA_API_KEY"); v != "" {
		return v
	}
	cfg, err := Load()
	if err == nil {
		return cfg.APIKey
	}
	return ""
}

// PageSize returns the store list page size.
// Priority: VISITA_PAGE_SIZE env > config.json > default (20).
func PageSize() int {
	if v := os.Getenv("VISITA_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	cfg, err := Load()
	if err == nil && cfg.PageSize > 0 {
		return cfg.PageSize
	}
	return defaultPageSize
}
