package api

import (
	"os"
	"strconv"
	"time"
)

// Config holds the server configuration, loaded from environment variables.
type Config struct {
	ListenAddr      string
	DBPath          string
	DBNoInit        bool   // serve an existing file as is, no schema repair
	APIKey          string // empty disables auth (local use)
	ShutdownTimeout time.Duration
	LogFormat       string // "json" (default) or "text"
	LogLevel        string // "debug", "info" (default), "warn", "error"
}

// LoadConfig reads configuration from environment variables with sensible defaults.
func LoadConfig() Config {
	cfg := Config{
		ListenAddr:      ":8080",
		DBPath:          "./data/visita.db",
		ShutdownTimeout: 30 * time.Second,
		LogFormat:       "json",
		LogLevel:        "info",
	}

	if v := os.Getenv("VISITA_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("VISITA_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("VISITA_DB_NO_INIT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DBNoInit = b
		}
	}
	if v := os.Getenv("VISITA_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("VISITA_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("VISITA_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("VISITA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}
