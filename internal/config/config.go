// Package config reads and validates the indexer's process configuration
// from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the indexer's runtime configuration.
type Config struct {
	DatabaseURL      string
	ListenAddr       string
	DefaultGateTTLMs int64
	LogLevel         string
	LogFormat        string
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Load reads Config from the environment. DATABASE_URL is required; its
// absence is a fatal startup error. Every other field has a default.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ListenAddr:       envOr("LISTEN_ADDR", ":8080"),
		DefaultGateTTLMs: 5000,
		LogLevel:         strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(envOr("LOG_FORMAT", "console")),
	}

	if raw := strings.TrimSpace(os.Getenv("DEFAULT_GATE_TTL_MS")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEFAULT_GATE_TTL_MS %q: %w", raw, err)
		}
		cfg.DefaultGateTTLMs = v
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	if cfg.DefaultGateTTLMs <= 0 {
		return fmt.Errorf("DEFAULT_GATE_TTL_MS must be > 0")
	}
	if _, ok := allowedLogLevels[cfg.LogLevel]; !ok {
		return fmt.Errorf("invalid LOG_LEVEL %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
