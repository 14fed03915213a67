package config

import "testing"

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "bolt:///tmp/x")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DEFAULT_GATE_TTL_MS", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.DefaultGateTTLMs != 5000 {
		t.Errorf("DefaultGateTTLMs = %d, want 5000", cfg.DefaultGateTTLMs)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("DATABASE_URL", "bolt:///tmp/x")
	t.Setenv("LOG_LEVEL", "verbose")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoadRejectsInvalidGateTTL(t *testing.T) {
	t.Setenv("DATABASE_URL", "bolt:///tmp/x")
	t.Setenv("DEFAULT_GATE_TTL_MS", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric DEFAULT_GATE_TTL_MS")
	}
}
