package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reportd_test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("expected default poll interval 2s, got %s", cfg.PollInterval)
	}
	if cfg.MaxPollAttempts != 150 {
		t.Fatalf("expected default max poll attempts 150, got %d", cfg.MaxPollAttempts)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reportd_test")
	t.Setenv("POLL_INTERVAL_MS", "500")
	t.Setenv("MAX_POLL_ATTEMPTS", "10")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Fatalf("expected poll interval 500ms, got %s", cfg.PollInterval)
	}
	if cfg.MaxPollAttempts != 10 {
		t.Fatalf("expected max poll attempts 10, got %d", cfg.MaxPollAttempts)
	}
	if !cfg.OTelEnabled {
		t.Fatal("expected OTEL_ENABLED override to take effect")
	}
}

func TestLoadConfigRejectsNonPositiveAttemptCap(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reportd_test")
	t.Setenv("MAX_POLL_ATTEMPTS", "-1")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for non-positive MAX_POLL_ATTEMPTS")
	}
}
