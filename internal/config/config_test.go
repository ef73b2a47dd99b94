package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.SessionIdleTTL != 2*time.Hour {
		t.Errorf("expected 2h session TTL, got %s", cfg.SessionIdleTTL)
	}
	if cfg.SweepInterval != time.Hour {
		t.Errorf("expected hourly sweep, got %s", cfg.SweepInterval)
	}
	if cfg.BusinessTimezone != "Europe/Warsaw" {
		t.Errorf("unexpected timezone %s", cfg.BusinessTimezone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("SESSION_IDLE_TTL", "30m")
	t.Setenv("DEFAULT_DURATION_HOURS", "3")
	t.Setenv("USE_MEMORY_QUEUE", "true")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port override, got %s", cfg.Port)
	}
	if cfg.SessionIdleTTL != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %s", cfg.SessionIdleTTL)
	}
	if cfg.DefaultDurationHours != 3 {
		t.Errorf("expected duration 3, got %d", cfg.DefaultDurationHours)
	}
	if !cfg.UseMemoryQueue {
		t.Error("expected memory queue enabled")
	}
}

func TestParseOpeningHours(t *testing.T) {
	hours := parseOpeningHours("Mon=10-18,Tue=10-18,Sat=closed,bogus,Sun=")

	if hours[time.Monday] != "10-18" {
		t.Errorf("expected Monday 10-18, got %q", hours[time.Monday])
	}
	if _, ok := hours[time.Saturday]; ok {
		t.Error("expected Saturday closed")
	}
	if _, ok := hours[time.Sunday]; ok {
		t.Error("expected Sunday closed")
	}
}
