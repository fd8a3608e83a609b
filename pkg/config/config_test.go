package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"croon/pkg/config"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pacing.MinInterval() != 2*time.Second {
		t.Fatalf("min interval = %v", cfg.Pacing.MinInterval())
	}
	if cfg.Browser.CreateURL == "" || cfg.Browser.Headless {
		t.Fatalf("browser defaults = %+v", cfg.Browser)
	}
	if cfg.Session.TokenTimeout() != 30*time.Second {
		t.Fatalf("token timeout = %v", cfg.Session.TokenTimeout())
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[pacing]
min_interval_seconds = 4.5

[browser]
headless = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pacing.MinInterval() != 4500*time.Millisecond {
		t.Fatalf("min interval = %v", cfg.Pacing.MinInterval())
	}
	if !cfg.Browser.Headless {
		t.Fatal("headless override lost")
	}
	// Untouched keys keep their defaults.
	if cfg.Pacing.MaxJitter() != 3*time.Second {
		t.Fatalf("max jitter = %v", cfg.Pacing.MaxJitter())
	}
	if cfg.Browser.RestartEvery != 8 {
		t.Fatalf("restart every = %d", cfg.Browser.RestartEvery)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative pacing", "[pacing]\nmin_interval_seconds = -1\n"},
		{"zero token timeout", "[session]\ntoken_timeout_seconds = 0\n"},
		{"garbage", "not toml at all ==="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := config.Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
