// Package config loads the application's TOML configuration. A missing
// file yields defaults; a present file only needs the keys it wants to
// override.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration.
type Config struct {
	Pacing  Pacing  `toml:"pacing"`
	Browser Browser `toml:"browser"`
	Session Session `toml:"session"`
}

// Pacing bounds the delay between automated UI mutations.
type Pacing struct {
	// MinIntervalSeconds is the hard floor between mutations.
	MinIntervalSeconds float64 `toml:"min_interval_seconds"`
	// MaxJitterSeconds is the extra random delay added per mutation.
	MaxJitterSeconds float64 `toml:"max_jitter_seconds"`
}

// Browser configures Chrome and the target platform.
type Browser struct {
	// ExecPath overrides the Chrome binary location.
	ExecPath string `toml:"exec_path"`
	Headless bool   `toml:"headless"`
	// CreateURL is the platform's creation page.
	CreateURL string `toml:"create_url"`
	UserAgent string `toml:"user_agent"`
	// RestartEvery is the hard tab-cleanup period in items.
	RestartEvery int `toml:"restart_every"`
}

// Session configures session acquisition.
type Session struct {
	// TokenTimeoutSeconds bounds the wait for the auth cookie after
	// launching the browser.
	TokenTimeoutSeconds float64 `toml:"token_timeout_seconds"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Pacing: Pacing{
			MinIntervalSeconds: 2,
			MaxJitterSeconds:   3,
		},
		Browser: Browser{
			Headless:     false,
			CreateURL:    "https://suno.com/create",
			RestartEvery: 8,
		},
		Session: Session{
			TokenTimeoutSeconds: 30,
		},
	}
}

// Load reads the config at path, layering it over defaults. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Pacing.MinIntervalSeconds < 0 {
		return fmt.Errorf("pacing.min_interval_seconds cannot be negative")
	}
	if c.Pacing.MaxJitterSeconds < 0 {
		return fmt.Errorf("pacing.max_jitter_seconds cannot be negative")
	}
	if c.Session.TokenTimeoutSeconds <= 0 {
		return fmt.Errorf("session.token_timeout_seconds must be positive")
	}
	if c.Browser.RestartEvery < 0 {
		return fmt.Errorf("browser.restart_every cannot be negative")
	}
	return nil
}

// MinInterval returns the pacing floor as a duration.
func (p Pacing) MinInterval() time.Duration {
	return time.Duration(p.MinIntervalSeconds * float64(time.Second))
}

// MaxJitter returns the jitter bound as a duration.
func (p Pacing) MaxJitter() time.Duration {
	return time.Duration(p.MaxJitterSeconds * float64(time.Second))
}

// TokenTimeout returns the auth-cookie wait bound as a duration.
func (s Session) TokenTimeout() time.Duration {
	return time.Duration(s.TokenTimeoutSeconds * float64(time.Second))
}
