package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds all resolved croon state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	CroonHome     string // ~/.croon or CROON_HOME
	ConfigPath    string // config.toml or CROON_CONFIG_PATH
	StatePath     string // queue_state.json or CROON_STATE_PATH
	AccountsPath  string // accounts.json or CROON_ACCOUNTS_PATH
	HistoryDBPath string // history.db or CROON_HISTORY_DB
	ProfilesDir   string // profiles/ (respects CROON_HOME)
	LogsDir       string // logs/ (respects CROON_HOME)
}

// ResolvePaths returns all croon paths, respecting env var overrides.
// Environment variables:
//   - CROON_HOME: base directory for all croon state (default: ~/.croon)
//   - CROON_CONFIG_PATH: app config (default: $CROON_HOME/config.toml)
//   - CROON_STATE_PATH: queue state file (default: $CROON_HOME/queue_state.json)
//   - CROON_ACCOUNTS_PATH: account registry (default: $CROON_HOME/accounts.json)
//   - CROON_HISTORY_DB: creation history database (default: $CROON_HOME/history.db)
//
// If CROON_HOME is set, it becomes the base for all default paths.
// Specific env vars override both the default and the CROON_HOME base.
func ResolvePaths() (*Paths, error) {
	home, err := resolveCroonHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		CroonHome:     home,
		ConfigPath:    resolvePathWithEnv("CROON_CONFIG_PATH", home, "config.toml"),
		StatePath:     resolvePathWithEnv("CROON_STATE_PATH", home, "queue_state.json"),
		AccountsPath:  resolvePathWithEnv("CROON_ACCOUNTS_PATH", home, "accounts.json"),
		HistoryDBPath: resolvePathWithEnv("CROON_HISTORY_DB", home, "history.db"),
		ProfilesDir:   filepath.Join(home, "profiles"),
		LogsDir:       filepath.Join(home, "logs"),
	}, nil
}

// EnsureHome creates the croon home and profiles directories.
func (p *Paths) EnsureHome() error {
	if err := os.MkdirAll(p.ProfilesDir, 0o755); err != nil {
		return fmt.Errorf("create croon home: %w", err)
	}
	return nil
}

// resolveCroonHome returns the croon home directory from CROON_HOME or ~/.croon.
func resolveCroonHome() (string, error) {
	if v := os.Getenv("CROON_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".croon"), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
