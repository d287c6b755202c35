// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appName = "speedtype"

// DBEnv names the environment variable that overrides the database path.
const DBEnv = "SPEEDTYPE_DB"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// XDGStateHome returns the XDG state home or a default fallback.
func XDGStateHome() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, fallback)
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, "typing_test.db")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}

// StateDir holds logs and telemetry output.
func StateDir() string {
	return filepath.Join(XDGStateHome(), appName)
}

// ResolveDBPath picks the database path: an explicit flag value, then the
// SPEEDTYPE_DB environment variable, then the config file, then the default.
func ResolveDBPath(flagValue string, cfg FileConfig) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(DBEnv); v != "" {
		return v
	}
	if cfg.Store.Path != nil && *cfg.Store.Path != "" {
		return *cfg.Store.Path
	}
	return DefaultDBPath()
}
