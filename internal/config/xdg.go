package config

import (
	"os"
	"path/filepath"
)

const appName = "gaelchart"

// appDir resolves $env/gaelchart, or ~/<fallback...>/gaelchart when env is unset.
// Without a home directory it falls back to the working directory.
func appDir(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return appName
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// DefaultDBPath returns the load history database path under the XDG data home.
func DefaultDBPath() string {
	return filepath.Join(appDir("XDG_DATA_HOME", ".local", "share"), appName+".db")
}

// DefaultConfigPath returns the TOML config path under the XDG config home.
func DefaultConfigPath() string {
	return filepath.Join(appDir("XDG_CONFIG_HOME", ".config"), "config.toml")
}
