// Package config provides directory layout and user configuration for mons.
package config

import (
	"os"
	"path/filepath"
)

const appName = "mons"

// Dir returns the mons config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/mons if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the directory holding the install database, respecting
// XDG_DATA_HOME. Defaults to ~/.local/share/mons.
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// CacheDir returns the directory for downloaded artifacts and the cached
// build list, respecting XDG_CACHE_HOME. Defaults to ~/.cache/mons.
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

func xdgDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, appName), nil
}
