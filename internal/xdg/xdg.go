// Package xdg resolves XDG Base Directory paths for Gatehouse.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "gatehouse"

func resolve(env string, fallback ...string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_NO_HOME").With("env", env).Wrap(err)
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, appName)...), nil
}

// ConfigDir returns the config directory, checking XDG_CONFIG_HOME
// before ~/.config.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the data directory, checking XDG_DATA_HOME before
// ~/.local/share. Account snapshots and per-user workspaces live here.
func DataDir() (string, error) {
	return resolve("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the state directory, checking XDG_STATE_HOME before
// ~/.local/state.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", ".local", "state")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
