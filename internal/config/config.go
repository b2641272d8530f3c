// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads Gatehouse settings from defaults, an optional YAML
// file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/xdg"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// DefaultFileName is the config file looked up in the XDG config directory.
const DefaultFileName = "config.yaml"

// StderrLog is the log.file value that sends logs to stderr.
const StderrLog = "-"

// Config is the complete runtime configuration.
type Config struct {
	Storage StorageConfig `koanf:"storage"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Data    DataConfig    `koanf:"data"`
}

// StorageConfig selects and configures the account repository.
type StorageConfig struct {
	Backend     string `koanf:"backend"`
	Path        string `koanf:"path"`
	DatabaseURL string `koanf:"database_url"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
	// File is where records go; "-" means stderr.
	File string `koanf:"file"`
}

// MetricsConfig configures the metrics and health endpoint.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string `koanf:"addr"`
}

// DataConfig locates per-user feature data.
type DataConfig struct {
	Dir string `koanf:"dir"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"backend":       "storage.backend",
	"accounts-file": "storage.path",
	"database-url":  "storage.database_url",
	"auto-migrate":  "storage.auto_migrate",
	"log-format":    "log.format",
	"log-level":     "log.level",
	"log-file":      "log.file",
	"metrics-addr":  "metrics.addr",
	"data-dir":      "data.dir",
}

// RegisterFlags adds the configuration flags to flags. Unset flags fall back to
// the config file and then to Defaults.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("backend", "", "storage backend (file or postgres)")
	flags.String("accounts-file", "", "accounts file for the file backend (default: XDG_DATA_HOME/gatehouse/accounts.yaml)")
	flags.String("database-url", "", "PostgreSQL URL for the postgres backend (default: $DATABASE_URL)")
	flags.Bool("auto-migrate", true, "apply pending migrations on startup (postgres backend)")
	flags.String("log-format", "", "log format (json or text)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-file", "", `log file, or "-" for stderr (default: XDG_STATE_HOME/gatehouse/gatehouse.log)`)
	flags.String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	flags.String("data-dir", "", "per-user data directory (default: XDG_DATA_HOME/gatehouse)")
}

// Defaults returns the built-in settings.
func Defaults() (map[string]any, error) {
	dataDir, err := xdg.DataDir()
	if err != nil {
		return nil, err
	}
	stateDir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"storage.backend":      BackendFile,
		"storage.path":         filepath.Join(dataDir, store.DefaultFileName),
		"storage.database_url": "",
		"storage.auto_migrate": true,
		"log.format":           "json",
		"log.level":            "info",
		"log.file":             filepath.Join(stateDir, "gatehouse.log"),
		"metrics.addr":         "",
		"data.dir":             dataDir,
	}, nil
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName), nil
}

// Load builds a Config. An explicit path must exist; when path is empty the
// default config file is read if present. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults, err := Defaults()
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "resolve defaults").Wrap(err)
	}
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if path == "" {
		if path, err = DefaultPath(); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("operation", "resolve config path").Wrap(err)
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			path = ""
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	if cfg.Storage.DatabaseURL == "" {
		cfg.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			return oops.Code("CONFIG_INVALID").Errorf("storage.path is required for the file backend")
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").
				Errorf("storage.database_url or DATABASE_URL is required for the postgres backend")
		}
	default:
		return oops.Code("CONFIG_INVALID").
			With("backend", c.Storage.Backend).
			Errorf("storage.backend must be %q or %q, got %q", BackendFile, BackendPostgres, c.Storage.Backend)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.With("key", "log.level").Wrap(err)
	}
	if c.Data.Dir == "" {
		return oops.Code("CONFIG_INVALID").Errorf("data.dir is required")
	}
	return nil
}
