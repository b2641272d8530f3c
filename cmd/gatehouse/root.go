// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/console"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/xdg"
)

// NewRootCmd creates the root command for the Gatehouse CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = withDefaults(deps)

	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Gatehouse - account and credential console",
		Long: `Gatehouse runs an interactive console where admins provision user
accounts with generated credentials and users log in to their workspace.
Every account must change its initial password before first use.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), cfg, cmd, deps)
		},
	}

	cmd.PersistentFlags().String("config", "", "config file path (default: XDG_CONFIG_HOME/gatehouse/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newAccountsCmd(deps))

	return cmd
}

func withDefaults(deps *Deps) *Deps {
	if deps == nil {
		deps = &Deps{}
	}
	if deps.RepositoryFactory == nil {
		deps.RepositoryFactory = openRepository
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if deps.UIFactory == nil {
		deps.UIFactory = func(in io.Reader, out io.Writer) session.UI {
			return console.New(in, out)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, gatherer prometheus.Gatherer, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, gatherer, readinessChecker)
		}
	}
	return deps
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		//nolint:wrapcheck // flag lookup on a registered flag
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}

// openRepository opens the configured backend. The postgres backend is
// migrated first when auto-migrate is on.
func openRepository(ctx context.Context, cfg *config.Config, migrators MigratorFactory, logger *slog.Logger) (store.Repository, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		if cfg.Storage.AutoMigrate {
			if err := autoMigrate(migrators, cfg.Storage.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}
		repo, err := store.OpenPostgres(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Storage.Path)); err != nil {
			return nil, err
		}
		repo, err := store.NewFileRepository(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}
