// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/store"
)

// newMigrateCmd creates the migrate command and its subcommands.
func newMigrateCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL account schema",
		Long: `Apply, roll back or inspect the PostgreSQL schema used by the
postgres storage backend. Without a subcommand, applies all pending migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				return runMigrateUp(cmd, m)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				return runMigrateUp(cmd, m)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long:  `Roll back the given number of migrations, or all of them with --all.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all") //nolint:errcheck // registered below
			if !all && steps < 1 {
				return oops.Code("INVALID_STEPS").Errorf("--steps must be at least 1, or use --all")
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if all {
					cmd.Println("Rolling back all migrations...")
					if err := m.Down(); err != nil {
						return oops.Code("MIGRATION_FAILED").With("operation", "roll back all").Wrap(err)
					}
				} else {
					cmd.Printf("Rolling back %d migration(s)...\n", steps)
					if err := m.Steps(-steps); err != nil {
						return oops.Code("MIGRATION_FAILED").With("operation", "roll back").Wrap(err)
					}
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().Bool("all", false, "roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				return runMigrateStatus(cmd, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Mark the schema as being at VERSION and clear the dirty flag.
Use only to recover from a failed migration after fixing the schema by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "force version").Wrap(err)
				}
				cmd.Printf("Schema version forced to %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator opens a migrator for the configured database and closes it
// after fn.
func withMigrator(cmd *cobra.Command, deps *Deps, fn func(Migrator) error) (err error) {
	deps = withDefaults(deps)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Storage.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("storage.database_url or DATABASE_URL is required")
	}

	m, err := deps.MigratorFactory(cfg.Storage.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = oops.With("operation", "close migrator").Wrap(closeErr)
		}
	}()
	return fn(m)
}

func runMigrateUp(cmd *cobra.Command, m Migrator) error {
	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	version, _, err := m.Version()
	if err != nil {
		return oops.With("operation", "read version").Wrap(err)
	}
	cmd.Printf("Migrations completed successfully (version %d)\n", version)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, m Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return oops.With("operation", "read version").Wrap(err)
	}
	applied, err := m.AppliedMigrations()
	if err != nil {
		return err //nolint:wrapcheck // already carries operation context
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err //nolint:wrapcheck // already carries operation context
	}

	state := "clean"
	if dirty {
		state = "dirty"
	}
	cmd.Printf("Current version: %d (%s)\n", version, state)
	cmd.Printf("Applied: %s\n", formatVersions(applied))
	cmd.Printf("Pending: %s\n", formatVersions(pending))
	return nil
}

func formatVersions(versions []uint) string {
	if len(versions) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(versions))
	for _, v := range versions {
		parts = append(parts, store.MigrationName(v))
	}
	return strings.Join(parts, ", ")
}

// parseForceVersion parses a force target. Parsing stops at the first
// non-digit, so "3abc" is 3.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}

// autoMigrate applies pending migrations before the repository opens.
func autoMigrate(migrators MigratorFactory, databaseURL string, logger *slog.Logger) (err error) {
	m, err := migrators(databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
	}
	version, _, err := m.Version()
	if err != nil {
		logger.Warn("could not read schema version", "error", err)
		return nil
	}
	logger.Info("database schema up to date", "version", version)
	return nil
}
