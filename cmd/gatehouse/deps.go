// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/store"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// RepositoryFactory opens the configured account repository.
	// Default: openRepository
	RepositoryFactory func(ctx context.Context, cfg *config.Config, migrators MigratorFactory, logger *slog.Logger) (store.Repository, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory MigratorFactory

	// UIFactory creates the interactive UI on the command's streams.
	// Default: console.New
	UIFactory func(in io.Reader, out io.Writer) session.UI

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, gatherer prometheus.Gatherer, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// MigratorFactory creates a Migrator.
type MigratorFactory func(databaseURL string) (Migrator, error)

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
