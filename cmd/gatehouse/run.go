// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/console"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

const serviceName = "gatehouse"

// runSession runs one interactive session until the user exits or the
// process is interrupted.
func runSession(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *Deps) error {
	deps = withDefaults(deps)
	if ctx == nil {
		ctx = context.Background()
	}

	logger, closeLog, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return oops.With("operation", "set up logging").Wrap(err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	repo, err := deps.RepositoryFactory(ctx, cfg, deps.MigratorFactory, logger)
	if err != nil {
		errutil.LogError(ctx, logger, "failed to open account store", err)
		return oops.With("operation", "open account store").Wrap(err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("error closing account store", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, registry, ready.Load)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, logger, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
	}

	ui := deps.UIFactory(cmd.InOrStdin(), cmd.OutOrStdout())
	home, err := console.NewHome(ui, cfg.Data.Dir, logger)
	if err != nil {
		return err
	}

	controller, err := session.NewController(ctx, session.Options{
		Repository: repo,
		UI:         ui,
		Workspace:  home,
		Metrics:    metrics,
		Logger:     logger,
		Tracer:     otel.Tracer("github.com/gatehouse/gatehouse/cmd/gatehouse"),
	})
	if err != nil {
		errutil.LogError(ctx, logger, "failed to start session", err)
		return oops.With("operation", "start session").Wrap(err)
	}
	ready.Store(true)
	logger.Info("session started", "backend", cfg.Storage.Backend)

	done := make(chan error, 1)
	go func() { done <- controller.Run(ctx) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		// A blocked prompt cannot be interrupted; save and leave it behind.
		logger.Info("interrupted, saving accounts")
		cmd.Println()
		err = controller.Save(context.WithoutCancel(ctx))
	}
	if err != nil {
		return oops.With("operation", "run session").Wrap(err)
	}
	return nil
}

// setupLogging builds the process logger. Interactive sessions log to a
// file so records do not interleave with prompts.
func setupLogging(cfg *config.Config, stderr io.Writer) (*slog.Logger, func(), error) {
	opts := logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}

	if cfg.Log.File == config.StderrLog || cfg.Log.File == "" {
		logger, err := logging.Setup(opts, stderr)
		return logger, func() {}, err
	}

	f, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.Setup(opts, f)
	if err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return nil, nil, err
	}
	return logger, func() { _ = f.Close() }, nil //nolint:errcheck // log file close at exit
}

// monitorServerErrors watches a server's error channel and cancels the
// context on error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, logger *slog.Logger, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
