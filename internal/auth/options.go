// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"log/slog"

	"github.com/gatehouse/gatehouse/internal/observability"
)

type options struct {
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures Service and AccountManager.
type Option func(*options)

// WithMetrics records outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
