// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomeCanceled = "canceled"
)

// Metrics records identity lifecycle events.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	LoginAttempts    *prometheus.CounterVec
	PasswordChanges  *prometheus.CounterVec
	AccountMutations *prometheus.CounterVec
	RepositorySaves  *prometheus.CounterVec
	Accounts         *prometheus.GaugeVec
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// NewMetrics creates and registers the gatehouse metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_login_attempts_total",
				Help: "Total number of login attempts by role and outcome",
			},
			[]string{"role", "outcome"},
		),
		PasswordChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_password_changes_total",
				Help: "Total number of password change attempts by outcome",
			},
			[]string{"outcome"},
		),
		AccountMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_account_mutations_total",
				Help: "Total number of account mutations by operation",
			},
			[]string{"operation"},
		),
		RepositorySaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_repository_saves_total",
				Help: "Total number of repository saves by outcome",
			},
			[]string{"outcome"},
		),
		Accounts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gatehouse_accounts",
				Help: "Number of accounts by role",
			},
			[]string{"role"},
		),
	}

	reg.MustRegister(m.LoginAttempts)
	reg.MustRegister(m.PasswordChanges)
	reg.MustRegister(m.AccountMutations)
	reg.MustRegister(m.RepositorySaves)
	reg.MustRegister(m.Accounts)

	return m
}

// RecordLogin counts one login attempt.
func (m *Metrics) RecordLogin(role, outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(role, outcome).Inc()
}

// RecordPasswordChange counts one password change attempt.
func (m *Metrics) RecordPasswordChange(outcome string) {
	if m == nil {
		return
	}
	m.PasswordChanges.WithLabelValues(outcome).Inc()
}

// RecordMutation counts one account mutation such as "create_user".
func (m *Metrics) RecordMutation(operation string) {
	if m == nil {
		return
	}
	m.AccountMutations.WithLabelValues(operation).Inc()
}

// RecordSave counts one repository save.
func (m *Metrics) RecordSave(outcome string) {
	if m == nil {
		return
	}
	m.RepositorySaves.WithLabelValues(outcome).Inc()
}

// SetAccounts publishes the current account count for role.
func (m *Metrics) SetAccounts(role string, n int) {
	if m == nil {
		return
	}
	m.Accounts.WithLabelValues(role).Set(float64(n))
}
