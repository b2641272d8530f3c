// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/credential"
)

// Mutation operation names recorded in metrics and logs.
const (
	OpBootstrapAdmin     = "bootstrap_admin"
	OpCreateUser         = "create_user"
	OpCreateAdmin        = "create_admin"
	OpRemoveUser         = "remove_user"
	OpRemoveAdmin        = "remove_admin"
	OpResetAdminPassword = "reset_admin_password"
)

// AccountManager provisions and removes accounts.
type AccountManager struct {
	accounts  *account.Directory
	generator *credential.Generator
	options
}

// NewAccountManager creates an AccountManager.
func NewAccountManager(accounts *account.Directory, generator *credential.Generator, opts ...Option) (*AccountManager, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("account directory is required")
	}
	if generator == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("credential generator is required")
	}
	m := &AccountManager{accounts: accounts, generator: generator, options: buildOptions(opts)}
	m.publishCounts()
	return m, nil
}

// Counter returns the generator's next counter value for persistence.
func (m *AccountManager) Counter() int {
	return m.generator.Counter()
}

// EnsureDefaultAdmin creates the bootstrap admin when no admins exist.
// It reports whether an account was created.
func (m *AccountManager) EnsureDefaultAdmin(ctx context.Context) (*account.Account, bool, error) {
	if m.accounts.Count(account.RoleAdmin) > 0 {
		return nil, false, nil
	}

	admin, err := account.New(account.RoleAdmin, credential.DefaultAdminUsername, credential.ProvisionalAdminPassword)
	if err != nil {
		return nil, false, oops.Code("AUTH_BOOTSTRAP_FAILED").Wrap(err)
	}
	if err := m.accounts.Add(admin); err != nil {
		return nil, false, oops.Code("AUTH_BOOTSTRAP_FAILED").Wrap(err)
	}

	m.mutated(ctx, OpBootstrapAdmin, admin)
	return admin, true, nil
}

// CreateUser provisions a user with a generated username and password.
// Generated names that are already live are skipped so the counter keeps
// moving forward without producing a duplicate.
func (m *AccountManager) CreateUser(ctx context.Context) (*account.Account, error) {
	username := m.generator.GenerateUsername()
	for m.accounts.Exists(account.RoleUser, username) {
		m.logger.WarnContext(ctx, "generated username already in use, skipping",
			"username", username)
		username = m.generator.GenerateUsername()
	}

	password, err := m.generator.GeneratePassword()
	if err != nil {
		return nil, oops.Code("AUTH_CREATE_USER_FAILED").
			With("username", username).
			Wrap(err)
	}

	user, err := account.New(account.RoleUser, username, password)
	if err != nil {
		return nil, oops.Code("AUTH_CREATE_USER_FAILED").Wrap(err)
	}
	if err := m.accounts.Add(user); err != nil {
		return nil, oops.Code("AUTH_CREATE_USER_FAILED").Wrap(err)
	}

	m.mutated(ctx, OpCreateUser, user)
	return user, nil
}

// CreateAdmin provisions an admin named admin<N+1> with the provisional password.
func (m *AccountManager) CreateAdmin(ctx context.Context) (*account.Account, error) {
	username := credential.AdminUsername(m.accounts.Count(account.RoleAdmin), func(name string) bool {
		return m.accounts.Exists(account.RoleAdmin, name)
	})

	admin, err := account.New(account.RoleAdmin, username, credential.ProvisionalAdminPassword)
	if err != nil {
		return nil, oops.Code("AUTH_CREATE_ADMIN_FAILED").Wrap(err)
	}
	if err := m.accounts.Add(admin); err != nil {
		return nil, oops.Code("AUTH_CREATE_ADMIN_FAILED").Wrap(err)
	}

	m.mutated(ctx, OpCreateAdmin, admin)
	return admin, nil
}

// RemoveUser deletes a user account and returns it.
func (m *AccountManager) RemoveUser(ctx context.Context, username string) (*account.Account, error) {
	removed, err := m.accounts.Remove(account.RoleUser, username)
	if err != nil {
		return nil, err
	}
	m.mutated(ctx, OpRemoveUser, removed)
	return removed, nil
}

// RemoveAdmin deletes an admin account and returns it. The last admin
// cannot be removed.
func (m *AccountManager) RemoveAdmin(ctx context.Context, username string) (*account.Account, error) {
	removed, err := m.accounts.Remove(account.RoleAdmin, username)
	if err != nil {
		return nil, err
	}
	m.mutated(ctx, OpRemoveAdmin, removed)
	return removed, nil
}

// ResetAdminPassword restores the provisional password on an admin and
// forces a change on its next login.
func (m *AccountManager) ResetAdminPassword(ctx context.Context, username string) (*account.Account, error) {
	admin, ok := m.accounts.Find(account.RoleAdmin, username)
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("role", string(account.RoleAdmin)).
			With("username", username).
			Wrap(account.ErrNotFound)
	}

	admin.SetPassword(credential.ProvisionalAdminPassword)
	admin.RequireReset()

	m.mutated(ctx, OpResetAdminPassword, admin)
	return admin, nil
}

func (m *AccountManager) mutated(ctx context.Context, op string, acct *account.Account) {
	m.metrics.RecordMutation(op)
	m.publishCounts()
	m.logger.InfoContext(ctx, "account mutated",
		"operation", op,
		"role", acct.Role.String(),
		"username", acct.Username)
}

func (m *AccountManager) publishCounts() {
	for _, role := range account.Roles {
		m.metrics.SetAccounts(role.String(), m.accounts.Count(role))
	}
}
