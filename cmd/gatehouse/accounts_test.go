// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func seedAccounts(t *testing.T, root string) {
	t.Helper()
	mk := func(role account.Role, name string, pending bool) *account.Account {
		a, err := account.New(role, name, "pw-"+name)
		require.NoError(t, err)
		if !pending {
			a.ClearResetPending()
		}
		return a
	}
	repo, err := store.NewFileRepository(filepath.Join(root, "data", "gatehouse", store.DefaultFileName))
	require.NoError(t, err)
	snap := store.NewSnapshot(
		[]*account.Account{mk(account.RoleUser, "user001", false), mk(account.RoleUser, "user002", true), mk(account.RoleUser, "guest", true)},
		[]*account.Account{mk(account.RoleAdmin, "admin", false)},
		3,
	)
	require.NoError(t, repo.Save(context.Background(), snap))
}

func TestAccountsList(t *testing.T) {
	root := isolate(t)
	seedAccounts(t, root)

	out, err := execute(t, nil, "", "accounts", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "ROLE")
	for _, name := range []string{"admin", "user001", "user002", "guest"} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "pw-", "passwords must never be printed")
}

func TestAccountsList_FilterByRoleAndPattern(t *testing.T) {
	root := isolate(t)
	seedAccounts(t, root)

	out, err := execute(t, nil, "", "accounts", "list", "--role", "user", "--match", "user0*")
	require.NoError(t, err)

	assert.Contains(t, out, "user001")
	assert.Contains(t, out, "user002")
	assert.NotContains(t, out, "guest")
	assert.NotContains(t, out, "admin ")
}

func TestAccountsList_InvalidRole(t *testing.T) {
	isolate(t)

	_, err := execute(t, nil, "", "accounts", "list", "--role", "root")
	errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_ROLE")
}

func TestAccountsList_InvalidPattern(t *testing.T) {
	root := isolate(t)
	seedAccounts(t, root)

	_, err := execute(t, nil, "", "accounts", "list", "--match", "[")
	errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_PATTERN")
}

func TestAccountsStats(t *testing.T) {
	root := isolate(t)
	seedAccounts(t, root)

	out, err := execute(t, nil, "", "accounts", "stats")
	require.NoError(t, err)

	assert.Contains(t, out, "Admins: 1 (0 pending password change)")
	assert.Contains(t, out, "Users:  3 (2 pending password change)")
}

func TestAccounts_NeverAutoMigrate(t *testing.T) {
	root := isolate(t)
	seedAccounts(t, root)

	var opened []config.Config
	deps := &Deps{
		RepositoryFactory: func(ctx context.Context, cfg *config.Config, migrators MigratorFactory, logger *slog.Logger) (store.Repository, error) {
			opened = append(opened, *cfg)
			return openRepository(ctx, &config.Config{Storage: config.StorageConfig{
				Backend: config.BackendFile,
				Path:    filepath.Join(root, "data", "gatehouse", store.DefaultFileName),
			}}, migrators, logger)
		},
	}

	for _, sub := range []string{"list", "stats"} {
		_, err := execute(t, deps, "",
			"accounts", sub, "--backend", "postgres", "--database-url", "postgres://localhost/gatehouse", "--auto-migrate")
		require.NoError(t, err, sub)
	}

	require.Len(t, opened, 2)
	for _, cfg := range opened {
		assert.Equal(t, config.BackendPostgres, cfg.Storage.Backend)
		assert.False(t, cfg.Storage.AutoMigrate)
	}
}
