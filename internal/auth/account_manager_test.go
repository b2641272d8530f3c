// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/credential"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

var generatedPassword = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)

func newManager(t *testing.T, dir *account.Directory, counter int, opts ...auth.Option) *auth.AccountManager {
	t.Helper()
	gen, err := credential.NewGenerator(counter)
	require.NoError(t, err)
	m, err := auth.NewAccountManager(dir, gen, opts...)
	require.NoError(t, err)
	return m
}

func TestNewAccountManager_NilDependencies(t *testing.T) {
	gen, err := credential.NewGenerator(credential.FirstCounter)
	require.NoError(t, err)

	_, err = auth.NewAccountManager(nil, gen)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CONFIG")

	_, err = auth.NewAccountManager(account.NewDirectory(nil, nil), nil)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CONFIG")
}

func TestAccountManager_EnsureDefaultAdmin(t *testing.T) {
	ctx := context.Background()
	dir := account.NewDirectory(nil, nil)
	m := newManager(t, dir, credential.FirstCounter)

	admin, created, err := m.EnsureDefaultAdmin(ctx)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, "admin", admin.Username)
	assert.Equal(t, "admin123", admin.Password)
	assert.True(t, admin.PasswordResetPending)
	assert.Equal(t, account.RoleAdmin, admin.Role)

	again, created, err := m.EnsureDefaultAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, again)
	assert.Equal(t, 1, dir.Count(account.RoleAdmin))
}

func TestAccountManager_CreateUser(t *testing.T) {
	ctx := context.Background()
	dir := account.NewDirectory(nil, nil)
	m := newManager(t, dir, credential.FirstCounter)

	first, err := m.CreateUser(ctx)
	require.NoError(t, err)
	second, err := m.CreateUser(ctx)
	require.NoError(t, err)

	assert.Equal(t, "user001", first.Username)
	assert.Equal(t, "user002", second.Username)
	assert.Regexp(t, generatedPassword, first.Password)
	assert.True(t, first.PasswordResetPending)
	assert.Equal(t, 3, m.Counter())
	assert.Equal(t, []string{"user001", "user002"}, dir.Usernames(account.RoleUser))
}

func TestAccountManager_CreateUser_NeverReusesAfterRemoval(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, account.NewDirectory(nil, nil), credential.FirstCounter)

	first, err := m.CreateUser(ctx)
	require.NoError(t, err)
	_, err = m.RemoveUser(ctx, first.Username)
	require.NoError(t, err)

	next, err := m.CreateUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user002", next.Username)
}

func TestAccountManager_CreateUser_SkipsLiveNames(t *testing.T) {
	ctx := context.Background()
	dir := account.NewDirectory(
		[]*account.Account{mustAccount(t, account.RoleUser, "user001", "Ab3dEf7h")},
		nil,
	)
	m := newManager(t, dir, credential.FirstCounter)

	created, err := m.CreateUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user002", created.Username)
	assert.Equal(t, 3, m.Counter())
}

func TestAccountManager_CreateAdmin(t *testing.T) {
	ctx := context.Background()
	dir := account.NewDirectory(nil, []*account.Account{mustAccount(t, account.RoleAdmin, "admin", "secret")})
	m := newManager(t, dir, credential.FirstCounter)

	admin, err := m.CreateAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin2", admin.Username)
	assert.Equal(t, "admin123", admin.Password)
	assert.True(t, admin.PasswordResetPending)

	third, err := m.CreateAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin3", third.Username)

	// The shared user counter is untouched by admin provisioning.
	assert.Equal(t, credential.FirstCounter, m.Counter())
}

func TestAccountManager_CreateAdmin_SkipsTakenName(t *testing.T) {
	ctx := context.Background()
	dir := account.NewDirectory(nil, []*account.Account{
		mustAccount(t, account.RoleAdmin, "admin", "secret"),
		mustAccount(t, account.RoleAdmin, "admin2", "secret"),
		mustAccount(t, account.RoleAdmin, "admin3", "secret"),
	})
	m := newManager(t, dir, credential.FirstCounter)

	_, err := m.RemoveAdmin(ctx, "admin2")
	require.NoError(t, err)

	admin, err := m.CreateAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin4", admin.Username)
}

func TestAccountManager_RemoveAdmin_LastAdminRefused(t *testing.T) {
	ctx := context.Background()
	dir := account.NewDirectory(nil, []*account.Account{mustAccount(t, account.RoleAdmin, "admin", "secret")})
	m := newManager(t, dir, credential.FirstCounter)

	_, err := m.RemoveAdmin(ctx, "admin")
	require.Error(t, err)
	assert.ErrorIs(t, err, account.ErrLastAdmin)
	assert.Equal(t, 1, dir.Count(account.RoleAdmin))
}

func TestAccountManager_RemoveUser_NotFound(t *testing.T) {
	m := newManager(t, account.NewDirectory(nil, nil), credential.FirstCounter)

	_, err := m.RemoveUser(context.Background(), "user404")
	assert.ErrorIs(t, err, account.ErrNotFound)
	errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
}

func TestAccountManager_ResetAdminPassword(t *testing.T) {
	ctx := context.Background()
	admin := mustAccount(t, account.RoleAdmin, "admin", "secret")
	admin.ClearResetPending()
	m := newManager(t, account.NewDirectory(nil, []*account.Account{admin}), credential.FirstCounter)

	reset, err := m.ResetAdminPassword(ctx, "admin")
	require.NoError(t, err)
	assert.Same(t, admin, reset)
	assert.Equal(t, credential.ProvisionalAdminPassword, admin.Password)
	assert.True(t, admin.PasswordResetPending)

	_, err = m.ResetAdminPassword(ctx, "ghost")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestAccountManager_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	m := newManager(t, account.NewDirectory(nil, nil), credential.FirstCounter, auth.WithMetrics(metrics))

	_, _, err := m.EnsureDefaultAdmin(ctx)
	require.NoError(t, err)
	_, err = m.CreateUser(ctx)
	require.NoError(t, err)
	_, err = m.CreateUser(ctx)
	require.NoError(t, err)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.AccountMutations.WithLabelValues(auth.OpCreateUser)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AccountMutations.WithLabelValues(auth.OpBootstrapAdmin)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Accounts.WithLabelValues("user")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Accounts.WithLabelValues("admin")), 0)
}
