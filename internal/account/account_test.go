// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want account.Role
	}{
		{"admin", account.RoleAdmin},
		{"ADMIN", account.RoleAdmin},
		{" user ", account.RoleUser},
		{"User", account.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := account.ParseRole(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := account.ParseRole("root")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_ROLE")
	})
}

func TestNew(t *testing.T) {
	t.Run("creates account with reset pending", func(t *testing.T) {
		a, err := account.New(account.RoleUser, "user001", "secret")
		require.NoError(t, err)

		assert.NotEqual(t, ulid.ULID{}, a.ID)
		assert.Equal(t, account.RoleUser, a.Role)
		assert.Equal(t, "user001", a.Username)
		assert.Equal(t, "secret", a.Password)
		assert.True(t, a.PasswordResetPending)
		assert.False(t, a.CreatedAt.IsZero())
		assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	})

	t.Run("rejects invalid role", func(t *testing.T) {
		a, err := account.New(account.Role("guest"), "bob", "pw")
		assert.Nil(t, a)
		errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_ROLE")
	})

	t.Run("rejects empty username", func(t *testing.T) {
		a, err := account.New(account.RoleAdmin, "   ", "pw")
		assert.Nil(t, a)
		errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_USERNAME")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		a, err := account.New(account.RoleAdmin, "admin", "")
		assert.Nil(t, a)
		errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_PASSWORD")
	})
}

func TestAccount_Authenticate(t *testing.T) {
	a, err := account.New(account.RoleUser, "user001", "Abc12345")
	require.NoError(t, err)

	assert.True(t, a.Authenticate("Abc12345"))
	assert.False(t, a.Authenticate("abc12345"))
	assert.False(t, a.Authenticate("Abc1234"))
	assert.False(t, a.Authenticate(""))
}

func TestAccount_SetPasswordKeepsResetFlag(t *testing.T) {
	a, err := account.New(account.RoleUser, "user001", "old")
	require.NoError(t, err)

	a.SetPassword("new")
	assert.Equal(t, "new", a.Password)
	assert.True(t, a.PasswordResetPending, "SetPassword must not clear the reset flag")

	a.ClearResetPending()
	assert.False(t, a.PasswordResetPending)

	a.RequireReset()
	assert.True(t, a.PasswordResetPending)
}

func TestAccount_CloneAndView(t *testing.T) {
	a, err := account.New(account.RoleAdmin, "admin", "admin123")
	require.NoError(t, err)

	c := a.Clone()
	c.Password = "changed"
	assert.Equal(t, "admin123", a.Password)

	v := a.View()
	assert.Equal(t, a.ID, v.ID)
	assert.Equal(t, account.RoleAdmin, v.Role)
	assert.Equal(t, "admin", v.Username)
	assert.True(t, v.PasswordResetPending)
}
