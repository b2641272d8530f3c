// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role tags an account as an administrator or a regular user.
type Role string

// Known roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleUser}

// ParseRole converts a role name (case-insensitive) into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", oops.Code("ACCOUNT_INVALID_ROLE").
			With("role", s).
			Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// Account is a User or Admin credential record.
type Account struct {
	ID                   ulid.ULID
	Role                 Role
	Username             string
	Password             string
	PasswordResetPending bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// New creates an account with the given role and credentials.
// The new account always has PasswordResetPending set.
func New(role Role, username, password string) (*Account, error) {
	if !role.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_ROLE").
			With("role", string(role)).
			Errorf("unknown role %q", role)
	}
	if strings.TrimSpace(username) == "" {
		return nil, oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if password == "" {
		return nil, oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("username", username).
			Errorf("password cannot be empty")
	}

	now := time.Now().UTC()
	return &Account{
		ID:                   ulid.Make(),
		Role:                 role,
		Username:             username,
		Password:             password,
		PasswordResetPending: true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// Authenticate reports whether candidate equals the stored password.
// An empty candidate never matches.
func (a *Account) Authenticate(candidate string) bool {
	if candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.Password), []byte(candidate)) == 1
}

// SetPassword overwrites the stored password. It does not clear the reset flag.
func (a *Account) SetPassword(password string) {
	a.Password = password
	a.UpdatedAt = time.Now().UTC()
}

// ClearResetPending marks the mandatory password change as done.
func (a *Account) ClearResetPending() {
	a.PasswordResetPending = false
	a.UpdatedAt = time.Now().UTC()
}

// RequireReset forces a password change on the next login.
func (a *Account) RequireReset() {
	a.PasswordResetPending = true
	a.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy that shares no state with a.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

// View is the read-only projection of an account handed to feature modules.
type View struct {
	ID                   ulid.ULID
	Role                 Role
	Username             string
	PasswordResetPending bool
}

// View returns a read-only snapshot of the account.
func (a *Account) View() View {
	return View{
		ID:                   a.ID,
		Role:                 a.Role,
		Username:             a.Username,
		PasswordResetPending: a.PasswordResetPending,
	}
}
