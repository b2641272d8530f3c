// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package session

import (
	"context"

	"github.com/gatehouse/gatehouse/internal/account"
)

// Credentials is a username and password typed at a login prompt.
type Credentials struct {
	Username string
	Password string
}

// PasswordChange is a new password and its confirmation.
type PasswordChange struct {
	New     string
	Confirm string
}

// UI is the interactive boundary. A false ok result means the user
// cancelled the prompt.
type UI interface {
	PromptCredentials(role account.Role) (creds Credentials, ok bool)
	PromptNewPassword(username string) (change PasswordChange, ok bool)
	Notify(message string)
	Confirm(message string) bool
	SelectFromList(title string, items []string) (item string, ok bool)
}

// Workspace hosts the features available to an authenticated user.
// It receives a read-only view so it cannot alter the username or the
// reset flag.
type Workspace interface {
	// Enter blocks until the user logs out.
	Enter(ctx context.Context, user account.View) error
	// Purge deletes the feature data stored under username.
	Purge(ctx context.Context, username string) error
}
