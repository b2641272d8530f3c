// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package session

import (
	"fmt"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Messages shown through UI.Notify.
const (
	MsgCredentialsRequired     = "Username and password are required."
	MsgInvalidCredentials      = "Invalid username or password."
	MsgPasswordChangeRequired  = "You must change your password before continuing."
	MsgPasswordChangeCancelled = "Password change cancelled. You must change your password to log in."
	MsgPasswordChanged         = "Password changed successfully."
	MsgPasswordEmpty           = "Password cannot be empty."
	MsgPasswordMismatch        = "Passwords do not match."
	MsgSaveFailed              = "Warning: changes could not be saved: "
	MsgNoUsers                 = "There are no users."
	MsgNoAdminsToManage        = "There are no other admins."
	MsgLastAdmin               = "Cannot remove the last admin."
)

func passwordRejection(err error) string {
	switch errutil.Code(err) {
	case "AUTH_PASSWORD_EMPTY":
		return MsgPasswordEmpty
	case "AUTH_PASSWORD_MISMATCH":
		return MsgPasswordMismatch
	case "AUTH_PASSWORD_TOO_SHORT":
		return fmt.Sprintf("Password must be at least %d characters.", auth.MinPasswordLength)
	default:
		return "Password change failed: " + err.Error()
	}
}
