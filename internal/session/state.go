// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package session

// State is a controller state.
type State int32

// Controller states.
const (
	StateIdle State = iota
	StateRoleSelection
	StateLoggingIn
	StatePasswordResetRequired
	StateAuthenticated
	StateAdminMenu
	StateExiting
)

var stateNames = [...]string{
	StateIdle:                  "idle",
	StateRoleSelection:         "role_selection",
	StateLoggingIn:             "logging_in",
	StatePasswordResetRequired: "password_reset_required",
	StateAuthenticated:         "authenticated",
	StateAdminMenu:             "admin_menu",
	StateExiting:               "exiting",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
