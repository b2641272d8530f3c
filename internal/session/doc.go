// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package session drives an interactive identity session.
//
// The Controller owns the account collections and the credential generator
// for the life of the process. It walks the login state machine
//
//	Idle -> RoleSelection -> LoggingIn -> PasswordResetRequired -> Authenticated
//
// where an authenticated admin enters the AdminMenu and an authenticated
// user is handed to the Workspace. Every mutation is flushed through the
// store.Repository as soon as it happens, and once more on exit.
//
// All rendering and input go through the UI interface; the controller never
// touches a terminal directly.
package session
