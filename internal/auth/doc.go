// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth authenticates accounts and manages their credential lifecycle.
//
// # Services
//
//   - Service - login against a role's collection and password changes
//   - AccountManager - provisioning: default admin bootstrap, user and
//     admin creation, removal, and admin password resets
//
// Both services operate on a shared account.Directory. They do not persist
// anything; callers flush the directory through a store.Repository after
// each mutation.
package auth
