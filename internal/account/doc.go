// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package account defines the account model shared by administrators and
// regular users, and the in-memory Directory that owns both collections.
//
// # Domain Types
//
// An Account is a tagged variant: the Role field distinguishes administrators
// from regular users and there is no other schema difference. Accounts should
// be created with New, which validates the role and credentials and marks the
// account as requiring a password reset on first login.
//
// Passwords are stored and compared in cleartext. This is preserved
// behavior, not a recommendation.
//
// # Directory
//
// Directory holds the ordered Users and Admins collections. Usernames are
// unique within a role but not across roles: an admin and a user may share
// a username. At least one admin is always retained once one exists.
package account
