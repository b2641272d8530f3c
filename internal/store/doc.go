// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package store persists account snapshots.
//
// A Snapshot is the full Users and Admins collections plus the credential
// generator counter, always written and read back as one unit.
// FileRepository keeps it in a single YAML document replaced atomically on
// every save; PostgresRepository keeps it in two tables written in one
// transaction.
package store
