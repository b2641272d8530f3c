// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package console implements the session UI on a line-oriented terminal and
// the home workspace that authenticated users enter.
package console
