// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account

import "errors"

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("account not found")

// ErrLastAdmin is returned when removing an account would leave no admins.
var ErrLastAdmin = errors.New("cannot remove the last admin")
