// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// ErrInvalidCredentials is returned for any failed login. Unknown usernames
// and wrong passwords are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid username or password")
