// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/observability"
)

// MinPasswordLength is the shortest password ChangePassword accepts.
const MinPasswordLength = 3

// Service provides authentication operations.
type Service struct {
	accounts *account.Directory
	options
}

// NewService creates a new Service over accounts.
func NewService(accounts *account.Directory, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("account directory is required")
	}
	return &Service{accounts: accounts, options: buildOptions(opts)}, nil
}

// Authenticate returns the account in role's collection whose username is
// exactly username and whose password is exactly password.
// Empty credentials fail without searching.
func (s *Service) Authenticate(ctx context.Context, username, password string, role account.Role) (*account.Account, error) {
	if !role.Valid() {
		return nil, oops.Code("AUTH_INVALID_ROLE").
			With("role", string(role)).
			Errorf("unknown role %q", role)
	}

	if username == "" || password == "" {
		s.metrics.RecordLogin(role.String(), observability.OutcomeRejected)
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").
			With("role", string(role)).
			Wrap(ErrInvalidCredentials)
	}

	acct, ok := s.accounts.Find(role, username)
	if !ok || !acct.Authenticate(password) {
		s.metrics.RecordLogin(role.String(), observability.OutcomeFailure)
		s.logger.DebugContext(ctx, "login failed",
			"role", role.String(),
			"username", username)
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").
			With("role", string(role)).
			Wrap(ErrInvalidCredentials)
	}

	s.metrics.RecordLogin(role.String(), observability.OutcomeSuccess)
	s.logger.DebugContext(ctx, "login succeeded",
		"role", role.String(),
		"username", username,
		"reset_pending", acct.PasswordResetPending)
	return acct, nil
}

// ChangePassword sets acct's password to newPassword and clears the reset
// flag. The account is left untouched unless every check passes.
func (s *Service) ChangePassword(ctx context.Context, acct *account.Account, newPassword, confirmPassword string) error {
	if err := validatePassword(acct, newPassword, confirmPassword); err != nil {
		s.metrics.RecordPasswordChange(observability.OutcomeRejected)
		return err
	}

	acct.SetPassword(newPassword)
	acct.ClearResetPending()

	s.metrics.RecordPasswordChange(observability.OutcomeSuccess)
	s.logger.InfoContext(ctx, "password changed",
		"role", acct.Role.String(),
		"username", acct.Username)
	return nil
}

func validatePassword(acct *account.Account, newPassword, confirmPassword string) error {
	if acct == nil {
		return oops.Code("AUTH_ACCOUNT_REQUIRED").Errorf("account is required")
	}
	if newPassword == "" {
		return oops.Code("AUTH_PASSWORD_EMPTY").
			With("username", acct.Username).
			Errorf("password cannot be empty")
	}
	if newPassword != confirmPassword {
		return oops.Code("AUTH_PASSWORD_MISMATCH").
			With("username", acct.Username).
			Errorf("passwords do not match")
	}
	if len(newPassword) < MinPasswordLength {
		return oops.Code("AUTH_PASSWORD_TOO_SHORT").
			With("username", acct.Username).
			With("min_length", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
