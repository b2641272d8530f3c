// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package store

import (
	"context"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/credential"
)

// InitialCounter is the counter of a store that has never been saved.
const InitialCounter = credential.FirstCounter

// Repository loads and saves account snapshots.
type Repository interface {
	// Load returns the last saved snapshot, or DefaultSnapshot when nothing
	// has been saved yet. Unreadable state is an error, never an empty result.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the stored snapshot. Either the whole snapshot is
	// stored or the previous one stays intact.
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Snapshot is a point-in-time copy of the account collections and counter.
type Snapshot struct {
	Users   []*account.Account
	Admins  []*account.Account
	Counter int
}

// NewSnapshot deep-copies the collections so the snapshot never aliases
// live accounts.
func NewSnapshot(users, admins []*account.Account, counter int) *Snapshot {
	return &Snapshot{
		Users:   cloneAll(users, account.RoleUser),
		Admins:  cloneAll(admins, account.RoleAdmin),
		Counter: counter,
	}
}

// SnapshotOf captures dir and counter.
func SnapshotOf(dir *account.Directory, counter int) *Snapshot {
	return NewSnapshot(dir.Accounts(account.RoleUser), dir.Accounts(account.RoleAdmin), counter)
}

// DefaultSnapshot is the state of a fresh installation.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		Users:   []*account.Account{},
		Admins:  []*account.Account{},
		Counter: InitialCounter,
	}
}

// Validate checks the invariants every stored snapshot must hold.
func (s *Snapshot) Validate() error {
	if err := s.checkInvariants(); err != nil {
		return oops.Code("STORE_INVALID_SNAPSHOT").Wrap(err)
	}
	return nil
}

// validateLoaded reports a stored snapshot that breaks the invariants as
// corrupt.
func (s *Snapshot) validateLoaded() error {
	if err := s.checkInvariants(); err != nil {
		return oops.Code("STORE_CORRUPT").Wrap(err)
	}
	return nil
}

// checkInvariants returns an uncoded error so callers choose the code.
func (s *Snapshot) checkInvariants() error {
	if s.Counter < InitialCounter {
		return oops.With("counter", s.Counter).
			Errorf("counter must be at least %d", InitialCounter)
	}
	for _, set := range []struct {
		role     account.Role
		accounts []*account.Account
	}{
		{account.RoleUser, s.Users},
		{account.RoleAdmin, s.Admins},
	} {
		seen := make(map[string]struct{}, len(set.accounts))
		for i, a := range set.accounts {
			if a == nil || a.Username == "" {
				return oops.With("role", string(set.role)).
					With("index", i).
					Errorf("%s %d has no username", set.role, i)
			}
			if _, dup := seen[a.Username]; dup {
				return oops.With("role", string(set.role)).
					With("username", a.Username).
					Errorf("duplicate %s %q", set.role, a.Username)
			}
			seen[a.Username] = struct{}{}
		}
	}
	return nil
}

func cloneAll(src []*account.Account, role account.Role) []*account.Account {
	out := make([]*account.Account, 0, len(src))
	for _, a := range src {
		if a == nil {
			continue
		}
		c := a.Clone()
		c.Role = role
		out = append(out, c)
	}
	return out
}
