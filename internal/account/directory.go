// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account

import (
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Directory owns the Users and Admins collections.
// Collection order is insertion order and is preserved across saves.
type Directory struct {
	mu     sync.RWMutex
	users  []*Account
	admins []*Account
}

// NewDirectory creates a Directory over the given collections.
// Accounts are re-tagged with the role of the collection they arrive in.
func NewDirectory(users, admins []*Account) *Directory {
	d := &Directory{
		users:  make([]*Account, 0, len(users)),
		admins: make([]*Account, 0, len(admins)),
	}
	for _, u := range users {
		u.Role = RoleUser
		d.users = append(d.users, u)
	}
	for _, a := range admins {
		a.Role = RoleAdmin
		d.admins = append(d.admins, a)
	}
	return d
}

// collection returns a pointer to the slice for role. Callers must hold mu.
func (d *Directory) collection(role Role) (*[]*Account, error) {
	switch role {
	case RoleUser:
		return &d.users, nil
	case RoleAdmin:
		return &d.admins, nil
	default:
		return nil, oops.Code("ACCOUNT_INVALID_ROLE").
			With("role", string(role)).
			Errorf("unknown role %q", role)
	}
}

// Add appends an account to the collection of its role.
func (d *Directory) Add(a *Account) error {
	if a == nil {
		return oops.Code("ACCOUNT_REQUIRED").Errorf("account is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	list, err := d.collection(a.Role)
	if err != nil {
		return err
	}
	for _, existing := range *list {
		if existing.Username == a.Username {
			return oops.Code("ACCOUNT_DUPLICATE_USERNAME").
				With("role", string(a.Role)).
				With("username", a.Username).
				Errorf("%s %q already exists", a.Role, a.Username)
		}
	}
	*list = append(*list, a)
	return nil
}

// Find returns the account with the exact username in role's collection.
func (d *Directory) Find(role Role, username string) (*Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list, err := d.collection(role)
	if err != nil {
		return nil, false
	}
	for _, a := range *list {
		if a.Username == username {
			return a, true
		}
	}
	return nil, false
}

// Exists reports whether username is taken within role's collection.
func (d *Directory) Exists(role Role, username string) bool {
	_, ok := d.Find(role, username)
	return ok
}

// Remove deletes the account with username from role's collection and returns it.
// Removing the only remaining admin is refused with ErrLastAdmin.
func (d *Directory) Remove(role Role, username string) (*Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list, err := d.collection(role)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, a := range *list {
		if a.Username == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("role", string(role)).
			With("username", username).
			Wrap(ErrNotFound)
	}
	if role == RoleAdmin && len(*list) <= 1 {
		return nil, oops.Code("ACCOUNT_LAST_ADMIN").
			With("username", username).
			Wrap(ErrLastAdmin)
	}

	removed := (*list)[idx]
	*list = append((*list)[:idx], (*list)[idx+1:]...)
	return removed, nil
}

// Accounts returns the accounts of role in insertion order.
// The returned slice is a copy; the accounts are not.
func (d *Directory) Accounts(role Role) []*Account {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list, err := d.collection(role)
	if err != nil {
		return nil
	}
	out := make([]*Account, len(*list))
	copy(out, *list)
	return out
}

// Usernames returns the usernames of role in insertion order.
func (d *Directory) Usernames(role Role) []string {
	accounts := d.Accounts(role)
	names := make([]string, len(accounts))
	for i, a := range accounts {
		names[i] = a.Username
	}
	return names
}

// Count returns the number of accounts in role's collection.
func (d *Directory) Count(role Role) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list, err := d.collection(role)
	if err != nil {
		return 0
	}
	return len(*list)
}

// Match returns the accounts of role whose username matches a glob pattern.
// An empty pattern matches everything.
func (d *Directory) Match(role Role, pattern string) ([]*Account, error) {
	if !role.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_ROLE").
			With("role", string(role)).
			Errorf("unknown role %q", role)
	}
	accounts := d.Accounts(role)
	if pattern == "" {
		return accounts, nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_PATTERN").
			With("pattern", pattern).
			Wrap(err)
	}

	matched := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		if g.Match(a.Username) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

// Stats summarizes both collections.
type Stats struct {
	Users              int
	Admins             int
	UsersPendingReset  int
	AdminsPendingReset int
}

// Stats counts accounts and pending resets per role.
func (d *Directory) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Stats{Users: len(d.users), Admins: len(d.admins)}
	for _, u := range d.users {
		if u.PasswordResetPending {
			s.UsersPendingReset++
		}
	}
	for _, a := range d.admins {
		if a.PasswordResetPending {
			s.AdminsPendingReset++
		}
	}
	return s
}
