// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package store

import (
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
)

// FormatVersion is written into every saved document.
const FormatVersion = "1.0.0"

// formatConstraint selects the document versions this build can read.
const formatConstraint = "^1"

// Document is the on-disk form of a Snapshot. Field order is the
// persisted order: users, admins, then the counter.
type Document struct {
	Format  string          `json:"format" yaml:"format" jsonschema:"description=Document format version (semver)"`
	SavedAt time.Time       `json:"saved_at" yaml:"saved_at"`
	Users   []AccountRecord `json:"users" yaml:"users"`
	Admins  []AccountRecord `json:"admins" yaml:"admins"`
	Counter int             `json:"counter" yaml:"counter" jsonschema:"minimum=1,description=Next generated username number"`
}

// AccountRecord is one persisted account. Its role is implied by the list
// it appears in.
type AccountRecord struct {
	ID                   string    `json:"id" yaml:"id" jsonschema:"pattern=^[0-9A-HJKMNP-TV-Z]{26}$"`
	Username             string    `json:"username" yaml:"username" jsonschema:"minLength=1"`
	Password             string    `json:"password" yaml:"password" jsonschema:"minLength=1"`
	PasswordResetPending bool      `json:"password_reset_pending" yaml:"password_reset_pending"`
	CreatedAt            time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" yaml:"updated_at"`
}

func newDocument(snap *Snapshot, savedAt time.Time) *Document {
	return &Document{
		Format:  FormatVersion,
		SavedAt: savedAt.UTC(),
		Users:   toRecords(snap.Users),
		Admins:  toRecords(snap.Admins),
		Counter: snap.Counter,
	}
}

func toRecords(accounts []*account.Account) []AccountRecord {
	records := make([]AccountRecord, len(accounts))
	for i, a := range accounts {
		records[i] = AccountRecord{
			ID:                   a.ID.String(),
			Username:             a.Username,
			Password:             a.Password,
			PasswordResetPending: a.PasswordResetPending,
			CreatedAt:            a.CreatedAt.UTC(),
			UpdatedAt:            a.UpdatedAt.UTC(),
		}
	}
	return records
}

func (d *Document) snapshot() (*Snapshot, error) {
	users, err := fromRecords(d.Users, account.RoleUser)
	if err != nil {
		return nil, err
	}
	admins, err := fromRecords(d.Admins, account.RoleAdmin)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Users: users, Admins: admins, Counter: d.Counter}
	if err := snap.validateLoaded(); err != nil {
		return nil, err
	}
	return snap, nil
}

func fromRecords(records []AccountRecord, role account.Role) ([]*account.Account, error) {
	accounts := make([]*account.Account, 0, len(records))
	for _, r := range records {
		id, err := ulid.ParseStrict(r.ID)
		if err != nil {
			return nil, oops.Code("STORE_CORRUPT").
				With("role", string(role)).
				With("username", r.Username).
				Wrap(err)
		}
		accounts = append(accounts, &account.Account{
			ID:                   id,
			Role:                 role,
			Username:             r.Username,
			Password:             r.Password,
			PasswordResetPending: r.PasswordResetPending,
			CreatedAt:            r.CreatedAt,
			UpdatedAt:            r.UpdatedAt,
		})
	}
	return accounts, nil
}

// CheckFormat reports whether a document written as version can be read.
func CheckFormat(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return oops.Code("STORE_UNSUPPORTED_FORMAT").
			With("format", version).
			Wrap(err)
	}
	c, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		return oops.Code("STORE_UNSUPPORTED_FORMAT").Wrap(err)
	}
	if !c.Check(v) {
		return oops.Code("STORE_UNSUPPORTED_FORMAT").
			With("format", version).
			With("supported", formatConstraint).
			Errorf("document format %s is not supported (want %s)", version, formatConstraint)
	}
	return nil
}
