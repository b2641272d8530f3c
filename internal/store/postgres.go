// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/gatehouse/gatehouse/internal/account"
)

// poolIface is the subset of *pgxpool.Pool used by PostgresRepository.
// pgxmock.PgxPoolIface satisfies it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// ConnectRetries bounds how many times OpenPostgres re-pings an
// unreachable database.
const ConnectRetries = 5

// PostgresRepository stores the snapshot in the accounts and
// credential_state tables.
type PostgresRepository struct {
	pool poolIface
}

// NewPostgresRepository creates a repository over an existing pool.
func NewPostgresRepository(pool poolIface) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// OpenPostgres connects to databaseURL, retrying the initial ping with
// exponential backoff.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(ConnectRetries, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "ping").
			With("retries", ConnectRetries).
			Wrap(err)
	}

	return NewPostgresRepository(pool), nil
}

// Load reads both tables inside one read-only repeatable-read transaction.
func (r *PostgresRepository) Load(ctx context.Context) (*Snapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, oops.Code("STORE_LOAD_FAILED").With("operation", "begin transaction").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }() //nolint:errcheck // read-only; commit below on success

	snap := DefaultSnapshot()

	err = tx.QueryRow(ctx, `SELECT counter FROM credential_state WHERE id = 1`).Scan(&snap.Counter)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("STORE_LOAD_FAILED").With("operation", "read counter").Wrap(err)
	}

	rows, err := tx.Query(ctx,
		`SELECT id, role, username, password, password_reset_pending, created_at, updated_at
		 FROM accounts ORDER BY role, position`)
	if err != nil {
		return nil, oops.Code("STORE_LOAD_FAILED").With("operation", "query accounts").Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idStr, roleStr string
			a              account.Account
		)
		if err := rows.Scan(&idStr, &roleStr, &a.Username, &a.Password,
			&a.PasswordResetPending, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, oops.Code("STORE_LOAD_FAILED").With("operation", "scan account row").Wrap(err)
		}
		a.ID, err = ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("STORE_CORRUPT").With("id", idStr).Wrap(err)
		}
		a.Role = account.Role(roleStr)
		if !a.Role.Valid() {
			return nil, oops.Code("STORE_CORRUPT").
				With("id", idStr).
				With("role", roleStr).
				Errorf("unknown role %q", roleStr)
		}
		if a.Role == account.RoleAdmin {
			snap.Admins = append(snap.Admins, &a)
		} else {
			snap.Users = append(snap.Users, &a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_LOAD_FAILED").With("operation", "iterate accounts").Wrap(err)
	}

	if err := snap.validateLoaded(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, oops.Code("STORE_LOAD_FAILED").With("operation", "commit").Wrap(err)
	}
	return snap, nil
}

// Save replaces every stored account and the counter in one transaction.
func (r *PostgresRepository) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return oops.Code("STORE_INVALID_SNAPSHOT").Errorf("snapshot is required")
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("STORE_SAVE_FAILED").With("operation", "begin transaction").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM accounts`); err != nil {
		return oops.Code("STORE_SAVE_FAILED").With("operation", "clear accounts").Wrap(err)
	}

	for _, set := range [][]*account.Account{snap.Users, snap.Admins} {
		for pos, a := range set {
			_, err := tx.Exec(ctx,
				`INSERT INTO accounts (id, role, username, password, password_reset_pending, position, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				a.ID.String(), string(a.Role), a.Username, a.Password,
				a.PasswordResetPending, pos, a.CreatedAt, a.UpdatedAt)
			if err != nil {
				return mapInsertError(err, a)
			}
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO credential_state (id, counter, format, saved_at)
		 VALUES (1, $1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET counter = $1, format = $2, saved_at = now()`,
		snap.Counter, FormatVersion); err != nil {
		return oops.Code("STORE_SAVE_FAILED").With("operation", "write counter").Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("STORE_SAVE_FAILED").With("operation", "commit").Wrap(err)
	}
	return nil
}

func mapInsertError(err error, a *account.Account) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return oops.Code("STORE_DUPLICATE_USERNAME").
			With("role", string(a.Role)).
			With("username", a.Username).
			With("constraint", pgErr.ConstraintName).
			Wrap(err)
	}
	return oops.Code("STORE_SAVE_FAILED").
		With("operation", "insert account").
		With("username", a.Username).
		Wrap(err)
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
