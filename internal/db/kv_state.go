package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
)

// GetState returns the stored value for key, or NotFound if it has
// never been set. It holds small free-form string values that don't
// warrant their own table. The sync engine does not use it: its
// single-run guard is an in-memory atomic.Bool (see internal/sync).
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &coreerrors.NotFound{Entity: "kv_state", ID: key}
	}
	return value, err
}

// SetState upserts key to value.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	return err
}

// DeleteState removes key, after which TrySetState can insert it again.
func (s *Store) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_state WHERE key = ?`, key)
	return err
}

// TrySetState performs an atomic compare-and-swap: it inserts key only
// if absent, returning ok=false without error if another writer holds
// it.
func (s *Store) TrySetState(ctx context.Context, key, value string) (ok bool, err error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO NOTHING
	`, key, value)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
