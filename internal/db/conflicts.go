package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/model"
)

// InsertConflict records a newly detected conflict.
func (s *Store) InsertConflict(ctx context.Context, c model.ConflictRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conflicts (
			id, file_path, type, svn_content, git_content, base_content,
			svn_rev, git_sha, status, resolution, resolved_by, created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.FilePath, c.Type, c.SvnContent, c.GitContent, c.BaseContent,
		c.SvnRev, c.GitSHA, c.Status, c.Resolution, c.ResolvedBy, c.CreatedAt, c.ResolvedAt)
	return err
}

// GetConflict returns the conflict with the given ID.
func (s *Store) GetConflict(ctx context.Context, id string) (*model.ConflictRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_path, type, svn_content, git_content, base_content,
		       svn_rev, git_sha, status, resolution, resolved_by, created_at, resolved_at
		FROM conflicts WHERE id = ?`, id)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &coreerrors.ConflictNotFound{ID: id}
	}
	return c, err
}

// ListActiveConflicts returns conflicts that have not reached a
// terminal resolved status, ordered oldest first.
func (s *Store) ListActiveConflicts(ctx context.Context) ([]model.ConflictRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_path, type, svn_content, git_content, base_content,
		       svn_rev, git_sha, status, resolution, resolved_by, created_at, resolved_at
		FROM conflicts WHERE status != ? ORDER BY created_at ASC`, model.ConflictResolved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ConflictRecord
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ResolveConflict marks a conflict resolved. It returns AlreadyResolved
// if the conflict's current status is already resolved, enforcing that
// every conflict resolves exactly once.
func (s *Store) ResolveConflict(ctx context.Context, id string, resolution model.Resolution, resolvedBy string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var status model.ConflictStatus
		if err := tx.QueryRowContext(ctx, `SELECT status FROM conflicts WHERE id = ?`, id).Scan(&status); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &coreerrors.ConflictNotFound{ID: id}
			}
			return err
		}
		if status == model.ConflictResolved {
			return &coreerrors.AlreadyResolved{ID: id}
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE conflicts
			SET status = ?, resolution = ?, resolved_by = ?, resolved_at = CURRENT_TIMESTAMP
			WHERE id = ?`, model.ConflictResolved, resolution, resolvedBy, id)
		return err
	})
}

// DeferConflict marks a conflict deferred unconditionally, even if it
// was already resolved. Unlike ResolveConflict, this bypasses the
// already-resolved guard: deferring is always allowed, since it
// represents an operator punting on a decision rather than recording
// one, and a previously-resolved conflict may still need to be
// revisited.
func (s *Store) DeferConflict(ctx context.Context, id, resolvedBy string) error {
	resolution := model.ResolutionDeferred
	_, err := s.db.ExecContext(ctx, `
		UPDATE conflicts
		SET status = ?, resolution = ?, resolved_by = ?, resolved_at = CURRENT_TIMESTAMP
		WHERE id = ?`, model.ConflictDeferred, resolution, resolvedBy, id)
	return err
}

// CountConflicts returns the total number of conflict rows ever
// recorded, regardless of status, used by the status snapshot.
func (s *Store) CountConflicts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conflicts`).Scan(&n)
	return n, err
}

type conflictScanner interface {
	Scan(dest ...any) error
}

func scanConflict(row conflictScanner) (*model.ConflictRecord, error) {
	var c model.ConflictRecord
	err := row.Scan(&c.ID, &c.FilePath, &c.Type, &c.SvnContent, &c.GitContent, &c.BaseContent,
		&c.SvnRev, &c.GitSHA, &c.Status, &c.Resolution, &c.ResolvedBy, &c.CreatedAt, &c.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
