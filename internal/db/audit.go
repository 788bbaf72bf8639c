package db

import (
	"context"

	"github.com/chriscase/gitsvnsync/internal/model"
)

// InsertAudit appends an audit log entry. The log is append-only:
// callers never update or delete a row once written.
func (s *Store) InsertAudit(ctx context.Context, a model.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (action, direction, svn_rev, git_sha, author, details, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, a.Action, a.Direction, a.SvnRev, a.GitSHA, a.Author, a.Details, a.Success)
	return err
}

// ListAudit returns the most recent audit entries, newest first,
// bounded by limit.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, direction, svn_rev, git_sha, author, details, success, created_at
		FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var a model.AuditEntry
		if err := rows.Scan(&a.ID, &a.Action, &a.Direction, &a.SvnRev, &a.GitSHA, &a.Author, &a.Details, &a.Success, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAuditFailures returns the total number of audit entries
// recorded with success = false, used by the status snapshot's
// error counter.
func (s *Store) CountAuditFailures(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log WHERE success = 0`).Scan(&n)
	return n, err
}
