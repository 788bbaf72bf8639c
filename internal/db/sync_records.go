package db

import (
	"context"

	"github.com/chriscase/gitsvnsync/internal/model"
)

// InsertSyncRecord writes the per-attempt ledger entry for one replay
// unit. Unlike commit_map, this is written for every attempt,
// including ones that later fail, so CountSyncRecords reflects total
// throughput rather than only successes.
func (s *Store) InsertSyncRecord(ctx context.Context, r model.SyncRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_records (id, svn_rev, git_sha, direction, author, message, timestamp, synced_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.SvnRev, r.GitSHA, r.Direction, r.Author, r.Message, r.Timestamp, r.SyncedAt, r.Status)
	return err
}

// UpdateSyncRecordStatus transitions a sync record to a terminal
// status once its replay attempt finishes.
func (s *Store) UpdateSyncRecordStatus(ctx context.Context, id string, status model.SyncRecordStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sync_records SET status = ? WHERE id = ?`, status, id)
	return err
}

// CountSyncRecords returns the total number of sync_records rows,
// used by the status snapshot.
func (s *Store) CountSyncRecords(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_records`).Scan(&n)
	return n, err
}
