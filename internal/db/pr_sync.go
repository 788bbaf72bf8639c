package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/model"
)

// InsertPRSync records that replay of a merged pull request has
// started, in pending status. The merge_sha uniqueness constraint is
// what lets callers detect "already seen this merge" (see
// PRSyncByMergeSHA) before replaying it again.
func (s *Store) InsertPRSync(ctx context.Context, e model.PRSyncEntry) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pr_sync_log (
			pr_number, pr_title, pr_branch, merge_sha, merge_strategy,
			svn_rev_start, svn_rev_end, commit_count, status, error_message, detected_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.PRNumber, e.PRTitle, e.PRBranch, e.MergeSHA, e.MergeStrategy,
		e.SvnRevStart, e.SvnRevEnd, e.CommitCount, e.Status, e.ErrorMessage, e.DetectedAt, e.CompletedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// PRSyncByNumber looks up the replay record for a PR number, returning
// NotFound if it has never been seen.
func (s *Store) PRSyncByNumber(ctx context.Context, prNumber int64) (*model.PRSyncEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pr_number, pr_title, pr_branch, merge_sha, merge_strategy,
		       svn_rev_start, svn_rev_end, commit_count, status, error_message, detected_at, completed_at
		FROM pr_sync_log WHERE pr_number = ?`, prNumber)

	var e model.PRSyncEntry
	err := row.Scan(&e.ID, &e.PRNumber, &e.PRTitle, &e.PRBranch, &e.MergeSHA, &e.MergeStrategy,
		&e.SvnRevStart, &e.SvnRevEnd, &e.CommitCount, &e.Status, &e.ErrorMessage, &e.DetectedAt, &e.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &coreerrors.NotFound{Entity: "pr_sync_log", ID: ""}
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PRSyncByMergeSHA looks up the replay record for a merge commit SHA,
// returning NotFound if that merge has never been seen. The spec pins
// uniqueness to the merge SHA (not the PR number) since rebase-merged
// PRs can in principle be re-numbered across forks.
func (s *Store) PRSyncByMergeSHA(ctx context.Context, mergeSHA string) (*model.PRSyncEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pr_number, pr_title, pr_branch, merge_sha, merge_strategy,
		       svn_rev_start, svn_rev_end, commit_count, status, error_message, detected_at, completed_at
		FROM pr_sync_log WHERE merge_sha = ?`, mergeSHA)

	var e model.PRSyncEntry
	err := row.Scan(&e.ID, &e.PRNumber, &e.PRTitle, &e.PRBranch, &e.MergeSHA, &e.MergeStrategy,
		&e.SvnRevStart, &e.SvnRevEnd, &e.CommitCount, &e.Status, &e.ErrorMessage, &e.DetectedAt, &e.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &coreerrors.NotFound{Entity: "pr_sync_log", ID: mergeSHA}
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CompletePRSync marks a PR replay as completed, recording the SVN
// revision range it produced.
func (s *Store) CompletePRSync(ctx context.Context, id, svnRevStart, svnRevEnd int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pr_sync_log
		SET status = ?, svn_rev_start = ?, svn_rev_end = ?, completed_at = CURRENT_TIMESTAMP
		WHERE id = ?`, model.PRSyncCompleted, svnRevStart, svnRevEnd, id)
	return err
}

// FailPRSync marks a PR replay as failed, recording the error that
// stopped it so the next cycle can retry from the failure point.
func (s *Store) FailPRSync(ctx context.Context, id int64, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pr_sync_log SET status = ?, error_message = ? WHERE id = ?`,
		model.PRSyncFailed, errMsg, id)
	return err
}

// LastCompletedPRSync returns the most recently completed PR replay
// row (by completion time), the source the sync engine reads "since"
// from before asking the remote API for newly merged PRs. NotFound
// means no PR has ever been replayed, so the caller should treat
// every merged PR as eligible.
func (s *Store) LastCompletedPRSync(ctx context.Context) (*model.PRSyncEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pr_number, pr_title, pr_branch, merge_sha, merge_strategy,
		       svn_rev_start, svn_rev_end, commit_count, status, error_message, detected_at, completed_at
		FROM pr_sync_log WHERE status = ? ORDER BY completed_at DESC LIMIT 1`, model.PRSyncCompleted)

	var e model.PRSyncEntry
	err := row.Scan(&e.ID, &e.PRNumber, &e.PRTitle, &e.PRBranch, &e.MergeSHA, &e.MergeStrategy,
		&e.SvnRevStart, &e.SvnRevEnd, &e.CommitCount, &e.Status, &e.ErrorMessage, &e.DetectedAt, &e.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &coreerrors.NotFound{Entity: "pr_sync_log", ID: ""}
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListPendingOrFailedPRSync returns PR replay rows that have not
// completed, ordered by detection time, so the engine can retry them
// before polling for newly merged PRs.
func (s *Store) ListPendingOrFailedPRSync(ctx context.Context) ([]model.PRSyncEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pr_number, pr_title, pr_branch, merge_sha, merge_strategy,
		       svn_rev_start, svn_rev_end, commit_count, status, error_message, detected_at, completed_at
		FROM pr_sync_log WHERE status IN (?, ?) ORDER BY detected_at ASC`,
		model.PRSyncPending, model.PRSyncFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PRSyncEntry
	for rows.Next() {
		var e model.PRSyncEntry
		if err := rows.Scan(&e.ID, &e.PRNumber, &e.PRTitle, &e.PRBranch, &e.MergeSHA, &e.MergeStrategy,
			&e.SvnRevStart, &e.SvnRevEnd, &e.CommitCount, &e.Status, &e.ErrorMessage, &e.DetectedAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
