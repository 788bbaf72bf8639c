package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/model"
)

// InsertCommitMap records a newly synced revision/commit pairing. The
// (svn_rev, direction) and (git_sha, direction) uniqueness constraints
// give the at-most-once-per-recorded-pair idempotency the sync engine
// relies on when it replays after a crash.
func (s *Store) InsertCommitMap(ctx context.Context, e model.CommitMapEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commit_map (svn_rev, git_sha, direction, synced_at, svn_author, git_author)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.SvnRev, e.GitSHA, e.Direction, e.SyncedAt, e.SvnAuthor, e.GitAuthor)
	return err
}

// CommitMapBySvnRev looks up the mapping for an SVN revision in the
// given direction, returning NotFound if it hasn't been synced.
func (s *Store) CommitMapBySvnRev(ctx context.Context, rev int64, dir model.Direction) (*model.CommitMapEntry, error) {
	return s.scanCommitMap(ctx, `
		SELECT id, svn_rev, git_sha, direction, synced_at, svn_author, git_author
		FROM commit_map WHERE svn_rev = ? AND direction = ?`, rev, dir)
}

// CommitMapByGitSHA looks up the mapping for a Git commit SHA in the
// given direction, returning NotFound if it hasn't been synced.
func (s *Store) CommitMapByGitSHA(ctx context.Context, sha string, dir model.Direction) (*model.CommitMapEntry, error) {
	return s.scanCommitMap(ctx, `
		SELECT id, svn_rev, git_sha, direction, synced_at, svn_author, git_author
		FROM commit_map WHERE git_sha = ? AND direction = ?`, sha, dir)
}

func (s *Store) scanCommitMap(ctx context.Context, query string, args ...any) (*model.CommitMapEntry, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	var e model.CommitMapEntry
	if err := row.Scan(&e.ID, &e.SvnRev, &e.GitSHA, &e.Direction, &e.SyncedAt, &e.SvnAuthor, &e.GitAuthor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &coreerrors.NotFound{Entity: "commit_map", ID: ""}
		}
		return nil, err
	}
	return &e, nil
}

// LatestSvnRev returns the highest SVN revision recorded in commit_map
// for the given direction, or 0 if none has synced yet.
func (s *Store) LatestSvnRev(ctx context.Context, dir model.Direction) (int64, error) {
	var rev sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(svn_rev) FROM commit_map WHERE direction = ?`, dir).Scan(&rev)
	if err != nil {
		return 0, err
	}
	if !rev.Valid {
		return 0, nil
	}
	return rev.Int64, nil
}
