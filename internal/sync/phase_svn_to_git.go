package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chriscase/gitsvnsync/internal/commitfmt"
	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/gitrepo"
	"github.com/chriscase/gitsvnsync/internal/model"
	"github.com/chriscase/gitsvnsync/internal/svnclient"
)

const remoteName = "origin"

// runPhaseSvnToGit is spec §4.10 phase A: replay every unsynced SVN
// revision onto the Git mirror, in ascending revision order, skipping
// echoes and already-synced revisions, never advancing the watermark
// past a revision whose replay failed.
func (e *Engine) runPhaseSvnToGit(ctx context.Context, stats *model.CycleStats) error {
	e.setState(model.StateApplyingSvnToGit)

	watermark, err := e.getSvnWatermark(ctx)
	if err != nil {
		return fmt.Errorf("phase svn->git: read watermark: %w", err)
	}

	info, err := e.svn.Info(ctx)
	if err != nil {
		return fmt.Errorf("phase svn->git: svn info: %w", err)
	}
	if info.LatestRev <= watermark {
		return nil
	}

	entries, err := e.svn.Log(ctx, watermark+1, info.LatestRev)
	if err != nil {
		return fmt.Errorf("phase svn->git: svn log: %w", err)
	}

	var firstErr error
	for _, entry := range entries {
		if commitfmt.IsSyncMarker(entry.Message) {
			e.advanceSvnWatermark(ctx, entry.Revision)
			e.audit(ctx, "skip_echo", directionPtr(model.DirectionSvnToGit), int64Ptr(entry.Revision), nil, nil,
				fmt.Sprintf("revision r%d carries the sync marker, treated as an echo", entry.Revision), true)
			continue
		}

		if _, err := e.store.CommitMapBySvnRev(ctx, entry.Revision, model.DirectionSvnToGit); err == nil {
			e.advanceSvnWatermark(ctx, entry.Revision)
			e.audit(ctx, "skip_already_synced", directionPtr(model.DirectionSvnToGit), int64Ptr(entry.Revision), nil, nil,
				fmt.Sprintf("revision r%d already recorded in commit_map", entry.Revision), true)
			continue
		} else if !isNotFound(err) {
			return fmt.Errorf("phase svn->git: commit map lookup: %w", err)
		}

		if err := e.replaySvnRevision(ctx, entry, stats); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logSvnReplayFailure(entry.Revision, err)
			e.audit(ctx, "replay_failed", directionPtr(model.DirectionSvnToGit), int64Ptr(entry.Revision), nil, nil, err.Error(), false)
			// Bounded retry: stop at the first failed revision so
			// the watermark never moves past it; it and the rest of
			// this batch are retried next cycle.
			break
		}
	}
	return firstErr
}

func logSvnReplayFailure(rev int64, err error) {
	logPrintf("[sync] phase svn->git: replay of r%d failed: %v", rev, err)
}

func (e *Engine) getSvnWatermark(ctx context.Context) (int64, error) {
	wm, err := e.store.GetWatermark(ctx, watermarkSvnRev)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(wm.Value, 10, 64)
}

func (e *Engine) advanceSvnWatermark(ctx context.Context, rev int64) {
	if err := e.store.SetWatermark(ctx, watermarkSvnRev, strconv.FormatInt(rev, 10)); err != nil {
		logPrintf("[sync] failed to advance svn_rev watermark to %d: %v", rev, err)
	}
}

// replaySvnRevision exports one SVN revision, reconciles it into the
// Git working tree, detects conflicts against any Git-side changes the
// revision's paths overlap with, commits, and pushes.
func (e *Engine) replaySvnRevision(ctx context.Context, entry svnclient.LogEntry, stats *model.CycleStats) error {
	recordID := newConflictID()
	record := model.SyncRecord{
		ID:        recordID,
		SvnRev:    int64Ptr(entry.Revision),
		Direction: model.DirectionSvnToGit,
		Author:    entry.Author,
		Message:   entry.Message,
		Timestamp: svnTimeOrNow(entry.Date),
		SyncedAt:  timeNow(),
		Status:    model.SyncRecordPending,
	}
	if err := e.store.InsertSyncRecord(ctx, record); err != nil {
		return fmt.Errorf("insert sync record: %w", err)
	}
	markFailed := func(err error) error {
		_ = e.store.UpdateSyncRecordStatus(ctx, recordID, model.SyncRecordFailed)
		return err
	}

	scratch, err := os.MkdirTemp("", fmt.Sprintf("gitsvnsync-export-r%d-", entry.Revision))
	if err != nil {
		return markFailed(fmt.Errorf("create scratch dir: %w", err))
	}
	defer os.RemoveAll(scratch)

	if err := e.svn.Export(ctx, e.cfg.Svn.Trunk, entry.Revision, scratch); err != nil {
		return markFailed(fmt.Errorf("export r%d: %w", entry.Revision, err))
	}

	svnChanges := fillSvnContent(svnChangesFromDiff(entry, e.cfg.Svn.Trunk), scratch)
	blocked, err := e.detectAndHandleConflicts(ctx, svnChanges, model.DirectionSvnToGit, entry.Revision, "", stats)
	if err != nil {
		return markFailed(err)
	}
	if blocked {
		_ = e.store.UpdateSyncRecordStatus(ctx, recordID, model.SyncRecordFailed)
		return nil // conflict recorded; revision retried once resolved, not an error to propagate
	}

	if err := Reconcile(scratch, e.git.Path(), ".git"); err != nil {
		return markFailed(fmt.Errorf("reconcile r%d into git tree: %w", entry.Revision, err))
	}

	identity := e.resolveSvnToGitIdentity(entry.Author)
	message := e.fmt.FormatSvnToGit(entry.Message, entry.Revision, entry.Author, entry.Date)

	sha, err := e.git.Commit(message, identity.Name, identity.Email, identity.Name, identity.Email)
	if err != nil {
		if gitrepo.IsEmptyCommit(err) {
			// Property-only revisions produce no tree diff; go-git
			// refuses an empty commit. Log-only, per spec §9.
			e.advanceSvnWatermark(ctx, entry.Revision)
			_ = e.store.UpdateSyncRecordStatus(ctx, recordID, model.SyncRecordCompleted)
			e.audit(ctx, "empty_commit_skipped", directionPtr(model.DirectionSvnToGit), int64Ptr(entry.Revision), nil, &entry.Author,
				fmt.Sprintf("revision r%d produced no tree diff (property-only change)", entry.Revision), true)
			return nil
		}
		return markFailed(fmt.Errorf("commit r%d: %w", entry.Revision, err))
	}

	if err := e.git.Push(ctx, remoteName, e.cfg.Remote.DefaultBranch, e.cfg.Remote.Token); err != nil {
		var rejected *coreerrors.GitPushRejected
		if errors.As(err, &rejected) {
			return markFailed(err) // watermark not advanced; retried next cycle
		}
		return markFailed(fmt.Errorf("push r%d: %w", entry.Revision, err))
	}

	if err := e.store.InsertCommitMap(ctx, model.CommitMapEntry{
		SvnRev:    entry.Revision,
		GitSHA:    sha,
		Direction: model.DirectionSvnToGit,
		SyncedAt:  timeNow(),
		SvnAuthor: entry.Author,
		GitAuthor: identity.Name + " <" + identity.Email + ">",
	}); err != nil {
		return markFailed(fmt.Errorf("record commit map r%d: %w", entry.Revision, err))
	}

	e.advanceSvnWatermark(ctx, entry.Revision)
	_ = e.store.SetWatermark(ctx, watermarkGitSHA, sha)
	_ = e.store.UpdateSyncRecordStatus(ctx, recordID, model.SyncRecordCompleted)
	stats.SvnToGitCommits++
	e.audit(ctx, "svn_to_git_commit", directionPtr(model.DirectionSvnToGit), int64Ptr(entry.Revision), &sha, &entry.Author,
		fmt.Sprintf("revision r%d replayed as %s", entry.Revision, sha), true)
	return nil
}

// svnChangesFromDiff converts one log entry's changed-paths list into
// repo-relative FileChanges. SVN paths are repo-absolute
// (e.g. "/trunk/src/x.txt"); trunk is stripped along with the leading
// slash so the result shares Git's repo-relative namespace
// ("src/x.txt") and lines up with gitChangesSinceWatermark's paths for
// conflict.Detect's intersection check.
func svnChangesFromDiff(entry svnclient.LogEntry, trunk string) []model.FileChange {
	changes := make([]model.FileChange, 0, len(entry.ChangedPaths))
	for _, cp := range entry.ChangedPaths {
		var kind model.ChangeKind
		switch cp.Action {
		case "A":
			kind = model.ChangeAdded
		case "D":
			kind = model.ChangeDeleted
		case "M":
			kind = model.ChangeModified
		default:
			kind = model.ChangeModified
		}
		changes = append(changes, model.FileChange{Path: relativizeSvnPath(cp.Path, trunk), ChangeKind: kind})
	}
	return changes
}

// relativizeSvnPath strips the repo-absolute trunk prefix and leading
// slash from an SVN changed-path, e.g. ("/trunk/src/x.txt", "/trunk")
// -> "src/x.txt". Paths outside trunk (branches/tags changes swept up
// in the same revision) are left trunk-relative-less, i.e. with just
// their leading slash stripped, since they describe a tree this bridge
// doesn't mirror into Git at all.
func relativizeSvnPath(path, trunk string) string {
	p := strings.TrimPrefix(path, "/")
	prefix := strings.Trim(trunk, "/")
	if prefix == "" {
		return p
	}
	if p == prefix {
		return ""
	}
	return strings.TrimPrefix(p, prefix+"/")
}
