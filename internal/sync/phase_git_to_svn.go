package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/chriscase/gitsvnsync/internal/commitfmt"
	"github.com/chriscase/gitsvnsync/internal/githubapi"
	"github.com/chriscase/gitsvnsync/internal/model"
	"github.com/chriscase/gitsvnsync/internal/svnclient"
)

// svnWorkingCopyPath is the checked-out SVN working copy phase B
// reconciles the Git tree into, per spec §6's persisted state layout.
func (e *Engine) svnWorkingCopyPath() string {
	return filepath.Join(e.cfg.Daemon.DataDirectory, "svn-wc")
}

// runPhaseGitToSvn is spec §4.10 phase B: replay every merged pull
// request's commits onto the SVN trunk, one PR at a time in merge
// order, one commit at a time within a PR. A failure replaying one PR
// marks that PR-sync failed and moves on to the next; it never aborts
// the whole phase.
func (e *Engine) runPhaseGitToSvn(ctx context.Context, stats *model.CycleStats) error {
	e.setState(model.StateApplyingGitToSvn)

	since, err := e.lastPRSyncTime(ctx)
	if err != nil {
		return fmt.Errorf("phase git->svn: last pr sync time: %w", err)
	}

	prs, err := e.remote.GetMergedPullRequests(ctx, e.cfg.Remote.DefaultBranch, since)
	if err != nil {
		return fmt.Errorf("phase git->svn: list merged pull requests: %w", err)
	}
	sort.Slice(prs, func(i, j int) bool {
		return mergedAtOrZero(prs[i]).Before(mergedAtOrZero(prs[j]))
	})

	// Replaying a PR's commits leaves the working tree detached at
	// whichever commit was checked out last; restore the default
	// branch so phase A's next-cycle HEAD-based diffing sees a normal
	// branch ref again.
	defer func() {
		if err := e.git.CheckoutBranch(e.cfg.Remote.DefaultBranch); err != nil {
			logPrintf("[sync] phase git->svn: failed to restore branch %s after replay: %v", e.cfg.Remote.DefaultBranch, err)
		}
	}()

	var firstErr error
	for _, pr := range prs {
		if pr.MergeCommitSHA == nil || *pr.MergeCommitSHA == "" {
			e.audit(ctx, "skip_no_merge_sha", directionPtr(model.DirectionGitToSvn), nil, nil, nil,
				fmt.Sprintf("PR #%d has no merge commit sha, skipped", pr.Number), true)
			continue
		}
		mergeSHA := *pr.MergeCommitSHA

		if _, err := e.store.PRSyncByMergeSHA(ctx, mergeSHA); err == nil {
			continue // already replayed
		} else if !isNotFound(err) {
			return fmt.Errorf("phase git->svn: pr sync lookup %s: %w", mergeSHA, err)
		}

		if err := e.replayPullRequest(ctx, pr, mergeSHA, stats); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logPrintf("[sync] phase git->svn: PR #%d replay failed: %v", pr.Number, err)
			e.audit(ctx, "git_to_svn_error", directionPtr(model.DirectionGitToSvn), nil, &mergeSHA, nil, err.Error(), false)
		}
	}
	return firstErr
}

func mergedAtOrZero(pr githubapi.PullRequest) time.Time {
	if pr.MergedAt == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, *pr.MergedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// lastPRSyncTime returns the completion time of the most recently
// replayed PR, or the zero time if none has ever been replayed, which
// makes every currently merged PR eligible.
func (e *Engine) lastPRSyncTime(ctx context.Context) (time.Time, error) {
	last, err := e.store.LastCompletedPRSync(ctx)
	if err != nil {
		if isNotFound(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	if last.CompletedAt == nil {
		return time.Time{}, nil
	}
	return *last.CompletedAt, nil
}

// replayPullRequest replays one merged PR's non-echo commits onto SVN
// trunk, in order, recording the PR-sync row throughout.
func (e *Engine) replayPullRequest(ctx context.Context, pr githubapi.PullRequest, mergeSHA string, stats *model.CycleStats) error {
	commits, err := e.remote.GetPRCommits(ctx, pr.Number)
	if err != nil {
		return fmt.Errorf("get pr commits: %w", err)
	}
	if len(commits) == 0 {
		logPrintf("[sync] phase git->svn: PR #%d has no commits, skipped", pr.Number)
		return nil
	}

	strategy := e.detectMergeStrategy(ctx, mergeSHA, commits)

	id, err := e.store.InsertPRSync(ctx, model.PRSyncEntry{
		PRNumber:      pr.Number,
		PRTitle:       pr.Title,
		PRBranch:      pr.Head.RefName,
		MergeSHA:      mergeSHA,
		MergeStrategy: strategy,
		CommitCount:   int64(len(commits)),
		Status:        model.PRSyncPending,
		DetectedAt:    timeNow(),
	})
	if err != nil {
		return fmt.Errorf("insert pr sync: %w", err)
	}

	toReplay := make([]githubapi.Commit, 0, len(commits))
	for _, c := range commits {
		if !commitfmt.IsSyncMarker(c.Commit.Message) {
			toReplay = append(toReplay, c)
		}
	}
	if len(toReplay) == 0 {
		// Every commit in the PR is an echo of something this bridge
		// already wrote to Git; nothing to replay back to SVN.
		if err := e.store.CompletePRSync(ctx, id, 0, 0); err != nil {
			return fmt.Errorf("complete pr sync (no-op): %w", err)
		}
		stats.PRsProcessed++
		return nil
	}

	var firstRev, lastRev int64
	for _, c := range toReplay {
		rev, err := e.replayGitCommitToSvn(ctx, c, pr.Number, pr.Head.RefName)
		if err != nil {
			_ = e.store.FailPRSync(ctx, id, err.Error())
			return fmt.Errorf("replay commit %s: %w", c.SHA, err)
		}
		if firstRev == 0 {
			firstRev = rev
		}
		lastRev = rev
		stats.GitToSvnCommits++

		gitAuthor := fmt.Sprintf("%s <%s>", c.Commit.Author.Name, c.Commit.Author.Email)
		svnUsername := e.resolveGitToSvnUsername(c.Commit.Author.Name, c.Commit.Author.Email)
		if err := e.store.InsertCommitMap(ctx, model.CommitMapEntry{
			SvnRev:    rev,
			GitSHA:    c.SHA,
			Direction: model.DirectionGitToSvn,
			SyncedAt:  timeNow(),
			SvnAuthor: svnUsername,
			GitAuthor: gitAuthor,
		}); err != nil {
			_ = e.store.FailPRSync(ctx, id, err.Error())
			return fmt.Errorf("record commit map for %s: %w", c.SHA, err)
		}
		e.audit(ctx, "git_to_svn_commit", directionPtr(model.DirectionGitToSvn), int64Ptr(rev), &c.SHA, &gitAuthor,
			fmt.Sprintf("PR #%d commit %s replayed as r%d", pr.Number, c.SHA, rev), true)
	}

	if err := e.store.CompletePRSync(ctx, id, firstRev, lastRev); err != nil {
		return fmt.Errorf("complete pr sync: %w", err)
	}
	stats.PRsProcessed++
	return nil
}

// detectMergeStrategy classifies how a PR reached the default branch:
// >=2 parents on the merge commit means a real merge commit; a single
// parent with exactly one PR commit means squash; a single parent with
// more than one PR commit means rebase. A failure to fetch the merge
// commit, or any other parent count, is reported as unknown rather
// than guessed at.
func (e *Engine) detectMergeStrategy(ctx context.Context, mergeSHA string, commits []githubapi.Commit) model.MergeStrategy {
	detail, err := e.remote.GetCommit(ctx, mergeSHA)
	if err != nil {
		logPrintf("[sync] phase git->svn: could not fetch merge commit %s, merge strategy unknown: %v", mergeSHA, err)
		return model.MergeStrategyUnknown
	}
	switch {
	case len(detail.Parents) >= 2:
		return model.MergeStrategyMerge
	case len(detail.Parents) == 1 && len(commits) <= 1:
		return model.MergeStrategySquash
	case len(detail.Parents) == 1 && len(commits) > 1:
		return model.MergeStrategyRebase
	default:
		return model.MergeStrategyUnknown
	}
}

// replayGitCommitToSvn materializes one Git commit's tree, reconciles
// it into the SVN working copy, stages the resulting add/delete set,
// and commits. SVN tolerates an empty-diff commit (unlike go-git), so
// unlike phase A this never skips a commit for lack of changes — it is
// still recorded for traceability.
func (e *Engine) replayGitCommitToSvn(ctx context.Context, commit githubapi.Commit, prNumber int64, prBranch string) (int64, error) {
	wc := e.svnWorkingCopyPath()

	if err := e.svn.Update(ctx, wc); err != nil {
		return 0, fmt.Errorf("svn update: %w", err)
	}
	if err := e.git.CheckoutCommit(commit.SHA); err != nil {
		return 0, fmt.Errorf("checkout git commit: %w", err)
	}
	if err := Reconcile(e.git.Path(), wc, ".svn"); err != nil {
		return 0, fmt.Errorf("reconcile into svn working copy: %w", err)
	}

	statusOut, err := e.svn.Status(ctx, wc)
	if err != nil {
		return 0, fmt.Errorf("svn status: %w", err)
	}
	added, deleted := svnclient.ParseSvnStatus(statusOut)
	if err := e.svn.Add(ctx, wc, added); err != nil {
		return 0, fmt.Errorf("svn add: %w", err)
	}
	if err := e.svn.Remove(ctx, wc, deleted); err != nil {
		return 0, fmt.Errorf("svn rm: %w", err)
	}

	message := e.fmt.FormatGitToSvn(commit.Commit.Message, commit.SHA, prNumber, prBranch)
	rev, err := e.svn.Commit(ctx, wc, message)
	if err != nil {
		return 0, fmt.Errorf("svn commit: %w", err)
	}
	return rev, nil
}
