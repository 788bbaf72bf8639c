package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chriscase/gitsvnsync/internal/commitfmt"
	"github.com/chriscase/gitsvnsync/internal/conflict"
	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/model"
)

// gitChangesSinceWatermark returns every file touched by a non-echo Git
// commit since the last recorded git_sha watermark, collapsed to one
// entry per path (the last commit touching a path wins), paired with
// the current HEAD SHA those changes are read against.
func (e *Engine) gitChangesSinceWatermark(ctx context.Context) ([]model.FileChange, string, error) {
	head, err := e.git.HeadSHA()
	if err != nil {
		return nil, "", fmt.Errorf("git head: %w", err)
	}

	wm, err := e.store.GetWatermark(ctx, watermarkGitSHA)
	base := ""
	if err == nil {
		base = wm.Value
	} else if !isNotFound(err) {
		return nil, "", err
	}
	if base == "" || base == head {
		return nil, head, nil
	}

	commits, err := e.git.CommitsSince(base)
	if err != nil {
		return nil, head, fmt.Errorf("commits since %s: %w", base, err)
	}

	byPath := make(map[string]model.FileChange)
	for _, c := range commits {
		if commitfmt.IsSyncMarker(c.Message) {
			continue
		}
		files, err := e.git.ChangedFiles(c.SHA)
		if err != nil {
			return nil, head, fmt.Errorf("changed files %s: %w", c.SHA, err)
		}
		for _, f := range files {
			change := model.FileChange{Path: f.Path, ChangeKind: gitActionToChangeKind(f.Action)}
			if change.ChangeKind != model.ChangeDeleted {
				if content, err := e.git.FileContentAtCommit(c.SHA, f.Path); err == nil && content != nil {
					s := string(content)
					change.Content = &s
				}
			}
			byPath[f.Path] = change
		}
	}

	out := make([]model.FileChange, 0, len(byPath))
	for _, c := range byPath {
		out = append(out, c)
	}
	return out, head, nil
}

func gitActionToChangeKind(action string) model.ChangeKind {
	switch action {
	case "A":
		return model.ChangeAdded
	case "D":
		return model.ChangeDeleted
	default:
		return model.ChangeModified
	}
}

// fillSvnContent populates Content on svnChanges that carry a
// file (not a delete) by reading the exported scratch tree, so
// conflict records carry the actual competing text rather than just
// their classification.
func fillSvnContent(svnChanges []model.FileChange, scratchRoot string) []model.FileChange {
	out := make([]model.FileChange, len(svnChanges))
	for i, c := range svnChanges {
		if c.ChangeKind != model.ChangeDeleted {
			if b, err := os.ReadFile(filepath.Join(scratchRoot, c.Path)); err == nil {
				s := string(b)
				c.Content = &s
			}
		}
		out[i] = c
	}
	return out
}

// detectAndHandleConflicts compares svnChanges against every Git-side
// change not yet folded into SVN, persists any conflict found, and —
// when auto-merge is enabled — attempts a three-way merge immediately.
// It reports blocked=true when at least one conflict on svnChanges'
// paths remains unresolved, which tells the caller to hold this
// revision back rather than commit it.
//
// Base content for the three-way merge is not synthesized from the
// commit_map's last common ancestor; an unresolved conflict's
// BaseContent is left empty, which AttemptAutoMerge treats as merging
// against an empty common ancestor. This is a deliberate, documented
// simplification rather than an oversight.
func (e *Engine) detectAndHandleConflicts(ctx context.Context, svnChanges []model.FileChange, direction model.Direction, svnRev int64, gitSHA string, stats *model.CycleStats) (bool, error) {
	gitChanges, head, err := e.gitChangesSinceWatermark(ctx)
	if err != nil {
		return false, fmt.Errorf("detect conflicts: %w", err)
	}
	if gitSHA == "" {
		gitSHA = head
	}
	if len(gitChanges) == 0 {
		return false, nil
	}

	found := conflict.Detect(svnChanges, gitChanges)
	if len(found) == 0 {
		return false, nil
	}

	blocked := false
	for _, c := range found {
		c.SvnRev = int64Ptr(svnRev)
		c.GitSHA = strPtrOrNil(gitSHA)
		if err := e.store.InsertConflict(ctx, c); err != nil {
			return false, fmt.Errorf("persist conflict %s: %w", c.FilePath, err)
		}
		stats.ConflictsDetected++
		e.audit(ctx, "conflict_detected", directionPtr(direction), int64Ptr(svnRev), strPtrOrNil(gitSHA), nil,
			fmt.Sprintf("path=%s type=%s", c.FilePath, c.Type), true)

		if !e.cfg.Options.AutoMerge {
			blocked = true
			continue
		}

		if _, err := e.resolver.AttemptAutoMerge(ctx, c.ID, "auto-merge"); err != nil {
			var unresolvable *coreerrors.UnresolvableConflict
			if errors.As(err, &unresolvable) {
				blocked = true
				continue
			}
			return false, fmt.Errorf("auto-merge %s: %w", c.FilePath, err)
		}
		stats.ConflictsAutoResolved++
	}

	return blocked, nil
}
