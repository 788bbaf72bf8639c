package conflict

import (
	"context"
	"fmt"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/db"
	"github.com/chriscase/gitsvnsync/internal/model"
)

// Resolver applies named resolution actions to a persisted conflict
// record. It never touches the SVN working copy or the Git repo
// directly — it decides final content and hands it back to the
// caller (the sync engine), which is responsible for writing it and
// committing on both sides.
type Resolver struct {
	store *db.Store
}

// NewResolver builds a Resolver over store.
func NewResolver(store *db.Store) *Resolver {
	return &Resolver{store: store}
}

func optStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AcceptSvn resolves the conflict in favor of the SVN side's content
// and returns that content for the caller to apply to Git.
func (r *Resolver) AcceptSvn(ctx context.Context, conflictID, resolvedBy string) (string, error) {
	c, err := r.store.GetConflict(ctx, conflictID)
	if err != nil {
		return "", err
	}
	if err := r.store.ResolveConflict(ctx, conflictID, model.ResolutionAcceptSvn, resolvedBy); err != nil {
		return "", err
	}
	r.audit(ctx, conflictID, "resolve_accept_svn", resolvedBy, true)
	return optStr(c.SvnContent), nil
}

// AcceptGit resolves the conflict in favor of the Git side's content
// and returns that content for the caller to apply to SVN.
func (r *Resolver) AcceptGit(ctx context.Context, conflictID, resolvedBy string) (string, error) {
	c, err := r.store.GetConflict(ctx, conflictID)
	if err != nil {
		return "", err
	}
	if err := r.store.ResolveConflict(ctx, conflictID, model.ResolutionAcceptGit, resolvedBy); err != nil {
		return "", err
	}
	r.audit(ctx, conflictID, "resolve_accept_git", resolvedBy, true)
	return optStr(c.GitContent), nil
}

// AcceptMerged resolves the conflict with operator- or
// auto-merge-supplied mergedContent, applied to both sides.
func (r *Resolver) AcceptMerged(ctx context.Context, conflictID, resolvedBy, mergedContent string) error {
	if err := r.store.ResolveConflict(ctx, conflictID, model.ResolutionAcceptMerged, resolvedBy); err != nil {
		return err
	}
	r.audit(ctx, conflictID, "resolve_accept_merged", resolvedBy, true)
	_ = mergedContent // caller writes this; nothing further to persist
	return nil
}

// Defer marks the conflict deferred, unconditionally — even one
// already resolved can be punted back open for reconsideration.
func (r *Resolver) Defer(ctx context.Context, conflictID, resolvedBy string) error {
	if err := r.store.DeferConflict(ctx, conflictID, resolvedBy); err != nil {
		return err
	}
	r.audit(ctx, conflictID, "resolve_defer", resolvedBy, true)
	return nil
}

// AttemptAutoMerge tries a three-way merge using the conflict's
// stored base/SVN/Git content. On a clean merge it resolves the
// conflict as accept_merged and returns the merged text; on failure
// it returns the conflict unresolved along with conflict-marker
// content for manual review, wrapped in UnresolvableConflict.
func (r *Resolver) AttemptAutoMerge(ctx context.Context, conflictID, resolvedBy string) (string, error) {
	c, err := r.store.GetConflict(ctx, conflictID)
	if err != nil {
		return "", err
	}

	base := optStr(c.BaseContent)
	svn := optStr(c.SvnContent)
	git := optStr(c.GitContent)

	result := ThreeWayMerge(base, svn, git)
	if result.HasConflicts {
		return result.MergedContent, &coreerrors.UnresolvableConflict{
			FilePath: c.FilePath,
			Detail:   fmt.Sprintf("%d overlapping region(s) require manual resolution", len(result.ConflictMarkers)),
		}
	}

	if err := r.AcceptMerged(ctx, conflictID, resolvedBy, result.MergedContent); err != nil {
		return "", err
	}
	return result.MergedContent, nil
}

func (r *Resolver) audit(ctx context.Context, conflictID, action, resolvedBy string, success bool) {
	details := renderAuditDetails(conflictID)
	_ = r.store.InsertAudit(ctx, model.AuditEntry{
		Action:  action,
		Author:  &resolvedBy,
		Details: &details,
		Success: success,
	})
}

func renderAuditDetails(conflictID string) string {
	return fmt.Sprintf("conflict_id=%s", conflictID)
}
