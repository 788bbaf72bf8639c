// Package conflict detects overlapping SVN/Git changes, attempts a
// three-way line merge, and exposes named resolution actions over the
// persisted conflict record.
package conflict

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/chriscase/gitsvnsync/internal/model"
)

// Detect compares svnChanges and gitChanges and returns every conflict
// between them: same-path intersections classified by change kind,
// plus cross-path rename conflicts where both sides renamed the same
// original path to different destinations.
func Detect(svnChanges, gitChanges []model.FileChange) []model.ConflictRecord {
	gitByPath := make(map[string]model.FileChange, len(gitChanges))
	for _, c := range gitChanges {
		gitByPath[c.Path] = c
	}

	var conflicts []model.ConflictRecord
	for _, svnChange := range svnChanges {
		gitChange, ok := gitByPath[svnChange.Path]
		if !ok {
			continue
		}
		ct, ok := classify(svnChange, gitChange)
		if !ok {
			continue
		}
		conflicts = append(conflicts, newConflict(svnChange.Path, ct, svnChange, gitChange))
	}

	conflicts = append(conflicts, detectRenameConflicts(svnChanges, gitChanges)...)

	log.Printf("[conflict] detection complete svn=%d git=%d conflicts=%d", len(svnChanges), len(gitChanges), len(conflicts))
	return conflicts
}

func detectRenameConflicts(svnChanges, gitChanges []model.FileChange) []model.ConflictRecord {
	svnRenames := make(map[string]string) // from -> to
	for _, c := range svnChanges {
		if c.ChangeKind == model.ChangeRenamed {
			svnRenames[c.RenamedFrom] = c.Path
		}
	}
	gitRenames := make(map[string]string)
	for _, c := range gitChanges {
		if c.ChangeKind == model.ChangeRenamed {
			gitRenames[c.RenamedFrom] = c.Path
		}
	}

	var conflicts []model.ConflictRecord
	for from, svnTo := range svnRenames {
		gitTo, ok := gitRenames[from]
		if !ok || svnTo == gitTo {
			continue
		}
		conflicts = append(conflicts, model.ConflictRecord{
			ID:        uuid.NewString(),
			FilePath:  from,
			Type:      model.ConflictRename,
			Status:    model.ConflictDetected,
			CreatedAt: time.Now(),
		})
	}
	return conflicts
}

// classify decides the conflict type (if any) between two changes
// affecting the same path, per the spec's same-path intersection
// table: binary always wins, then content/edit-delete/property
// combinations, with both-deleted and unrelated combinations being no
// conflict at all.
func classify(svn, git model.FileChange) (model.ConflictType, bool) {
	if svn.IsBinary || git.IsBinary {
		return model.ConflictBinary, true
	}

	sk, gk := svn.ChangeKind, git.ChangeKind

	switch {
	case sk == model.ChangeModified && gk == model.ChangeModified,
		sk == model.ChangeAdded && gk == model.ChangeAdded,
		sk == model.ChangeModified && gk == model.ChangeAdded,
		sk == model.ChangeAdded && gk == model.ChangeModified:
		return model.ConflictContent, true

	case sk == model.ChangeModified && gk == model.ChangeDeleted,
		sk == model.ChangeDeleted && gk == model.ChangeModified,
		sk == model.ChangeAdded && gk == model.ChangeDeleted,
		sk == model.ChangeDeleted && gk == model.ChangeAdded:
		return model.ConflictEditDelete, true

	case sk == model.ChangePropertyChanged, gk == model.ChangePropertyChanged:
		return model.ConflictProperty, true

	case sk == model.ChangeDeleted && gk == model.ChangeDeleted:
		return "", false

	default:
		return "", false
	}
}

func newConflict(path string, ct model.ConflictType, svn, git model.FileChange) model.ConflictRecord {
	return model.ConflictRecord{
		ID:         uuid.NewString(),
		FilePath:   path,
		Type:       ct,
		SvnContent: svn.Content,
		GitContent: git.Content,
		Status:     model.ConflictDetected,
		CreatedAt:  time.Now(),
	}
}
