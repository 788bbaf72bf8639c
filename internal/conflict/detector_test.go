package conflict

import (
	"testing"

	"github.com/chriscase/gitsvnsync/internal/model"
)

func TestDetectContentConflict(t *testing.T) {
	svn := []model.FileChange{{Path: "a.txt", ChangeKind: model.ChangeModified}}
	git := []model.FileChange{{Path: "a.txt", ChangeKind: model.ChangeModified}}

	conflicts := Detect(svn, git)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	if conflicts[0].Type != model.ConflictContent {
		t.Errorf("got type %v, want content", conflicts[0].Type)
	}
}

func TestDetectNoConflictDifferentPaths(t *testing.T) {
	svn := []model.FileChange{{Path: "a.txt", ChangeKind: model.ChangeModified}}
	git := []model.FileChange{{Path: "b.txt", ChangeKind: model.ChangeModified}}

	if conflicts := Detect(svn, git); len(conflicts) != 0 {
		t.Fatalf("got %d conflicts, want 0", len(conflicts))
	}
}

func TestDetectBothDeletedIsNoConflict(t *testing.T) {
	svn := []model.FileChange{{Path: "a.txt", ChangeKind: model.ChangeDeleted}}
	git := []model.FileChange{{Path: "a.txt", ChangeKind: model.ChangeDeleted}}

	if conflicts := Detect(svn, git); len(conflicts) != 0 {
		t.Fatalf("got %d conflicts, want 0", len(conflicts))
	}
}

func TestDetectEditDeleteConflict(t *testing.T) {
	svn := []model.FileChange{{Path: "a.txt", ChangeKind: model.ChangeModified}}
	git := []model.FileChange{{Path: "a.txt", ChangeKind: model.ChangeDeleted}}

	conflicts := Detect(svn, git)
	if len(conflicts) != 1 || conflicts[0].Type != model.ConflictEditDelete {
		t.Fatalf("got %+v, want single edit_delete conflict", conflicts)
	}
}

func TestDetectBinaryAlwaysWins(t *testing.T) {
	svn := []model.FileChange{{Path: "a.bin", ChangeKind: model.ChangeModified, IsBinary: true}}
	git := []model.FileChange{{Path: "a.bin", ChangeKind: model.ChangePropertyChanged}}

	conflicts := Detect(svn, git)
	if len(conflicts) != 1 || conflicts[0].Type != model.ConflictBinary {
		t.Fatalf("got %+v, want single binary conflict", conflicts)
	}
}

func TestDetectRenameConflict(t *testing.T) {
	svn := []model.FileChange{{Path: "new-svn.txt", ChangeKind: model.ChangeRenamed, RenamedFrom: "old.txt"}}
	git := []model.FileChange{{Path: "new-git.txt", ChangeKind: model.ChangeRenamed, RenamedFrom: "old.txt"}}

	conflicts := Detect(svn, git)
	if len(conflicts) != 1 || conflicts[0].Type != model.ConflictRename {
		t.Fatalf("got %+v, want single rename conflict", conflicts)
	}
}

func TestDetectSameRenameIsNoConflict(t *testing.T) {
	svn := []model.FileChange{{Path: "new.txt", ChangeKind: model.ChangeRenamed, RenamedFrom: "old.txt"}}
	git := []model.FileChange{{Path: "new.txt", ChangeKind: model.ChangeRenamed, RenamedFrom: "old.txt"}}

	if conflicts := Detect(svn, git); len(conflicts) != 0 {
		t.Fatalf("got %d conflicts, want 0", len(conflicts))
	}
}
