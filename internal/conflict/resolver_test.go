package conflict

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/db"
	"github.com/chriscase/gitsvnsync/internal/model"
)

func openTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func TestResolverAcceptSvn(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	c := model.ConflictRecord{
		ID:         "c1",
		FilePath:   "a.txt",
		Type:       model.ConflictContent,
		SvnContent: strPtr("svn version"),
		GitContent: strPtr("git version"),
		Status:     model.ConflictDetected,
	}
	if err := store.InsertConflict(ctx, c); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store)
	content, err := r.AcceptSvn(ctx, "c1", "jdoe")
	if err != nil {
		t.Fatal(err)
	}
	if content != "svn version" {
		t.Errorf("got %q, want svn version", content)
	}

	if _, err := r.AcceptSvn(ctx, "c1", "jdoe"); !errors.As(err, new(*coreerrors.AlreadyResolved)) {
		t.Errorf("got %v, want AlreadyResolved", err)
	}
}

func TestResolverAcceptGit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	c := model.ConflictRecord{
		ID:         "c2",
		FilePath:   "a.txt",
		Type:       model.ConflictContent,
		SvnContent: strPtr("svn version"),
		GitContent: strPtr("git version"),
		Status:     model.ConflictDetected,
	}
	if err := store.InsertConflict(ctx, c); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store)
	content, err := r.AcceptGit(ctx, "c2", "jdoe")
	if err != nil {
		t.Fatal(err)
	}
	if content != "git version" {
		t.Errorf("got %q, want git version", content)
	}
}

func TestResolverAttemptAutoMergeClean(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	c := model.ConflictRecord{
		ID:          "c3",
		FilePath:    "a.txt",
		Type:        model.ConflictContent,
		BaseContent: strPtr("line1\nline2\nline3"),
		SvnContent:  strPtr("ours1\nline2\nline3"),
		GitContent:  strPtr("line1\nline2\ntheirs3"),
		Status:      model.ConflictDetected,
	}
	if err := store.InsertConflict(ctx, c); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store)
	merged, err := r.AttemptAutoMerge(ctx, "c3", "jdoe")
	if err != nil {
		t.Fatalf("expected clean auto-merge, got %v", err)
	}
	want := "ours1\nline2\ntheirs3"
	if merged != want {
		t.Errorf("got %q, want %q", merged, want)
	}

	got, err := store.GetConflict(ctx, "c3")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.ConflictResolved {
		t.Errorf("status = %v, want resolved", got.Status)
	}
}

func TestResolverAttemptAutoMergeConflicting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	c := model.ConflictRecord{
		ID:          "c4",
		FilePath:    "a.txt",
		Type:        model.ConflictContent,
		BaseContent: strPtr("line1\nline2\nline3"),
		SvnContent:  strPtr("line1\nours-change\nline3"),
		GitContent:  strPtr("line1\ntheirs-change\nline3"),
		Status:      model.ConflictDetected,
	}
	if err := store.InsertConflict(ctx, c); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store)
	_, err := r.AttemptAutoMerge(ctx, "c4", "jdoe")
	if !errors.As(err, new(*coreerrors.UnresolvableConflict)) {
		t.Fatalf("got %v, want UnresolvableConflict", err)
	}

	got, err := store.GetConflict(ctx, "c4")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status == model.ConflictResolved {
		t.Error("conflict should remain unresolved after a failed auto-merge")
	}
}

func TestResolverDeferBypassesAlreadyResolved(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	c := model.ConflictRecord{
		ID:         "c5",
		FilePath:   "a.txt",
		Type:       model.ConflictContent,
		SvnContent: strPtr("svn"),
		GitContent: strPtr("git"),
		Status:     model.ConflictDetected,
	}
	if err := store.InsertConflict(ctx, c); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store)
	if _, err := r.AcceptSvn(ctx, "c5", "jdoe"); err != nil {
		t.Fatal(err)
	}
	if err := r.Defer(ctx, "c5", "jdoe"); err != nil {
		t.Fatalf("defer on resolved conflict should succeed, got %v", err)
	}
}
