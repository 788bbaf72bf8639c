package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store
}

func TestOpenAndClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("store file was not created")
	}
}

func TestOpenRecreatesIncompatibleSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.DB().Exec(`ALTER TABLE commit_map RENAME COLUMN git_sha TO renamed_column`); err != nil {
		t.Fatalf("setup: %v", err)
	}
	store.Close()

	// Force the schema version check to pass so the corrupted column
	// shows up only once a real query touches it.
	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.CommitMapBySvnRev(context.Background(), 1, model.DirectionSvnToGit); err == nil {
		t.Skip("schema drift not exercised by this migration path")
	}
}

func TestWatermarkRoundTrip(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	if _, err := store.GetWatermark(ctx, "svn"); !isNotFound(err) {
		t.Fatalf("expected NotFound before any watermark is set, got %v", err)
	}

	if err := store.SetWatermark(ctx, "svn", "142"); err != nil {
		t.Fatalf("SetWatermark: %v", err)
	}
	got, err := store.GetWatermark(ctx, "svn")
	if err != nil {
		t.Fatalf("GetWatermark: %v", err)
	}
	if got.Value != "142" {
		t.Errorf("watermark value = %q, want 142", got.Value)
	}

	if err := store.SetWatermark(ctx, "svn", "150"); err != nil {
		t.Fatalf("SetWatermark update: %v", err)
	}
	got, err = store.GetWatermark(ctx, "svn")
	if err != nil {
		t.Fatalf("GetWatermark: %v", err)
	}
	if got.Value != "150" {
		t.Errorf("watermark value after update = %q, want 150", got.Value)
	}
}

func TestCommitMapUniqueness(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	entry := model.CommitMapEntry{
		SvnRev:    42,
		GitSHA:    "abc123",
		Direction: model.DirectionSvnToGit,
		SyncedAt:  time.Now(),
		SvnAuthor: "jdoe",
		GitAuthor: "jdoe@example.com",
	}
	if err := store.InsertCommitMap(ctx, entry); err != nil {
		t.Fatalf("InsertCommitMap: %v", err)
	}
	if err := store.InsertCommitMap(ctx, entry); err == nil {
		t.Error("expected duplicate (svn_rev, direction) insert to fail")
	}

	got, err := store.CommitMapBySvnRev(ctx, 42, model.DirectionSvnToGit)
	if err != nil {
		t.Fatalf("CommitMapBySvnRev: %v", err)
	}
	if got.GitSHA != "abc123" {
		t.Errorf("GitSHA = %q, want abc123", got.GitSHA)
	}

	rev, err := store.LatestSvnRev(ctx, model.DirectionSvnToGit)
	if err != nil {
		t.Fatalf("LatestSvnRev: %v", err)
	}
	if rev != 42 {
		t.Errorf("LatestSvnRev = %d, want 42", rev)
	}
}

func TestConflictLifecycle(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	c := model.ConflictRecord{
		ID:        "conflict-1",
		FilePath:  "src/main.c",
		Type:      model.ConflictContent,
		Status:    model.ConflictDetected,
		CreatedAt: time.Now(),
	}
	if err := store.InsertConflict(ctx, c); err != nil {
		t.Fatalf("InsertConflict: %v", err)
	}

	active, err := store.ListActiveConflicts(ctx)
	if err != nil {
		t.Fatalf("ListActiveConflicts: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("len(active) = %d, want 1", len(active))
	}

	if err := store.ResolveConflict(ctx, "conflict-1", model.ResolutionAcceptGit, "jdoe"); err != nil {
		t.Fatalf("ResolveConflict: %v", err)
	}

	err = store.ResolveConflict(ctx, "conflict-1", model.ResolutionAcceptGit, "jdoe")
	var already *coreerrors.AlreadyResolved
	if !errors.As(err, &already) {
		t.Errorf("expected AlreadyResolved on double-resolve, got %v", err)
	}

	active, err = store.ListActiveConflicts(ctx)
	if err != nil {
		t.Fatalf("ListActiveConflicts: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("len(active) after resolve = %d, want 0", len(active))
	}
}

func TestDeferConflictBypassesAlreadyResolved(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	c := model.ConflictRecord{
		ID:        "conflict-2",
		FilePath:  "src/lib.c",
		Type:      model.ConflictContent,
		Status:    model.ConflictDetected,
		CreatedAt: time.Now(),
	}
	if err := store.InsertConflict(ctx, c); err != nil {
		t.Fatalf("InsertConflict: %v", err)
	}

	if err := store.ResolveConflict(ctx, "conflict-2", model.ResolutionAcceptSvn, "jdoe"); err != nil {
		t.Fatalf("ResolveConflict: %v", err)
	}

	// Unlike ResolveConflict, DeferConflict must succeed even though
	// the conflict is already resolved.
	if err := store.DeferConflict(ctx, "conflict-2", "jdoe"); err != nil {
		t.Fatalf("DeferConflict on already-resolved conflict: %v", err)
	}

	got, err := store.GetConflict(ctx, "conflict-2")
	if err != nil {
		t.Fatalf("GetConflict: %v", err)
	}
	if got.Status != model.ConflictDeferred {
		t.Errorf("status = %v, want %v", got.Status, model.ConflictDeferred)
	}
	if got.Resolution == nil || *got.Resolution != model.ResolutionDeferred {
		t.Errorf("resolution = %v, want %v", got.Resolution, model.ResolutionDeferred)
	}
}

func TestTrySetStateIsExclusive(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	ok, err := store.TrySetState(ctx, "run_lock", "host-a")
	if err != nil || !ok {
		t.Fatalf("first TrySetState: ok=%v err=%v", ok, err)
	}

	ok, err = store.TrySetState(ctx, "run_lock", "host-b")
	if err != nil {
		t.Fatalf("second TrySetState: %v", err)
	}
	if ok {
		t.Error("second TrySetState should not acquire an already-held lock")
	}

	if err := store.DeleteState(ctx, "run_lock"); err != nil {
		t.Fatalf("DeleteState: %v", err)
	}
	ok, err = store.TrySetState(ctx, "run_lock", "host-b")
	if err != nil || !ok {
		t.Fatalf("TrySetState after release: ok=%v err=%v", ok, err)
	}
}

func TestPRSyncLifecycle(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	id, err := store.InsertPRSync(ctx, model.PRSyncEntry{
		PRNumber:      7,
		PRTitle:       "Add feature",
		PRBranch:      "feature/x",
		MergeSHA:      "deadbeef",
		MergeStrategy: model.MergeStrategySquash,
		Status:        model.PRSyncPending,
		DetectedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertPRSync: %v", err)
	}

	pending, err := store.ListPendingOrFailedPRSync(ctx)
	if err != nil {
		t.Fatalf("ListPendingOrFailedPRSync: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}

	if err := store.CompletePRSync(ctx, id, 100, 103); err != nil {
		t.Fatalf("CompletePRSync: %v", err)
	}

	got, err := store.PRSyncByNumber(ctx, 7)
	if err != nil {
		t.Fatalf("PRSyncByNumber: %v", err)
	}
	if got.Status != model.PRSyncCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.SvnRevEnd != 103 {
		t.Errorf("SvnRevEnd = %d, want 103", got.SvnRevEnd)
	}
}

func isNotFound(err error) bool {
	var nf *coreerrors.NotFound
	return errors.As(err, &nf)
}
