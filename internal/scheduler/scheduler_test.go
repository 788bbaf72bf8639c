package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/chriscase/gitsvnsync/internal/config"
	"github.com/chriscase/gitsvnsync/internal/db"
	"github.com/chriscase/gitsvnsync/internal/githubapi"
	"github.com/chriscase/gitsvnsync/internal/gitrepo"
	"github.com/chriscase/gitsvnsync/internal/identity"
	gsync "github.com/chriscase/gitsvnsync/internal/sync"
	"github.com/chriscase/gitsvnsync/internal/svnclient"
)

// newTestEngine wires a real Engine against throwaway on-disk
// collaborators (a scratch sqlite db and a freshly-initialized git
// repo) so the scheduler's loop/trigger/broadcast mechanics can be
// exercised without reaching any network or SVN binary.
func newTestEngine(t *testing.T) *gsync.Engine {
	t.Helper()

	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	git, err := gitrepo.Init(filepath.Join(t.TempDir(), "repo"))
	if err != nil {
		t.Fatalf("gitrepo.Init: %v", err)
	}

	svn := svnclient.New("https://svn.example.com/repo", "user", "pass")
	remote := githubapi.New("https://api.example.com", "acme", "repo", "token")

	mapper, err := identity.New(identity.Config{})
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}

	cfg := config.Config{
		Daemon: config.DaemonConfig{PollIntervalSeconds: 1, DataDirectory: t.TempDir()},
		Remote: config.RemoteConfig{DefaultBranch: "main"},
	}
	return gsync.New(cfg, store, svn, git, remote, mapper)
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	s := New(engine, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	if !s.Running() {
		t.Error("scheduler should be running after Start")
	}

	s.Stop()
	if s.Running() {
		t.Error("scheduler should not be running after Stop")
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	s := New(engine, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Stop()
	s.Stop() // must not panic closing stopCh twice
}

func TestSchedulerContextCancellationStopsLoop(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	s := New(engine, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-s.doneCh:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestSchedulerTriggerSyncDropsWhenPending(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	s := New(engine, time.Hour)
	// Run loop not started: the channel has capacity 1 and nothing
	// ever drains it, so the first send succeeds and the second is
	// dropped rather than blocking.
	if !s.TriggerSync("webhook") {
		t.Error("first TriggerSync should succeed")
	}
	if s.TriggerSync("webhook") {
		t.Error("second TriggerSync should be dropped while one is pending")
	}
}

func TestSchedulerSubscribeReceivesEvents(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	s := New(engine, time.Hour)
	sub := s.Subscribe()

	s.broadcast(Event{Type: "sync_started", Cycle: 1, Trigger: "scheduled"})

	select {
	case e := <-sub:
		if e.Type != "sync_started" || e.Cycle != 1 {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive broadcast event")
	}
}

func TestSchedulerStatsStartAtZero(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	s := New(engine, time.Hour)

	stats := s.Stats()
	if stats.TotalCycles != 0 || stats.TotalErrors != 0 || stats.TotalConflicts != 0 {
		t.Errorf("expected zeroed stats, got %+v", stats)
	}
}
