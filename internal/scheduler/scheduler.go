// Package scheduler runs sync cycles on a timer, accepts manual
// trigger requests (e.g. webhook delivery), and broadcasts typed
// lifecycle events for any interested listener.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	gsync "github.com/chriscase/gitsvnsync/internal/sync"
)

// defaultShutdownGrace is how long Stop waits for an in-flight cycle
// to finish before giving up and returning anyway.
const defaultShutdownGrace = 10 * time.Second

// Event is a JSON-serializable lifecycle notification, mirroring the
// original daemon's websocket broadcast messages.
type Event struct {
	Type                  string     `json:"type"`
	Cycle                 uint64     `json:"cycle,omitempty"`
	Trigger               string     `json:"trigger,omitempty"`
	SvnToGit              int        `json:"svn_to_git,omitempty"`
	GitToSvn              int        `json:"git_to_svn,omitempty"`
	PRsProcessed          int        `json:"prs_processed,omitempty"`
	Conflicts             int        `json:"conflicts,omitempty"`
	ConflictsAutoResolved int        `json:"conflicts_auto_resolved,omitempty"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	Error                 string     `json:"error,omitempty"`
}

// Stats accumulates counters across cycles for diagnostics/status
// reporting, mirroring the original's SchedulerStats.
type Stats struct {
	TotalCycles       uint64
	TotalConflicts    uint64
	TotalErrors       uint64
	ConsecutiveErrors uint64
}

// Scheduler drives an Engine's RunCycle on a fixed poll interval,
// additionally accepting manual trigger requests and skipping a tick
// outright (never queueing) if a cycle is already in flight.
type Scheduler struct {
	engine       *gsync.Engine
	pollInterval time.Duration

	triggerCh chan string
	stopCh    chan struct{}
	doneCh    chan struct{}

	subMu sync.Mutex
	subs  []chan Event

	totalCycles       atomic.Uint64
	totalConflicts    atomic.Uint64
	totalErrors       atomic.Uint64
	consecutiveErrors atomic.Uint64

	running atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
}

// Running reports whether the scheduler's loop goroutine is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// New builds a Scheduler. triggerCh is bounded at capacity 1: a second
// manual trigger arriving while one is already pending is dropped, not
// queued, matching spec §4.11's bounded-inbound-channel requirement.
func New(engine *gsync.Engine, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		engine:       engine,
		pollInterval: pollInterval,
		triggerCh:    make(chan string, 1),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start launches the scheduler's loop in a background goroutine. It is
// safe to call only once per Scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.running.Store(true)
		go s.run(ctx)
	})
}

// Stop requests cooperative shutdown and waits up to the default grace
// period for any in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.StopWithGrace(defaultShutdownGrace)
}

// StopWithGrace requests cooperative shutdown, waiting up to grace for
// the run loop to exit. If grace elapses first, Stop returns anyway —
// the run loop will still exit once its current cycle completes,
// mirroring the original daemon's "forcing shutdown" log-and-proceed
// behavior rather than a hard cancel.
func (s *Scheduler) StopWithGrace(grace time.Duration) {
	s.stopOnce.Do(func() { close(s.stopCh) })
	select {
	case <-s.doneCh:
		log.Printf("[scheduler] stopped gracefully")
	case <-time.After(grace):
		log.Printf("[scheduler] did not stop within %s, proceeding anyway", grace)
	}
}

// TriggerSync requests an immediate cycle outside the regular poll
// interval (e.g. a webhook delivery). It returns false without
// blocking if a trigger is already pending.
func (s *Scheduler) TriggerSync(label string) bool {
	select {
	case s.triggerCh <- label:
		return true
	default:
		log.Printf("[scheduler] dropped trigger %q: a trigger is already pending", label)
		return false
	}
}

// Subscribe returns a channel that receives every broadcast Event from
// this point on. The channel is buffered; a slow subscriber misses
// events rather than blocking the scheduler.
func (s *Scheduler) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

// Stats returns a snapshot of the scheduler's running counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		TotalCycles:       s.totalCycles.Load(),
		TotalConflicts:    s.totalConflicts.Load(),
		TotalErrors:       s.totalErrors.Load(),
		ConsecutiveErrors: s.consecutiveErrors.Load(),
	}
}

func (s *Scheduler) broadcast(e Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			log.Printf("[scheduler] subscriber channel full, dropping event type=%s", e.Type)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	s.running.Store(true)
	defer close(s.doneCh)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	log.Printf("[scheduler] started poll_interval=%s", s.pollInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.maybeRunCycle(ctx, "scheduled")
		case trigger := <-s.triggerCh:
			s.maybeRunCycle(ctx, trigger)
			ticker.Reset(s.pollInterval)
		}
	}
}

// maybeRunCycle runs one cycle unless the engine is already mid-cycle,
// in which case it skips outright rather than queueing.
func (s *Scheduler) maybeRunCycle(ctx context.Context, trigger string) {
	if s.engine.Running() {
		log.Printf("[scheduler] skipping sync cycle: previous cycle still running trigger=%s", trigger)
		return
	}

	cycle := s.totalCycles.Add(1)
	log.Printf("[scheduler] starting sync cycle=%d trigger=%s", cycle, trigger)
	s.broadcast(Event{Type: "sync_started", Cycle: cycle, Trigger: trigger})

	stats, err := s.engine.RunCycle(ctx)
	if err != nil {
		var already *coreerrors.AlreadyRunning
		if errors.As(err, &already) {
			// Lost the race between our Running() peek and the
			// engine's own CAS; treat exactly like a skip.
			log.Printf("[scheduler] sync cycle=%d lost race to a concurrent cycle", cycle)
			return
		}

		total := s.totalErrors.Add(1)
		consecutive := s.consecutiveErrors.Add(1)
		log.Printf("[scheduler] sync cycle=%d failed total_errors=%d consecutive_errors=%d: %v", cycle, total, consecutive, err)
		s.broadcast(Event{Type: "sync_failed", Cycle: cycle, Trigger: trigger, Error: err.Error()})
		return
	}

	s.consecutiveErrors.Store(0)
	if stats.ConflictsDetected > 0 {
		s.totalConflicts.Add(uint64(stats.ConflictsDetected))
	}

	log.Printf("[scheduler] sync cycle=%d completed svn_to_git=%d git_to_svn=%d prs=%d conflicts=%d auto_resolved=%d",
		cycle, stats.SvnToGitCommits, stats.GitToSvnCommits, stats.PRsProcessed, stats.ConflictsDetected, stats.ConflictsAutoResolved)
	s.broadcast(Event{
		Type:                  "sync_completed",
		Cycle:                 cycle,
		Trigger:               trigger,
		SvnToGit:              stats.SvnToGitCommits,
		GitToSvn:              stats.GitToSvnCommits,
		PRsProcessed:          stats.PRsProcessed,
		Conflicts:             stats.ConflictsDetected,
		ConflictsAutoResolved: stats.ConflictsAutoResolved,
		StartedAt:             &stats.StartedAt,
		CompletedAt:           &stats.CompletedAt,
	})
}
