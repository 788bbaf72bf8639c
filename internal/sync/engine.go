// Package sync implements the bidirectional SVN<->Git sync engine:
// the state machine that drives one cycle (SVN->Git replay, then
// Git->SVN replay), echo suppression, conflict handling, and the
// single-run invariant the spec requires.
package sync

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscase/gitsvnsync/internal/commitfmt"
	"github.com/chriscase/gitsvnsync/internal/config"
	"github.com/chriscase/gitsvnsync/internal/conflict"
	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/db"
	"github.com/chriscase/gitsvnsync/internal/filepolicy"
	"github.com/chriscase/gitsvnsync/internal/githubapi"
	"github.com/chriscase/gitsvnsync/internal/gitrepo"
	"github.com/chriscase/gitsvnsync/internal/identity"
	"github.com/chriscase/gitsvnsync/internal/model"
	"github.com/chriscase/gitsvnsync/internal/svnclient"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	watermarkSvnRev = "svn_rev"
	watermarkGitSHA = "git_sha"
)

// Engine orchestrates one mirror's sync cycles. It holds exactly one
// connection to each external collaborator (persistence, SVN, local
// Git, the remote API) plus the pure-computation subsystems (identity,
// commit formatting, file policy, conflict detection/merge).
type Engine struct {
	cfg      config.Config
	store    *db.Store
	svn      *svnclient.Client
	git      *gitrepo.Client
	remote   *githubapi.Client
	identity *identity.Mapper
	fmt      *commitfmt.Formatter
	policy   *filepolicy.Policy
	resolver *conflict.Resolver

	running   atomic.Bool
	startedAt atomic.Value // string, RFC3339

	mu          sync.RWMutex
	state       model.SyncState
	lastStats   model.CycleStats
	processedAt time.Time
	startTime   time.Time
}

// New builds an Engine wiring every subsystem the cycle needs.
func New(cfg config.Config, store *db.Store, svn *svnclient.Client, git *gitrepo.Client, remote *githubapi.Client, mapper *identity.Mapper) *Engine {
	policy := filepolicy.WithLFS(
		uint64(cfg.Options.MaxFileSize),
		cfg.Options.IgnorePatterns,
		uint64(cfg.Options.LfsThreshold),
		cfg.Options.LfsPatterns,
	)
	e := &Engine{
		cfg:       cfg,
		store:     store,
		svn:       svn,
		git:       git,
		remote:    remote,
		identity:  mapper,
		fmt:       commitfmt.New(commitfmt.Templates{SvnToGit: cfg.Commit.SvnToGitTemplate, GitToSvn: cfg.Commit.GitToSvnTemplate}),
		policy:    policy,
		resolver:  conflict.NewResolver(store),
		state:     model.StateIdle,
		startTime: time.Now(),
	}
	return e
}

// Running reports whether a cycle is currently in flight, letting a
// scheduler skip a tick without racing RunCycle's own CAS guard.
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) setState(s model.SyncState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// RunCycle runs exactly one sync cycle: phase A (SVN->Git), then phase
// B (Git->SVN). The two phases are independent — a phase A failure
// still lets phase B attempt its work, and vice versa. Only one cycle
// may run at a time per Engine; a concurrent call returns
// AlreadyRunning immediately.
func (e *Engine) RunCycle(ctx context.Context) (*model.CycleStats, error) {
	if !e.running.CompareAndSwap(false, true) {
		started, _ := e.startedAt.Load().(string)
		return nil, &coreerrors.AlreadyRunning{StartedAt: started}
	}
	e.startedAt.Store(time.Now().Format(time.RFC3339))
	defer e.running.Store(false)

	e.warmCycleStart(ctx)

	stats := model.CycleStats{StartedAt: time.Now()}

	e.setState(model.StatePollingSvn)
	svnErr := e.runPhaseSvnToGit(ctx, &stats)

	e.setState(model.StatePollingGitPRs)
	gitErr := e.runPhaseGitToSvn(ctx, &stats)

	stats.CompletedAt = time.Now()

	e.mu.Lock()
	e.lastStats = stats
	e.processedAt = stats.CompletedAt
	switch {
	case stats.ConflictsDetected > 0:
		e.state = model.StateConflictDetected
	case svnErr != nil || gitErr != nil:
		e.state = model.StateError
	default:
		e.state = model.StateIdle
	}
	e.mu.Unlock()

	return &stats, errors.Join(svnErr, gitErr)
}

// warmCycleStart fans out the two independent, no-ordering-constraint
// checks a cycle can do before either phase touches the shared Git
// working tree: confirming SVN is reachable and checking the remote
// token's rate-limit headroom. Neither result gates the cycle — a
// failure here is logged and the phases run anyway — this is early
// warning, not a precondition.
func (e *Engine) warmCycleStart(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := e.svn.Info(gctx); err != nil {
			log.Printf("[sync] cycle warm-up: svn info failed: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		rl, err := e.remote.GetRateLimit(gctx)
		if err != nil {
			log.Printf("[sync] cycle warm-up: rate limit check failed: %v", err)
			return nil
		}
		if rl.Remaining < rl.Limit/10 {
			log.Printf("[sync] cycle warm-up: remote rate limit low, remaining=%d/%d", rl.Remaining, rl.Limit)
		}
		return nil
	})
	_ = g.Wait()
}

// Status returns the current snapshot the external dashboard/CLI
// collaborators query (spec §4.10).
func (e *Engine) Status(ctx context.Context) (*model.StatusSnapshot, error) {
	e.mu.RLock()
	state := e.state
	lastSync := e.processedAt
	e.mu.RUnlock()

	snap := &model.StatusSnapshot{
		State:         state,
		LastSyncAt:    lastSync,
		UptimeSeconds: int64(time.Since(e.startTime).Seconds()),
	}

	if wm, err := e.store.GetWatermark(ctx, watermarkSvnRev); err == nil {
		snap.LastSvnRev, _ = strconv.ParseInt(wm.Value, 10, 64)
	} else if !isNotFound(err) {
		return nil, err
	}
	if wm, err := e.store.GetWatermark(ctx, watermarkGitSHA); err == nil {
		snap.LastGitSHA = wm.Value
	} else if !isNotFound(err) {
		return nil, err
	}

	var err error
	if snap.TotalSyncRecords, err = e.store.CountSyncRecords(ctx); err != nil {
		return nil, err
	}
	if snap.TotalConflicts, err = e.store.CountConflicts(ctx); err != nil {
		return nil, err
	}
	active, err := e.store.ListActiveConflicts(ctx)
	if err != nil {
		return nil, err
	}
	snap.ActiveConflicts = int64(len(active))
	if snap.TotalErrors, err = e.store.CountAuditFailures(ctx); err != nil {
		return nil, err
	}

	return snap, nil
}

func isNotFound(err error) bool {
	var nf *coreerrors.NotFound
	return errors.As(err, &nf)
}

// resolveSvnToGitIdentity picks the Git author identity for an SVN
// commit: the mapped identity in multi-user mode, or the single
// configured developer identity when no mapping file is configured
// (personal/team topology, spec's primary mode).
func (e *Engine) resolveSvnToGitIdentity(svnAuthor string) model.GitIdentity {
	if e.cfg.Identity.MappingFile == "" {
		return model.GitIdentity{Name: e.cfg.Identity.DeveloperName, Email: e.cfg.Identity.DeveloperEmail}
	}
	identity, err := e.identity.SvnToGit(svnAuthor)
	if err != nil {
		log.Printf("[sync] identity: svn->git lookup for %q failed, falling back to developer identity: %v", svnAuthor, err)
		return model.GitIdentity{Name: e.cfg.Identity.DeveloperName, Email: e.cfg.Identity.DeveloperEmail}
	}
	return identity
}

// resolveGitToSvnUsername picks the SVN username to commit as for a
// Git author: the mapped username in multi-user mode, or the single
// configured developer SVN username otherwise.
func (e *Engine) resolveGitToSvnUsername(gitName, gitEmail string) string {
	if e.cfg.Identity.MappingFile == "" {
		return e.cfg.Identity.DeveloperSvnUsername
	}
	username, err := e.identity.GitToSvn(gitName, gitEmail)
	if err != nil {
		log.Printf("[sync] identity: git->svn lookup for %q <%s> failed, falling back to developer svn username: %v", gitName, gitEmail, err)
		return e.cfg.Identity.DeveloperSvnUsername
	}
	return username
}

func newConflictID() string {
	return uuid.NewString()
}

func (e *Engine) audit(ctx context.Context, action string, direction *model.Direction, svnRev *int64, gitSHA *string, author *string, details string, success bool) {
	d := details
	if err := e.store.InsertAudit(ctx, model.AuditEntry{
		Action:    action,
		Direction: direction,
		SvnRev:    svnRev,
		GitSHA:    gitSHA,
		Author:    author,
		Details:   &d,
		Success:   success,
	}); err != nil {
		log.Printf("[sync] failed to write audit entry action=%s: %v", action, err)
	}
}

func directionPtr(d model.Direction) *model.Direction { return &d }
func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
func int64Ptr(n int64) *int64 { return &n }
