// Package model defines the core domain types shared across the
// persistence store, sync engine, and conflict engine.
package model

import "time"

// Direction tags which side of the bridge a commit-map pairing or audit
// entry originated from.
type Direction string

const (
	DirectionSvnToGit Direction = "svn_to_git"
	DirectionGitToSvn Direction = "git_to_svn"
)

// MergeStrategy classifies how a merged pull request reached the default
// branch.
type MergeStrategy string

const (
	MergeStrategyMerge   MergeStrategy = "merge"
	MergeStrategySquash  MergeStrategy = "squash"
	MergeStrategyRebase  MergeStrategy = "rebase"
	MergeStrategyUnknown MergeStrategy = "unknown"
)

// PRSyncStatus is the lifecycle status of a pr_sync_log row.
type PRSyncStatus string

const (
	PRSyncPending   PRSyncStatus = "pending"
	PRSyncCompleted PRSyncStatus = "completed"
	PRSyncFailed    PRSyncStatus = "failed"
)

// ConflictType classifies a detected conflict.
type ConflictType string

const (
	ConflictContent    ConflictType = "content"
	ConflictEditDelete ConflictType = "edit_delete"
	ConflictRename     ConflictType = "rename"
	ConflictProperty   ConflictType = "property"
	ConflictBranch     ConflictType = "branch"
	ConflictBinary     ConflictType = "binary"
)

// ConflictStatus is the lifecycle status of a conflict record.
type ConflictStatus string

const (
	ConflictDetected  ConflictStatus = "detected"
	ConflictQueued    ConflictStatus = "queued"
	ConflictResolving ConflictStatus = "resolving"
	ConflictResolved  ConflictStatus = "resolved"
	ConflictDeferred  ConflictStatus = "deferred"
)

// Resolution tags how a conflict was finally resolved.
type Resolution string

const (
	ResolutionAcceptSvn    Resolution = "accept_svn"
	ResolutionAcceptGit    Resolution = "accept_git"
	ResolutionAcceptMerged Resolution = "accept_merged"
	ResolutionDeferred     Resolution = "deferred"
)

// SyncRecordStatus is the per-attempt ledger status (§ sync_records).
type SyncRecordStatus string

const (
	SyncRecordPending   SyncRecordStatus = "pending"
	SyncRecordCompleted SyncRecordStatus = "completed"
	SyncRecordFailed    SyncRecordStatus = "failed"
)

// SyncState names a state in the sync engine's state machine.
type SyncState string

const (
	StateIdle              SyncState = "idle"
	StatePollingSvn        SyncState = "polling_svn"
	StateApplyingSvnToGit  SyncState = "applying_svn_to_git"
	StatePollingGitPRs     SyncState = "polling_git_prs"
	StateApplyingGitToSvn  SyncState = "applying_git_to_svn"
	StateConflictDetected  SyncState = "conflict_detected"
	StateError             SyncState = "error"
)

// Watermark is the highest already-processed cursor for one direction.
type Watermark struct {
	Source    string
	Value     string
	UpdatedAt time.Time
}

// CommitMapEntry pairs an SVN revision with a Git commit SHA.
type CommitMapEntry struct {
	ID        int64
	SvnRev    int64
	GitSHA    string
	Direction Direction
	SyncedAt  time.Time
	SvnAuthor string
	GitAuthor string
}

// PRSyncEntry records the replay status of one merged pull request.
type PRSyncEntry struct {
	ID            int64
	PRNumber      int64
	PRTitle       string
	PRBranch      string
	MergeSHA      string
	MergeStrategy MergeStrategy
	SvnRevStart   int64
	SvnRevEnd     int64
	CommitCount   int64
	Status        PRSyncStatus
	ErrorMessage  string
	DetectedAt    time.Time
	CompletedAt   *time.Time
}

// ConflictRecord is a detected conflict awaiting resolution.
type ConflictRecord struct {
	ID          string
	FilePath    string
	Type        ConflictType
	SvnContent  *string
	GitContent  *string
	BaseContent *string
	SvnRev      *int64
	GitSHA      *string
	Status      ConflictStatus
	Resolution  *Resolution
	ResolvedBy  *string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// AuditEntry is an append-only log line describing a significant event.
type AuditEntry struct {
	ID        int64
	Action    string
	Direction *Direction
	SvnRev    *int64
	GitSHA    *string
	Author    *string
	Details   *string
	Success   bool
	CreatedAt time.Time
}

// SyncRecord is the per-attempt ledger entry backing the "cumulative
// counts of sync records" status field. It is written for every replay
// unit the sync engine attempts, independent of the permanent,
// idempotent commit_map row.
type SyncRecord struct {
	ID        string
	SvnRev    *int64
	GitSHA    *string
	Direction Direction
	Author    string
	Message   string
	Timestamp time.Time
	SyncedAt  time.Time
	Status    SyncRecordStatus
}

// ChangeKind is the kind of change to a file within one side's change set.
type ChangeKind string

const (
	ChangeAdded            ChangeKind = "added"
	ChangeModified         ChangeKind = "modified"
	ChangeDeleted          ChangeKind = "deleted"
	ChangeRenamed          ChangeKind = "renamed"
	ChangePropertyChanged  ChangeKind = "property_changed"
)

// FileChange represents a single file change from one side (SVN or Git).
type FileChange struct {
	Path        string
	ChangeKind  ChangeKind
	RenamedFrom string // only set when ChangeKind == ChangeRenamed
	Content     *string
	IsBinary    bool
}

// CycleStats are the counters emitted by one completed sync cycle.
type CycleStats struct {
	SvnToGitCommits     int
	GitToSvnCommits     int
	PRsProcessed        int
	ConflictsDetected   int
	ConflictsAutoResolved int
	StartedAt           time.Time
	CompletedAt         time.Time
}

// StatusSnapshot is the structure returned by the sync engine's status
// query (spec § 4.10).
type StatusSnapshot struct {
	State             SyncState
	LastSyncAt        time.Time
	LastSvnRev        int64
	LastGitSHA        string
	TotalSyncRecords  int64
	TotalConflicts    int64
	ActiveConflicts   int64
	TotalErrors       int64
	UptimeSeconds     int64
}

// GitIdentity is a Git author/committer identity (name + email).
type GitIdentity struct {
	Name  string
	Email string
}
