// Package coreerrors defines the typed error values used across the
// sync engine's subsystems. Each is a concrete struct implementing
// error so callers can recover structured detail with errors.As.
package coreerrors

import "fmt"

// --- SVN adapter errors -----------------------------------------------

type SvnBinaryNotFound struct{ Detail string }

func (e *SvnBinaryNotFound) Error() string {
	return fmt.Sprintf("svn binary not found: %s", e.Detail)
}

type SvnCommandFailed struct {
	Exit   int
	Stderr string
}

func (e *SvnCommandFailed) Error() string {
	return fmt.Sprintf("svn command failed (exit %d): %s", e.Exit, e.Stderr)
}

type SvnXMLParseError struct{ Detail string }

func (e *SvnXMLParseError) Error() string {
	return fmt.Sprintf("failed to parse svn XML output: %s", e.Detail)
}

// --- Local git adapter errors -------------------------------------------

type GitRepositoryNotFound struct{ Path string }

func (e *GitRepositoryNotFound) Error() string {
	return fmt.Sprintf("git repository not found at %q", e.Path)
}

type GitRefNotFound struct{ Ref string }

func (e *GitRefNotFound) Error() string {
	return fmt.Sprintf("git ref not found: %s", e.Ref)
}

type GitPushRejected struct {
	Branch string
	Detail string
}

func (e *GitPushRejected) Error() string {
	return fmt.Sprintf("git push rejected for branch %q: %s", e.Branch, e.Detail)
}

type GitMergeConflict struct{ Detail string }

func (e *GitMergeConflict) Error() string {
	return fmt.Sprintf("git merge conflict: %s", e.Detail)
}

type GitApplyFailed struct{ Detail string }

func (e *GitApplyFailed) Error() string {
	return fmt.Sprintf("git apply failed: %s", e.Detail)
}

// --- Remote (GitHub-compatible) API errors ------------------------------

type APIAuthenticationFailed struct{ Detail string }

func (e *APIAuthenticationFailed) Error() string {
	return fmt.Sprintf("remote API authentication failed: %s", e.Detail)
}

type APIRateLimited struct{ ResetAt string }

func (e *APIRateLimited) Error() string {
	return fmt.Sprintf("remote API rate limit exceeded, resets at %s", e.ResetAt)
}

type APIError struct {
	Status    int
	RequestID string
	Body      string // already redacted + truncated
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API error (HTTP %d, request-id %s): %s", e.Status, e.RequestID, e.Body)
}

type WebhookSignatureInvalid struct{}

func (e *WebhookSignatureInvalid) Error() string { return "webhook signature verification failed" }

// --- Persistence errors --------------------------------------------------

type NotFound struct {
	Entity string
	ID     string
}

func (e *NotFound) Error() string { return fmt.Sprintf("%s not found: %s", e.Entity, e.ID) }

type MigrationFailed struct {
	Version int
	Detail  string
}

func (e *MigrationFailed) Error() string {
	return fmt.Sprintf("database migration failed (version %d): %s", e.Version, e.Detail)
}

// --- Conflict engine errors ------------------------------------------------

type ConflictNotFound struct{ ID string }

func (e *ConflictNotFound) Error() string { return fmt.Sprintf("conflict not found: %s", e.ID) }

type AlreadyResolved struct{ ID string }

func (e *AlreadyResolved) Error() string {
	return fmt.Sprintf("conflict %s is already resolved", e.ID)
}

type InvalidResolution struct {
	ID     string
	Detail string
}

func (e *InvalidResolution) Error() string {
	return fmt.Sprintf("invalid resolution for conflict %s: %s", e.ID, e.Detail)
}

type MergeFailed struct{ Detail string }

func (e *MergeFailed) Error() string { return fmt.Sprintf("three-way merge failed: %s", e.Detail) }

// --- Identity mapper errors ------------------------------------------------

type SvnUserNotFound struct{ Username string }

func (e *SvnUserNotFound) Error() string {
	return fmt.Sprintf("no git identity mapping for svn user %q", e.Username)
}

type GitIdentityNotFound struct {
	Name  string
	Email string
}

func (e *GitIdentityNotFound) Error() string {
	return fmt.Sprintf("no svn user mapping for git identity %q <%s>", e.Name, e.Email)
}

// --- Sync engine errors ------------------------------------------------

type AlreadyRunning struct{ StartedAt string }

func (e *AlreadyRunning) Error() string {
	return fmt.Sprintf("sync already in progress (started at %s)", e.StartedAt)
}

type UnresolvableConflict struct {
	FilePath string
	Detail   string
}

func (e *UnresolvableConflict) Error() string {
	return fmt.Sprintf("unresolvable conflict on %q: %s", e.FilePath, e.Detail)
}

type InvalidStateTransition struct {
	From string
	To   string
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid sync state transition from %s to %s", e.From, e.To)
}
