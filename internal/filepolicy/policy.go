// Package filepolicy decides whether a file participates in sync, is
// ignored outright, is rejected for being oversize, or must be routed
// through Git LFS.
package filepolicy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// DecisionKind is the outcome of evaluating a file against a Policy.
type DecisionKind int

const (
	// Allow means the file syncs normally.
	Allow DecisionKind = iota
	// Ignored means the file matched an ignore pattern and is skipped.
	Ignored
	// Oversize means the file exceeds the configured max size and is
	// rejected entirely (it is not eligible for LFS).
	Oversize
	// LfsTrack means the file exceeds the LFS threshold and must be
	// stored as an LFS pointer instead of synced inline.
	LfsTrack
)

// Decision is the result of Policy.Evaluate. Only the fields relevant
// to Kind are meaningful: Pattern for Ignored, Size+Limit for
// Oversize, Size+Threshold for LfsTrack.
type Decision struct {
	Kind      DecisionKind
	Pattern   string
	Size      uint64
	Limit     uint64
	Threshold uint64
}

// ShouldSync reports whether the file should be synced at all (either
// inline or via LFS).
func (d Decision) ShouldSync() bool {
	return d.Kind == Allow || d.Kind == LfsTrack
}

// IsBlocked reports whether the file is rejected outright.
func (d Decision) IsBlocked() bool {
	return d.Kind == Ignored || d.Kind == Oversize
}

// Label renders a short human-readable explanation for audit logging.
func (d Decision) Label() string {
	switch d.Kind {
	case Allow:
		return "allow"
	case Ignored:
		return fmt.Sprintf("ignored (pattern %q)", d.Pattern)
	case Oversize:
		return fmt.Sprintf("oversize (%s exceeds limit %s)", humanize.Bytes(d.Size), humanize.Bytes(d.Limit))
	case LfsTrack:
		return fmt.Sprintf("lfs-track (%s exceeds threshold %s)", humanize.Bytes(d.Size), humanize.Bytes(d.Threshold))
	default:
		return "unknown"
	}
}

// Policy holds the size and pattern constraints that govern sync
// eligibility for a repository.
type Policy struct {
	maxFileSize    uint64
	ignorePatterns []string
	lfsThreshold   uint64
	lfsEnabled     bool
}

// New creates a Policy with no LFS support. maxFileSize == 0 disables
// the size check.
func New(maxFileSize uint64, ignorePatterns []string) *Policy {
	return &Policy{maxFileSize: maxFileSize, ignorePatterns: ignorePatterns}
}

// WithLFS creates a Policy with LFS routing enabled. lfsThreshold == 0
// disables LFS routing. lfsPatterns is accepted for forward
// compatibility with pattern-based LFS matching but is currently
// unused — only the size threshold drives LfsTrack decisions.
func WithLFS(maxFileSize uint64, ignorePatterns []string, lfsThreshold uint64, lfsPatterns []string) *Policy {
	return &Policy{
		maxFileSize:    maxFileSize,
		ignorePatterns: ignorePatterns,
		lfsThreshold:   lfsThreshold,
		lfsEnabled:     lfsThreshold > 0,
	}
}

// Evaluate decides the fate of a file at relPath (forward-slash,
// repository-relative) with the given size in bytes. Precedence:
// ignore patterns are checked first, then the max size limit, then the
// LFS threshold; only then is the file Allowed.
func (p *Policy) Evaluate(relPath string, size uint64) Decision {
	relPath = filepath.ToSlash(relPath)

	if pattern, ok := p.matchIgnored(relPath); ok {
		return Decision{Kind: Ignored, Pattern: pattern}
	}

	if p.maxFileSize > 0 && size > p.maxFileSize {
		return Decision{Kind: Oversize, Size: size, Limit: p.maxFileSize}
	}

	if p.lfsEnabled && size > p.lfsThreshold {
		return Decision{Kind: LfsTrack, Size: size, Threshold: p.lfsThreshold}
	}

	return Decision{Kind: Allow}
}

// EvaluatePath stats the file at filepath.Join(baseDir, relPath) and
// evaluates it. A stat failure (e.g. the file was deleted concurrently)
// is treated as Allow — deletions are handled by the caller's diff
// logic, not file policy.
func (p *Policy) EvaluatePath(baseDir, relPath string) Decision {
	info, err := os.Stat(filepath.Join(baseDir, relPath))
	if err != nil {
		return Decision{Kind: Allow}
	}
	return p.Evaluate(relPath, uint64(info.Size()))
}

// HasConstraints reports whether this policy can ever produce a
// non-Allow decision.
func (p *Policy) HasConstraints() bool {
	return p.maxFileSize > 0 || len(p.ignorePatterns) > 0 || p.lfsEnabled
}

// MaxFileSize returns the configured size limit (0 if disabled).
func (p *Policy) MaxFileSize() uint64 { return p.maxFileSize }

// LfsEnabled reports whether LFS routing is active.
func (p *Policy) LfsEnabled() bool { return p.lfsEnabled }

// LfsThreshold returns the configured LFS threshold (0 if disabled).
func (p *Policy) LfsThreshold() uint64 { return p.lfsThreshold }

func (p *Policy) matchIgnored(relPath string) (string, bool) {
	for _, pattern := range p.ignorePatterns {
		if matchesPattern(pattern, relPath) {
			return pattern, true
		}
	}
	return "", false
}

// matchesPattern matches a single ignore pattern against a
// repository-relative path. A pattern with no '/' matches against the
// path's base name as well as the full path, mirroring gitignore-style
// single-segment patterns (e.g. "*.log" ignores any .log file at any
// depth).
func matchesPattern(pattern, relPath string) bool {
	if matchPattern(pattern, relPath) {
		return true
	}
	if !strings.Contains(pattern, "/") {
		return matchPattern(pattern, filepath.Base(relPath))
	}
	return false
}
