// Package commitfmt renders sync commit messages and extracts the
// trailers a rendered message embeds, so the sync engine can suppress
// echoes and recover provenance from either side's history.
package commitfmt

import (
	"strconv"
	"strings"
)

// SyncMarker is embedded in every rendered commit message. Its presence
// anywhere in a message body means the commit originated from this
// bridge and must not be replayed back across the direction it came
// from (echo suppression).
const SyncMarker = "[gitsvnsync]"

// DefaultSvnToGitTemplate mirrors the original bridge's default
// SVN->Git template. Placeholders: {original_message}, {svn_rev},
// {svn_author}, {svn_date}.
const DefaultSvnToGitTemplate = `{original_message}

Synced-From: svn
SVN-Revision: r{svn_rev}
SVN-Author: {svn_author}
SVN-Date: {svn_date}
Sync-Marker: [gitsvnsync]`

// DefaultGitToSvnTemplate mirrors the original bridge's default
// Git->SVN template. Placeholders: {original_message}, {git_sha},
// {pr_number}, {pr_branch}.
const DefaultGitToSvnTemplate = `{original_message}

[gitsvnsync]
Git-SHA: {git_sha}
PR-Number: #{pr_number}
PR-Branch: {pr_branch}`

// Templates holds the SVN->Git and Git->SVN message templates.
type Templates struct {
	SvnToGit string
	GitToSvn string
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() Templates {
	return Templates{SvnToGit: DefaultSvnToGitTemplate, GitToSvn: DefaultGitToSvnTemplate}
}

// Formatter renders commit messages for both sync directions.
type Formatter struct {
	svnToGit string
	gitToSvn string
}

// New creates a Formatter from the given templates. Empty fields fall
// back to the defaults.
func New(t Templates) *Formatter {
	if t.SvnToGit == "" {
		t.SvnToGit = DefaultSvnToGitTemplate
	}
	if t.GitToSvn == "" {
		t.GitToSvn = DefaultGitToSvnTemplate
	}
	return &Formatter{svnToGit: t.SvnToGit, gitToSvn: t.GitToSvn}
}

// FormatSvnToGit renders a commit message for a replayed SVN revision.
func (f *Formatter) FormatSvnToGit(originalMessage string, svnRev int64, svnAuthor, svnDate string) string {
	r := strings.NewReplacer(
		"{original_message}", strings.TrimSpace(originalMessage),
		"{svn_rev}", formatInt(svnRev),
		"{svn_author}", svnAuthor,
		"{svn_date}", svnDate,
	)
	return r.Replace(f.svnToGit)
}

// FormatGitToSvn renders a commit message for a replayed Git commit.
func (f *Formatter) FormatGitToSvn(originalMessage, gitSHA string, prNumber int64, prBranch string) string {
	r := strings.NewReplacer(
		"{original_message}", strings.TrimSpace(originalMessage),
		"{git_sha}", gitSHA,
		"{pr_number}", formatInt(prNumber),
		"{pr_branch}", prBranch,
	)
	return r.Replace(f.gitToSvn)
}

// IsSyncMarker reports whether message carries the echo-suppression marker.
func IsSyncMarker(message string) bool {
	return strings.Contains(message, SyncMarker)
}

// ExtractSvnRev reads the "SVN-Revision: rN" trailer, if present.
func ExtractSvnRev(message string) (int64, bool) {
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "SVN-Revision:"); ok {
			rest = strings.TrimPrefix(strings.TrimSpace(rest), "r")
			if rev, ok := parseInt(rest); ok {
				return rev, true
			}
		}
	}
	return 0, false
}

// ExtractGitSHA reads the "Git-SHA: <hex>" trailer, if present.
func ExtractGitSHA(message string) (string, bool) {
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Git-SHA:"); ok {
			sha := strings.TrimSpace(rest)
			if sha != "" {
				return sha, true
			}
		}
	}
	return "", false
}

// ExtractPRNumber reads the "PR-Number: #N" trailer, if present.
func ExtractPRNumber(message string) (int64, bool) {
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "PR-Number:"); ok {
			rest = strings.TrimPrefix(strings.TrimSpace(rest), "#")
			if num, ok := parseInt(rest); ok {
				return num, true
			}
		}
	}
	return 0, false
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func parseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
