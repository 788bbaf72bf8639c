package sync

import (
	"testing"

	"github.com/chriscase/gitsvnsync/internal/conflict"
	"github.com/chriscase/gitsvnsync/internal/model"
	"github.com/chriscase/gitsvnsync/internal/svnclient"
)

func TestRelativizeSvnPath(t *testing.T) {
	cases := []struct {
		path, trunk, want string
	}{
		{"/trunk/src/x.txt", "/trunk", "src/x.txt"},
		{"/trunk/x.txt", "trunk", "x.txt"},
		{"/trunk/x.txt", "/trunk/", "x.txt"},
		{"/trunk", "/trunk", ""},
		{"/x.txt", "", "x.txt"},
	}
	for _, c := range cases {
		if got := relativizeSvnPath(c.path, c.trunk); got != c.want {
			t.Errorf("relativizeSvnPath(%q, %q) = %q, want %q", c.path, c.trunk, got, c.want)
		}
	}
}

func TestSvnChangesFromDiffStripsTrunkPrefix(t *testing.T) {
	entry := svnclient.LogEntry{
		ChangedPaths: []svnclient.ChangedPath{
			{Path: "/trunk/x.txt", Action: "M"},
		},
	}

	changes := svnChangesFromDiff(entry, "/trunk")
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	if changes[0].Path != "x.txt" {
		t.Errorf("changes[0].Path = %q, want %q", changes[0].Path, "x.txt")
	}
}

// TestSvnChangesFromDiffIntersectsGitChanges is the end-to-end
// regression for the repo-absolute-vs-repo-relative path mismatch: a
// real `svn log --xml` changed-path always carries the trunk prefix,
// while Git's changed-file paths never do. Unless svnChangesFromDiff
// relativizes against the configured trunk, this same-path edit never
// intersects and the conflict engine silently detects nothing.
func TestSvnChangesFromDiffIntersectsGitChanges(t *testing.T) {
	entry := svnclient.LogEntry{
		ChangedPaths: []svnclient.ChangedPath{
			{Path: "/trunk/x.txt", Action: "M"},
		},
	}
	svnChanges := svnChangesFromDiff(entry, "/trunk")
	gitChanges := []model.FileChange{
		{Path: "x.txt", ChangeKind: model.ChangeModified},
	}

	conflicts := conflict.Detect(svnChanges, gitChanges)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1 (svn path %q vs git path %q should intersect)",
			len(conflicts), svnChanges[0].Path, gitChanges[0].Path)
	}
	if conflicts[0].FilePath != "x.txt" {
		t.Errorf("conflicts[0].FilePath = %q, want %q", conflicts[0].FilePath, "x.txt")
	}
}
