package gitrepo

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestInitAndCommit(t *testing.T) {
	dir := t.TempDir()
	client, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	writeFile(t, dir, "hello.txt", "hello world")

	sha, err := client.Commit("initial commit", "Test", "test@test.com", "Test", "test@test.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if sha == "" {
		t.Fatal("Commit returned empty sha")
	}
	head, err := client.HeadSHA()
	if err != nil {
		t.Fatalf("HeadSHA: %v", err)
	}
	if head != sha {
		t.Errorf("HeadSHA() = %q, want %q", head, sha)
	}
}

func TestCreateAndDeleteBranch(t *testing.T) {
	dir := t.TempDir()
	client, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	writeFile(t, dir, "f.txt", "c")
	sha, err := client.Commit("init", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := client.CreateBranch("feature", sha); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	branches, err := client.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if !contains(branches, "feature") {
		t.Errorf("branches = %v, want to contain feature", branches)
	}

	if err := client.DeleteBranch("feature"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	branches, err = client.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if contains(branches, "feature") {
		t.Errorf("branches = %v, should not contain feature after delete", branches)
	}
}

func TestRepoNotFound(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nonexistent"))
	if err == nil {
		t.Fatal("expected error opening nonexistent repository")
	}
}

func TestIsAncestor(t *testing.T) {
	dir := t.TempDir()
	client, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeFile(t, dir, "a.txt", "a")
	sha1, err := client.Commit("first", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	writeFile(t, dir, "b.txt", "b")
	sha2, err := client.Commit("second", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ok, err := client.IsAncestor(sha1, sha2)
	if err != nil || !ok {
		t.Errorf("IsAncestor(sha1, sha2) = %v, %v, want true, nil", ok, err)
	}
	ok, err = client.IsAncestor(sha2, sha1)
	if err != nil || ok {
		t.Errorf("IsAncestor(sha2, sha1) = %v, %v, want false, nil", ok, err)
	}
}

func TestCheckoutBranchAndReset(t *testing.T) {
	dir := t.TempDir()
	client, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeFile(t, dir, "f.txt", "v1")
	sha1, err := client.Commit("init", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := client.CreateBranch("dev", sha1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := client.CheckoutBranch("dev"); err != nil {
		t.Fatalf("CheckoutBranch: %v", err)
	}

	writeFile(t, dir, "f.txt", "v2")
	sha2, err := client.Commit("update", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	head, err := client.HeadSHA()
	if err != nil || head != sha2 {
		t.Fatalf("HeadSHA = %q, %v, want %q", head, err, sha2)
	}

	if err := client.ResetTo(sha1); err != nil {
		t.Fatalf("ResetTo: %v", err)
	}
	head, err = client.HeadSHA()
	if err != nil || head != sha1 {
		t.Fatalf("HeadSHA after reset = %q, %v, want %q", head, err, sha1)
	}
}

func TestParentCount(t *testing.T) {
	dir := t.TempDir()
	client, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeFile(t, dir, "f.txt", "c")
	sha1, err := client.Commit("init", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	n, err := client.ParentCount(sha1)
	if err != nil || n != 0 {
		t.Fatalf("ParentCount(root) = %d, %v, want 0", n, err)
	}

	writeFile(t, dir, "g.txt", "d")
	sha2, err := client.Commit("second", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	n, err = client.ParentCount(sha2)
	if err != nil || n != 1 {
		t.Fatalf("ParentCount(second) = %d, %v, want 1", n, err)
	}
}

func TestChangedFiles(t *testing.T) {
	dir := t.TempDir()
	client, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeFile(t, dir, "a.txt", "hello")
	sha1, err := client.Commit("add a", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	changes, err := client.ChangedFiles(sha1)
	if err != nil {
		t.Fatalf("ChangedFiles: %v", err)
	}
	if len(changes) != 1 || changes[0].Action != "A" || changes[0].Path != "a.txt" {
		t.Fatalf("changes = %+v", changes)
	}

	writeFile(t, dir, "a.txt", "modified")
	writeFile(t, dir, "b.txt", "new file")
	sha2, err := client.Commit("modify a, add b", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	changes, err = client.ChangedFiles(sha2)
	if err != nil {
		t.Fatalf("ChangedFiles: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("len(changes) = %d, want 2", len(changes))
	}
}

func TestFileContentAtCommit(t *testing.T) {
	dir := t.TempDir()
	client, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeFile(t, dir, "data.txt", "version 1")
	sha1, err := client.Commit("v1", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	writeFile(t, dir, "data.txt", "version 2")
	sha2, err := client.Commit("v2", "T", "t@t.com", "T", "t@t.com")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	content1, err := client.FileContentAtCommit(sha1, "data.txt")
	if err != nil || string(content1) != "version 1" {
		t.Fatalf("FileContentAtCommit(sha1) = %q, %v", content1, err)
	}
	content2, err := client.FileContentAtCommit(sha2, "data.txt")
	if err != nil || string(content2) != "version 2" {
		t.Fatalf("FileContentAtCommit(sha2) = %q, %v", content2, err)
	}

	missing, err := client.FileContentAtCommit(sha1, "nonexistent.txt")
	if err != nil || missing != nil {
		t.Fatalf("FileContentAtCommit(missing) = %v, %v, want nil, nil", missing, err)
	}
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
