package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/chriscase/gitsvnsync/internal/config"
	"github.com/chriscase/gitsvnsync/internal/db"
	"github.com/chriscase/gitsvnsync/internal/githubapi"
	"github.com/chriscase/gitsvnsync/internal/gitrepo"
	"github.com/chriscase/gitsvnsync/internal/svnclient"
)

func newTestImporter(t *testing.T, remoteServer *httptest.Server, autoCreate bool) (*Importer, *db.Store) {
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
	remote := githubapi.New(remoteServer.URL, "acme", "repo", "token")

	cfg := config.Config{
		Remote: config.RemoteConfig{Repo: "acme/repo", AutoCreate: autoCreate, DefaultBranch: "main"},
	}
	return New(cfg, store, svn, git, remote), store
}

func TestImportRefusesWhenWatermarkAlreadySet(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected remote API call: %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()

	im, store := newTestImporter(t, server, true)
	ctx := context.Background()
	if err := store.SetWatermark(ctx, watermarkSvnRev, "42"); err != nil {
		t.Fatalf("SetWatermark: %v", err)
	}

	if _, err := im.Import(ctx, ModeSnapshot); err == nil {
		t.Fatal("expected Import to refuse when svn_rev watermark is already set")
	}
}

func TestEnsureRemoteRepoFailsWhenMissingAndAutoCreateDisabled(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	im, _ := newTestImporter(t, server, false)
	if err := im.ensureRemoteRepo(context.Background()); err == nil {
		t.Fatal("expected error when remote repo is missing and auto_create is disabled")
	}
}

func TestEnsureRemoteRepoNoopWhenRepoExists(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Fatalf("expected HEAD request, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	im, _ := newTestImporter(t, server, false)
	if err := im.ensureRemoteRepo(context.Background()); err != nil {
		t.Fatalf("ensureRemoteRepo: %v", err)
	}
}

func TestEnsureRemoteRepoCreatesWhenMissingAndAutoCreateEnabled(t *testing.T) {
	t.Parallel()

	var created bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		created = true
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	im, _ := newTestImporter(t, server, true)
	if err := im.ensureRemoteRepo(context.Background()); err != nil {
		t.Fatalf("ensureRemoteRepo: %v", err)
	}
	if !created {
		t.Error("expected CreateRepo to be called when repo is missing and auto_create is enabled")
	}
}

func TestImportRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	im, _ := newTestImporter(t, server, false)
	if _, err := im.Import(context.Background(), Mode("bogus")); err == nil {
		t.Fatal("expected error for unknown import mode")
	}
}

func TestSplitOwnerRepo(t *testing.T) {
	t.Parallel()

	owner, name := splitOwnerRepo("acme/repo")
	if owner != "acme" || name != "repo" {
		t.Errorf("splitOwnerRepo(\"acme/repo\") = %q, %q", owner, name)
	}

	owner, name = splitOwnerRepo("justname")
	if owner != "" || name != "justname" {
		t.Errorf("splitOwnerRepo(\"justname\") = %q, %q, want \"\", \"justname\"", owner, name)
	}
}
