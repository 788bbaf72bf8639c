// Package importer performs the one-time initial import that seeds a
// brand-new mirror from an existing SVN repository, before the sync
// engine's regular cycles take over.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chriscase/gitsvnsync/internal/commitfmt"
	"github.com/chriscase/gitsvnsync/internal/config"
	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/db"
	"github.com/chriscase/gitsvnsync/internal/githubapi"
	"github.com/chriscase/gitsvnsync/internal/gitrepo"
	"github.com/chriscase/gitsvnsync/internal/model"
	"github.com/chriscase/gitsvnsync/internal/svnclient"
)

// Mode selects how the initial import seeds the Git mirror.
type Mode string

const (
	// ModeSnapshot imports only the current HEAD revision as a single
	// commit, discarding SVN history.
	ModeSnapshot Mode = "snapshot"
	// ModeFull replays every SVN revision from r1 to HEAD as its own
	// commit, preserving full history.
	ModeFull Mode = "full"
)

const (
	watermarkSvnRev = "svn_rev"
	watermarkGitSHA = "git_sha"
	remoteName      = "origin"
)

// Importer runs the initial import, grounded on
// crates/personal/src/initial_import.rs.
type Importer struct {
	cfg    config.Config
	store  *db.Store
	svn    *svnclient.Client
	git    *gitrepo.Client
	remote *githubapi.Client
	fmt    *commitfmt.Formatter
}

// New builds an Importer from the same collaborators the sync engine
// uses.
func New(cfg config.Config, store *db.Store, svn *svnclient.Client, git *gitrepo.Client, remote *githubapi.Client) *Importer {
	return &Importer{
		cfg:    cfg,
		store:  store,
		svn:    svn,
		git:    git,
		remote: remote,
		fmt:    commitfmt.New(commitfmt.Templates{SvnToGit: cfg.Commit.SvnToGitTemplate, GitToSvn: cfg.Commit.GitToSvnTemplate}),
	}
}

// Import runs the initial import in the given mode, returning the
// number of commits it produced. It refuses to run if the watermark
// state already shows a prior sync has happened, since the initial
// import is a one-time operation.
func (im *Importer) Import(ctx context.Context, mode Mode) (int, error) {
	if _, err := im.store.GetWatermark(ctx, watermarkSvnRev); err == nil {
		return 0, errors.New("initial import refused: svn_rev watermark already set, a sync has already run")
	} else if !isNotFound(err) {
		return 0, err
	}

	if err := im.ensureRemoteRepo(ctx); err != nil {
		return 0, fmt.Errorf("ensure remote repo: %w", err)
	}

	switch mode {
	case ModeSnapshot:
		return im.importSnapshot(ctx)
	case ModeFull:
		return im.importFull(ctx)
	default:
		return 0, fmt.Errorf("unknown initial import mode %q", mode)
	}
}

// ensureRemoteRepo creates the configured remote repository first if
// it doesn't exist and auto-create is enabled, matching spec §6: "if
// the remote repository does not exist and auto-create is enabled,
// create it first; otherwise fail with a clear message."
func (im *Importer) ensureRemoteRepo(ctx context.Context) error {
	exists, err := im.remote.RepoExists(ctx)
	if err != nil {
		return fmt.Errorf("check remote repo existence: %w", err)
	}
	if exists {
		return nil
	}
	if !im.cfg.Remote.AutoCreate {
		return fmt.Errorf("remote repository %q does not exist and auto_create is disabled", im.cfg.Remote.Repo)
	}
	owner, _ := splitOwnerRepo(im.cfg.Remote.Repo)
	if err := im.remote.CreateRepo(ctx, owner, im.cfg.Remote.Private); err != nil {
		return fmt.Errorf("create remote repo: %w", err)
	}
	return nil
}

// importSnapshot exports SVN HEAD into the Git working tree as a
// single commit, discarding history. Grounded on
// `InitialImport::import_snapshot`.
func (im *Importer) importSnapshot(ctx context.Context) (int, error) {
	info, err := im.svn.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("svn info: %w", err)
	}

	if err := im.svn.Export(ctx, im.cfg.Svn.Trunk, info.LatestRev, im.git.Path()); err != nil {
		return 0, fmt.Errorf("export r%d: %w", info.LatestRev, err)
	}

	now := time.Now().Format(time.RFC3339)
	message := im.fmt.FormatSvnToGit(
		fmt.Sprintf("Initial import from SVN (snapshot at r%d)", info.LatestRev),
		info.LatestRev, im.cfg.Identity.DeveloperSvnUsername, now)

	sha, err := im.git.Commit(message, im.cfg.Identity.DeveloperName, im.cfg.Identity.DeveloperEmail,
		im.cfg.Identity.DeveloperName, im.cfg.Identity.DeveloperEmail)
	if err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	if err := im.git.Push(ctx, remoteName, im.cfg.Remote.DefaultBranch, im.cfg.Remote.Token); err != nil {
		return 0, fmt.Errorf("push snapshot: %w", err)
	}

	if err := im.store.InsertCommitMap(ctx, model.CommitMapEntry{
		SvnRev:    info.LatestRev,
		GitSHA:    sha,
		Direction: model.DirectionSvnToGit,
		SyncedAt:  time.Now(),
		SvnAuthor: im.cfg.Identity.DeveloperSvnUsername,
		GitAuthor: fmt.Sprintf("%s <%s>", im.cfg.Identity.DeveloperName, im.cfg.Identity.DeveloperEmail),
	}); err != nil {
		return 0, fmt.Errorf("record commit map: %w", err)
	}
	if err := im.store.SetWatermark(ctx, watermarkSvnRev, fmt.Sprintf("%d", info.LatestRev)); err != nil {
		return 0, err
	}
	if err := im.store.SetWatermark(ctx, watermarkGitSHA, sha); err != nil {
		return 0, err
	}

	details := fmt.Sprintf("snapshot import at r%d, sha=%s", info.LatestRev, sha)
	success := true
	if err := im.store.InsertAudit(ctx, model.AuditEntry{
		Action: "import_snapshot", Direction: directionPtr(model.DirectionSvnToGit),
		SvnRev: &info.LatestRev, GitSHA: &sha, Details: &details, Success: success,
	}); err != nil {
		return 0, fmt.Errorf("audit: %w", err)
	}

	return 1, nil
}

// importFull replays every SVN revision from r1 to HEAD, preserving
// history. Empty commits (property-only revisions) are tolerated,
// matching the original's silent-skip behavior. Grounded on
// `InitialImport::import_full`.
func (im *Importer) importFull(ctx context.Context) (int, error) {
	info, err := im.svn.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("svn info: %w", err)
	}

	entries, err := im.svn.Log(ctx, 1, info.LatestRev)
	if err != nil {
		return 0, fmt.Errorf("svn log: %w", err)
	}

	count := 0
	var lastProcessedRev int64
	for _, entry := range entries {
		lastProcessedRev = entry.Revision

		if err := im.svn.Export(ctx, im.cfg.Svn.Trunk, entry.Revision, im.git.Path()); err != nil {
			return count, fmt.Errorf("export r%d: %w", entry.Revision, err)
		}

		message := im.fmt.FormatSvnToGit(entry.Message, entry.Revision, entry.Author, entry.Date)
		sha, err := im.git.Commit(message, im.cfg.Identity.DeveloperName, im.cfg.Identity.DeveloperEmail,
			im.cfg.Identity.DeveloperName, im.cfg.Identity.DeveloperEmail)
		if err != nil {
			if gitrepo.IsEmptyCommit(err) {
				continue
			}
			return count, fmt.Errorf("commit r%d: %w", entry.Revision, err)
		}

		count++
		if err := im.store.InsertCommitMap(ctx, model.CommitMapEntry{
			SvnRev:    entry.Revision,
			GitSHA:    sha,
			Direction: model.DirectionSvnToGit,
			SyncedAt:  time.Now(),
			SvnAuthor: entry.Author,
			GitAuthor: fmt.Sprintf("%s <%s>", im.cfg.Identity.DeveloperName, im.cfg.Identity.DeveloperEmail),
		}); err != nil {
			return count, fmt.Errorf("record commit map r%d: %w", entry.Revision, err)
		}
	}

	if count == 0 {
		return 0, errors.New("full import produced no commits")
	}

	if err := im.git.Push(ctx, remoteName, im.cfg.Remote.DefaultBranch, im.cfg.Remote.Token); err != nil {
		return count, fmt.Errorf("push: %w", err)
	}

	headSHA, err := im.git.HeadSHA()
	if err != nil {
		return count, fmt.Errorf("head sha: %w", err)
	}
	if err := im.store.SetWatermark(ctx, watermarkSvnRev, fmt.Sprintf("%d", lastProcessedRev)); err != nil {
		return count, err
	}
	if err := im.store.SetWatermark(ctx, watermarkGitSHA, headSHA); err != nil {
		return count, err
	}

	details := fmt.Sprintf("full import: %d commits, revisions 1..%d", count, lastProcessedRev)
	if err := im.store.InsertAudit(ctx, model.AuditEntry{
		Action: "import_full", Direction: directionPtr(model.DirectionSvnToGit),
		SvnRev: &lastProcessedRev, GitSHA: &headSHA, Details: &details, Success: true,
	}); err != nil {
		return count, fmt.Errorf("audit: %w", err)
	}

	return count, nil
}

func splitOwnerRepo(repo string) (owner, name string) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return "", repo
	}
	return owner, name
}

func directionPtr(d model.Direction) *model.Direction { return &d }

func isNotFound(err error) bool {
	var nf *coreerrors.NotFound
	return errors.As(err, &nf)
}
