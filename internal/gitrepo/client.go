// Package gitrepo is the local Git adapter: it wraps go-git to give
// the sync engine commit, push, and history-walk operations without
// shelling out to the git binary, falling back to the external binary
// only for unified-diff application (see apply.go).
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
)

const maxWalkCommits = 1000

// Client wraps an open go-git repository.
type Client struct {
	repo *git.Repository
	path string
}

// CommitInfo describes a single Git commit.
type CommitInfo struct {
	SHA            string
	Message        string
	AuthorName     string
	AuthorEmail    string
	AuthorTime     int64
	CommitterName  string
	CommitterEmail string
	ParentCount    int
}

// FileChange is a single changed-file entry from a commit's tree diff.
type FileChange struct {
	Action string // "A", "M", or "D"
	Path   string
}

// Open opens an existing Git repository at path.
func Open(path string) (*Client, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, &coreerrors.GitRepositoryNotFound{Path: path}
	}
	return &Client{repo: repo, path: path}, nil
}

// Init initializes a new, non-bare Git repository at path.
func Init(path string) (*Client, error) {
	log.Printf("[git] initializing repository path=%s", path)
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}
	return &Client{repo: repo, path: path}, nil
}

// Clone clones url into path, authenticating with an access token if
// one is given.
func Clone(ctx context.Context, url, path, token string) (*Client, error) {
	log.Printf("[git] cloning url=%s path=%s", url, path)
	opts := &git.CloneOptions{URL: url}
	if token != "" {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	repo, err := git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		return nil, fmt.Errorf("clone repository: %w", err)
	}
	log.Printf("[git] clone completed path=%s", path)
	return &Client{repo: repo, path: path}, nil
}

// Path returns the working directory of the repository.
func (c *Client) Path() string { return c.path }

// Repository exposes the underlying go-git repository for callers
// that need an operation this adapter doesn't cover.
func (c *Client) Repository() *git.Repository { return c.repo }

func auth(token string) *http.BasicAuth {
	if token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: token}
}

// Fetch fetches from remoteName.
func (c *Client) Fetch(ctx context.Context, remoteName, token string) error {
	log.Printf("[git] fetching remote=%s", remoteName)
	err := c.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remoteName, Auth: auth(token)})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

// Pull fetches from remoteName and fast-forwards branch to match it.
func (c *Client) Pull(ctx context.Context, remoteName, branch, token string) error {
	if err := c.Fetch(ctx, remoteName, token); err != nil {
		return err
	}
	remoteRef, err := c.repo.Reference(
		plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err != nil {
		return &coreerrors.GitRefNotFound{Ref: remoteName + "/" + branch}
	}

	headRef, err := c.repo.Head()
	if err == nil && headRef.Name().IsBranch() {
		newRef := plumbing.NewHashReference(headRef.Name(), remoteRef.Hash())
		if err := c.repo.Storer.SetReference(newRef); err != nil {
			return fmt.Errorf("fast-forward ref: %w", err)
		}
		w, err := c.repo.Worktree()
		if err != nil {
			return err
		}
		if err := w.Checkout(&git.CheckoutOptions{Force: true}); err != nil {
			return fmt.Errorf("checkout after pull: %w", err)
		}
	}
	log.Printf("[git] pull completed remote=%s branch=%s", remoteName, branch)
	return nil
}

// IsEmptyCommit reports whether err is go-git's refusal to create a
// commit whose tree is identical to its parent's — the signal the
// sync engine uses to treat a property-only SVN revision (no tree
// diff) as log-only rather than a failure.
func IsEmptyCommit(err error) bool {
	return errors.Is(err, git.ErrEmptyCommit)
}

// Commit stages every change in the working tree and creates a commit.
func (c *Client) Commit(message, authorName, authorEmail, committerName, committerEmail string) (string, error) {
	w, err := c.repo.Worktree()
	if err != nil {
		return "", err
	}
	if err := w.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("stage changes: %w", err)
	}

	sig := object.Signature{Name: authorName, Email: authorEmail}
	committerSig := object.Signature{Name: committerName, Email: committerEmail}
	hash, err := w.Commit(message, &git.CommitOptions{
		Author:    &sig,
		Committer: &committerSig,
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	log.Printf("[git] created commit sha=%s", hash.String())
	return hash.String(), nil
}

// Push pushes branch to remoteName, returning GitPushRejected if the
// remote rejects the update (e.g. a non-fast-forward).
func (c *Client) Push(ctx context.Context, remoteName, branch, token string) error {
	log.Printf("[git] pushing remote=%s branch=%s", remoteName, branch)
	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err := c.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       auth(token),
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return &coreerrors.GitPushRejected{Branch: branch, Detail: err.Error()}
	}
	log.Printf("[git] push completed")
	return nil
}

// HeadSHA returns the SHA HEAD currently points at.
func (c *Client) HeadSHA() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// CommitsSince walks history backwards from HEAD, stopping just
// before sinceSHA (or at the root if sinceSHA is empty), capped at
// 1000 commits to bound replay cost on very long histories.
func (c *Client) CommitsSince(sinceSHA string) ([]CommitInfo, error) {
	head, err := c.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := c.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	defer iter.Close()

	var commits []CommitInfo
	err = iter.ForEach(func(commit *object.Commit) error {
		if commit.Hash.String() == sinceSHA {
			return storerStop
		}
		commits = append(commits, toCommitInfo(commit))
		if len(commits) >= maxWalkCommits {
			log.Printf("[git] reached %d commit walk limit", maxWalkCommits)
			return storerStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storerStop) {
		return nil, err
	}
	return commits, nil
}

var storerStop = errors.New("stop commit walk")

func toCommitInfo(commit *object.Commit) CommitInfo {
	return CommitInfo{
		SHA:            commit.Hash.String(),
		Message:        commit.Message,
		AuthorName:     commit.Author.Name,
		AuthorEmail:    commit.Author.Email,
		AuthorTime:     commit.Author.When.Unix(),
		CommitterName:  commit.Committer.Name,
		CommitterEmail: commit.Committer.Email,
		ParentCount:    commit.NumParents(),
	}
}

// CreateBranch creates a local branch named name pointing at fromSHA.
func (c *Client) CreateBranch(name, fromSHA string) error {
	hash := plumbing.NewHash(fromSHA)
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	if err := c.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	log.Printf("[git] created branch name=%s from=%s", name, fromSHA)
	return nil
}

// DeleteBranch deletes a local branch.
func (c *Client) DeleteBranch(name string) error {
	if err := c.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	log.Printf("[git] deleted branch name=%s", name)
	return nil
}

// ListBranches lists all local branch names.
func (c *Client) ListBranches() ([]string, error) {
	iter, err := c.repo.Branches()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	return names, err
}

// IsAncestor reports whether ancestorSHA is an ancestor of
// descendantSHA. A SHA that cannot be resolved to a commit yields
// false with a nil error.
func (c *Client) IsAncestor(ancestorSHA, descendantSHA string) (bool, error) {
	ancestor, err := c.repo.CommitObject(plumbing.NewHash(ancestorSHA))
	if err != nil {
		return false, nil
	}
	descendant, err := c.repo.CommitObject(plumbing.NewHash(descendantSHA))
	if err != nil {
		return false, nil
	}
	ok, err := ancestor.IsAncestor(descendant)
	if err != nil {
		return false, nil
	}
	return ok, nil
}

// CheckoutBranch checks out an existing local branch, forcing the
// working tree to match it.
func (c *Client) CheckoutBranch(name string) error {
	w, err := c.repo.Worktree()
	if err != nil {
		return err
	}
	err = w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Force:  true,
	})
	if err != nil {
		return fmt.Errorf("checkout branch: %w", err)
	}
	log.Printf("[git] checked out branch name=%s", name)
	return nil
}

// CheckoutCommit checks the working tree out at sha directly, detached
// from any branch. The Git->SVN phase uses this to materialize each
// replayed PR commit's tree in turn, independently of whatever branch
// HEAD last pointed at.
func (c *Client) CheckoutCommit(sha string) error {
	w, err := c.repo.Worktree()
	if err != nil {
		return err
	}
	err = w.Checkout(&git.CheckoutOptions{
		Hash:  plumbing.NewHash(sha),
		Force: true,
	})
	if err != nil {
		return fmt.Errorf("checkout commit: %w", err)
	}
	log.Printf("[git] checked out commit sha=%s", sha)
	return nil
}

// ResetTo hard-resets HEAD (and the working tree) to sha.
func (c *Client) ResetTo(sha string) error {
	w, err := c.repo.Worktree()
	if err != nil {
		return err
	}
	err = w.Reset(&git.ResetOptions{Commit: plumbing.NewHash(sha), Mode: git.HardReset})
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	log.Printf("[git] reset HEAD sha=%s", sha)
	return nil
}

// ParentCount returns the number of parents sha has, the heuristic
// the Git-to-SVN replay uses to detect merge commits.
func (c *Client) ParentCount(sha string) (int, error) {
	commit, err := c.repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return 0, fmt.Errorf("lookup commit %s: %w", sha, err)
	}
	return commit.NumParents(), nil
}

// ChangedFiles returns the files sha's tree changed relative to its
// first parent. For a root commit (no parents) every file in the tree
// is reported as added.
func (c *Client) ChangedFiles(sha string) ([]FileChange, error) {
	commit, err := c.repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", sha, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	if commit.NumParents() == 0 {
		var out []FileChange
		err := tree.Files().ForEach(func(f *object.File) error {
			out = append(out, FileChange{Action: "A", Path: f.Name})
			return nil
		})
		return out, err
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return nil, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := parentTree.Diff(tree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	var out []FileChange
	for _, change := range changes {
		action, path := classifyChange(change)
		if path != "" {
			out = append(out, FileChange{Action: action, Path: path})
		}
	}
	return out, nil
}

func classifyChange(change *object.Change) (action, path string) {
	from, to, err := change.Files()
	if err != nil {
		return "M", ""
	}
	switch {
	case from == nil && to != nil:
		return "A", to.Name
	case from != nil && to == nil:
		return "D", from.Name
	case from != nil && to != nil:
		return "M", to.Name
	default:
		return "M", ""
	}
}

// FileContentAtCommit returns the content of path as of sha, or
// (nil, nil) if the file does not exist in that commit's tree.
func (c *Client) FileContentAtCommit(sha, path string) ([]byte, error) {
	commit, err := c.repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", sha, err)
	}
	file, err := commit.File(path)
	if err != nil {
		return nil, nil
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
