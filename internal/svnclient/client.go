// Package svnclient is the SVN CLI adapter: it shells out to the svn
// binary, collects its XML output, and hands it to the parser.
package svnclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
)

var debugSvn = os.Getenv("GITSVNSYNC_DEBUG_SVN") != ""

// Client shells out to the svn CLI against one repository URL.
// Credentials are held in memory only and are never logged, even with
// GITSVNSYNC_DEBUG_SVN set.
type Client struct {
	url      string
	username string
	password string
}

// New creates a Client targeting url with the given credentials.
func New(url, username, password string) *Client {
	log.Printf("[svn] created client url=%s username=%s", url, username)
	return &Client{url: url, username: username, password: password}
}

// URL returns the repository URL this client targets.
func (c *Client) URL() string { return c.url }

// Info runs `svn info --xml` and parses the result.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	out, err := c.run(ctx, "", "info", "--xml", c.url)
	if err != nil {
		return nil, err
	}
	return ParseInfo(out)
}

// Log runs `svn log --xml --verbose -r startRev:endRev` and parses the
// result. endRev < 0 means HEAD.
func (c *Client) Log(ctx context.Context, startRev, endRev int64) ([]LogEntry, error) {
	endStr := "HEAD"
	if endRev >= 0 {
		endStr = strconv.FormatInt(endRev, 10)
	}
	revRange := fmt.Sprintf("%d:%s", startRev, endStr)
	out, err := c.run(ctx, "", "log", "--xml", "--verbose", "-r", revRange, c.url)
	if err != nil {
		return nil, err
	}
	return ParseLog(out)
}

// Diff runs `svn diff --summarize --xml` for a single revision.
func (c *Client) Diff(ctx context.Context, rev int64) ([]DiffEntry, error) {
	revRange := fmt.Sprintf("%d:%d", rev-1, rev)
	out, err := c.run(ctx, "", "diff", "--summarize", "--xml", "-r", revRange, c.url)
	if err != nil {
		return nil, err
	}
	return ParseDiffSummarize(out)
}

// DiffFull runs `svn diff -r` for a single revision and returns the
// unified diff text unparsed.
func (c *Client) DiffFull(ctx context.Context, rev int64) (string, error) {
	revRange := fmt.Sprintf("%d:%d", rev-1, rev)
	return c.run(ctx, "", "diff", "-r", revRange, c.url)
}

// Checkout checks out rev of the repository into path.
func (c *Client) Checkout(ctx context.Context, path string, rev int64) error {
	_, err := c.run(ctx, "", "checkout", "-r", strconv.FormatInt(rev, 10), c.url, path)
	if err != nil {
		return err
	}
	log.Printf("[svn] checkout completed path=%s rev=%d", path, rev)
	return nil
}

// Commit commits the working copy at path with message and returns
// the new revision number.
func (c *Client) Commit(ctx context.Context, path, message string) (int64, error) {
	out, err := c.run(ctx, path, "commit", "-m", message, path)
	if err != nil {
		return 0, err
	}
	rev, ok := parseCommittedRevision(out)
	if !ok {
		return 0, &coreerrors.SvnCommandFailed{Exit: 0, Stderr: "could not parse committed revision from: " + out}
	}
	log.Printf("[svn] commit succeeded rev=%d", rev)
	return rev, nil
}

// SetRevProp sets a revision property (e.g. svn:log amendment) via
// `svn propset --revprop`.
func (c *Client) SetRevProp(ctx context.Context, rev int64, propName, propValue string) error {
	_, err := c.run(ctx, "", "propset", "--revprop", "-r", strconv.FormatInt(rev, 10), propName, propValue, c.url)
	return err
}

// ListBranches lists the immediate children of branchesPath relative
// to the repository URL, stripping the trailing '/' svn list prints
// for directory entries.
func (c *Client) ListBranches(ctx context.Context, branchesPath string) ([]string, error) {
	branchesURL := c.url + "/" + branchesPath
	out, err := c.run(ctx, "", "list", branchesURL)
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		branches = append(branches, strings.TrimSuffix(line, "/"))
	}
	return branches, nil
}

// Export exports rev of path (relative to the repository URL, or the
// whole repository if empty) into dest, overwriting any existing
// contents there.
func (c *Client) Export(ctx context.Context, path string, rev int64, dest string) error {
	srcURL := c.url
	if path != "" {
		srcURL = c.url + "/" + path
	}
	_, err := c.run(ctx, "", "export", "--force", "-r", strconv.FormatInt(rev, 10), srcURL, dest)
	if err != nil {
		return err
	}
	log.Printf("[svn] export completed dest=%s rev=%d", dest, rev)
	return nil
}

// Update brings the working copy at path up to HEAD via `svn update`.
func (c *Client) Update(ctx context.Context, path string) error {
	_, err := c.run(ctx, path, "update", path)
	if err != nil {
		return err
	}
	log.Printf("[svn] update completed path=%s", path)
	return nil
}

// Status runs `svn status` against the working copy at path and returns
// its raw output for ParseSvnStatus.
func (c *Client) Status(ctx context.Context, path string) (string, error) {
	return c.run(ctx, path, "status", path)
}

// Add stages paths (relative to or under path) for addition via `svn add`.
func (c *Client) Add(ctx context.Context, path string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add"}, paths...)
	_, err := c.run(ctx, path, args...)
	return err
}

// Remove stages paths for deletion via `svn rm`.
func (c *Client) Remove(ctx context.Context, path string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"rm"}, paths...)
	_, err := c.run(ctx, path, args...)
	return err
}

// run executes `svn <args...>` with non-interactive auth flags
// appended, optionally in dir, and returns stdout on success.
func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append(append([]string{}, args...),
		"--non-interactive", "--no-auth-cache",
		"--username", c.username, "--password", c.password)

	cmd := exec.CommandContext(ctx, "svn", fullArgs...)
	if dir != "" {
		cmd.Dir = dir
	}

	if debugSvn {
		log.Printf("[svn] running svn %s", strings.Join(args, " "))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return "", &coreerrors.SvnBinaryNotFound{Detail: "svn"}
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		log.Printf("[svn] command failed exit=%d stderr=%s", exitCode, stderr.String())
		return "", &coreerrors.SvnCommandFailed{Exit: exitCode, Stderr: stderr.String()}
	}
	return stdout.String(), nil
}

func parseCommittedRevision(output string) (int64, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Committed revision") {
			rest := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(line, "Committed revision")), ".")
			rev, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				return 0, false
			}
			return rev, true
		}
	}
	return 0, false
}
