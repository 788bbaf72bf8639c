package gitrepo

import (
	"bytes"
	"context"
	"log"
	"os/exec"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
)

// ApplyDiff applies a unified diff to the working tree via the
// external git binary's three-way apply. go-git has no equivalent of
// `git apply --3way`, so this is the one operation in this package
// that shells out rather than using go-git directly.
func (c *Client) ApplyDiff(ctx context.Context, diffContent string) error {
	cmd := exec.CommandContext(ctx, "git", "apply", "--3way", "-")
	cmd.Dir = c.path
	cmd.Stdin = bytes.NewBufferString(diffContent)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Printf("[git] apply failed: %s", stderr.String())
		return &coreerrors.GitApplyFailed{Detail: stderr.String()}
	}
	log.Printf("[git] diff applied successfully")
	return nil
}
