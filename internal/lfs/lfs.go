// Package lfs implements Git LFS pointer creation/parsing and the
// shell-level plumbing (git lfs smudge/clean/install) needed to move
// large blobs between the working tree and the LFS object store.
package lfs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// pointerPrefix is the fixed first line of every LFS pointer file.
const pointerPrefix = "version https://git-lfs.github.com/spec/v1\n"

// maxPointerSize bounds how large a candidate pointer file can be
// before it is assumed not to be a pointer at all.
const maxPointerSize = 512

// Pointer is a parsed Git LFS pointer file.
type Pointer struct {
	OID  string
	Size int64
}

// IsLfsPointer reports whether content looks like an LFS pointer file:
// small, valid UTF-8, and starting with the fixed version line.
func IsLfsPointer(content []byte) bool {
	if len(content) == 0 || len(content) > maxPointerSize {
		return false
	}
	if !utf8.Valid(content) {
		return false
	}
	return strings.HasPrefix(string(content), pointerPrefix)
}

// ParseLfsPointer parses content into a Pointer. Both the oid and size
// lines must be present.
func ParseLfsPointer(content []byte) (Pointer, error) {
	if !IsLfsPointer(content) {
		return Pointer{}, fmt.Errorf("lfs: not a pointer file")
	}
	var oid string
	var size int64
	var haveSize bool
	for _, line := range strings.Split(string(content), "\n") {
		if rest, ok := strings.CutPrefix(line, "oid sha256:"); ok {
			oid = strings.TrimSpace(rest)
		}
		if rest, ok := strings.CutPrefix(line, "size "); ok {
			n, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
			if err == nil {
				size = n
				haveSize = true
			}
		}
	}
	if oid == "" || !haveSize {
		return Pointer{}, fmt.Errorf("lfs: pointer missing oid or size")
	}
	return Pointer{OID: oid, Size: size}, nil
}

// CreateLfsPointer computes the SHA-256 OID of content and renders the
// corresponding pointer file text.
func CreateLfsPointer(content []byte) string {
	sum := sha256.Sum256(content)
	oid := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%soid sha256:%s\nsize %d\n", pointerPrefix, oid, len(content))
}

// PreflightCheck verifies the git-lfs extension is installed by
// running `git lfs version`.
func PreflightCheck(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "git", "lfs", "version")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("lfs: preflight check failed: %w: %s", err, stderr.String())
	}
	return nil
}

// PatternForPath derives a .gitattributes tracking pattern for a
// repository-relative path: the file's extension glob if it has one
// ("*.ext"), otherwise the literal path.
func PatternForPath(relPath string) string {
	ext := filepath.Ext(relPath)
	if ext == "" {
		return relPath
	}
	return "*" + ext
}

// EnsureLfsTracked idempotently appends a `pattern filter=lfs diff=lfs
// merge=lfs -text` line to repoRoot/.gitattributes if not already
// present.
func EnsureLfsTracked(repoRoot, pattern string) error {
	path := filepath.Join(repoRoot, ".gitattributes")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	line := fmt.Sprintf("%s filter=lfs diff=lfs merge=lfs -text", pattern)
	for _, l := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(l) == line {
			return nil
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(line + "\n")
	return err
}

// InstallLfsHooks runs `git lfs install --local` in repoRoot.
func InstallLfsHooks(ctx context.Context, repoRoot string) error {
	cmd := exec.CommandContext(ctx, "git", "lfs", "install", "--local")
	cmd.Dir = repoRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("lfs: install hooks failed: %w: %s", err, stderr.String())
	}
	return nil
}

// ResolveLfsPointer runs `git lfs smudge` over pointerContent to
// recover the underlying blob bytes, relative to repoRoot.
func ResolveLfsPointer(ctx context.Context, repoRoot string, pointerContent []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "lfs", "smudge")
	cmd.Dir = repoRoot
	cmd.Stdin = bytes.NewReader(pointerContent)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("lfs: smudge failed: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// StoreLfsObject runs `git lfs clean` over content to store it in the
// LFS object store and returns the resulting pointer text, relative to
// repoRoot.
func StoreLfsObject(ctx context.Context, repoRoot string, content []byte) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "lfs", "clean")
	cmd.Dir = repoRoot
	cmd.Stdin = bytes.NewReader(content)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("lfs: clean failed: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}
