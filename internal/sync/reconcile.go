package sync

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Reconcile makes dstRoot's non-meta contents equal srcRoot's
// non-dotfile-root contents exactly, by copying everything new or
// changed from src into dst and then pruning anything in dst that src
// no longer has. metaDirName (".git" or ".svn") and any root-level
// dotfile/dotdir in dst are never touched by the prune pass; a
// root-level dotfile/dotdir in src is never copied either. Nested
// dotfiles are ordinary content and are copied/pruned like anything
// else — only the roots are protected.
//
// This is the one file-tree operation both sync phases share: phase A
// reconciles an SVN export against the Git working tree (protecting
// ".git"), phase B reconciles the Git working tree against the SVN
// working copy (protecting ".svn").
func Reconcile(srcRoot, dstRoot, metaDirName string) error {
	if err := copyTree(srcRoot, dstRoot, 0); err != nil {
		return err
	}
	return pruneTree(srcRoot, dstRoot, metaDirName, 0)
}

func copyTree(srcDir, dstDir string, depth int) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if depth == 0 && strings.HasPrefix(name, ".") {
			continue
		}
		srcPath := filepath.Join(srcDir, name)
		dstPath := filepath.Join(dstDir, name)

		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath, depth+1); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath, entry); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, entry os.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		return err
	}
	// Symlinks and other non-regular entries are skipped: SVN exports
	// and Git working trees don't produce them for tracked content in
	// the layouts this bridge targets.
	if !info.Mode().IsRegular() {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}

func pruneTree(srcDir, dstDir string, metaDirName string, depth int) error {
	entries, err := os.ReadDir(dstDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if depth == 0 && (name == metaDirName || strings.HasPrefix(name, ".")) {
			continue
		}

		srcPath := filepath.Join(srcDir, name)
		dstPath := filepath.Join(dstDir, name)

		if _, err := os.Lstat(srcPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				if err := os.RemoveAll(dstPath); err != nil {
					return err
				}
				continue
			}
			return err
		}

		if entry.IsDir() {
			if err := pruneTree(srcPath, dstPath, metaDirName, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
