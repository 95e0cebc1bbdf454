// Package fsutil pulls the handful of filesystem primitives the
// Materialiser and ReleaseSnapshot need behind one seam, the way
// spec.md 6 lists them as collaborator contracts rather than inline
// os/filepath calls. Frostdb's snapshot.go makes these calls directly;
// here they are factored out so tests can exercise directory-collision
// and teardown behaviour without racing real disk state.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	DirPerms  = os.FileMode(0o755)
	FilePerms = os.FileMode(0o640)
)

// Exists reports whether path exists on disk (file or directory).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// MkdirAll creates path and any missing parents with DirPerms.
func MkdirAll(path string) error {
	return os.MkdirAll(path, DirPerms)
}

// RemoveAll recursively removes path, ignoring a not-exists error so
// callers can use it unconditionally during teardown.
func RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Canonicalize resolves path to its absolute, symlink-free form.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// HardLink creates dst as a new hard link to the inode at src. The
// destination's parent directory must already exist.
func HardLink(src, dst string) error {
	return os.Link(src, dst)
}

// IsUnder reports whether canonicalPath lexically begins with
// canonicalPrefix followed by a path separator (or equals it exactly),
// used by ReleaseSnapshot to enforce the data-root/snapshot prefix rule.
func IsUnder(canonicalPath, canonicalPrefix string) bool {
	rel, err := filepath.Rel(canonicalPrefix, canonicalPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
