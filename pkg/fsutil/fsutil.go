// Package fsutil provides the small set of filesystem primitives the
// fetcher, ledger, and index mirror build their atomicity guarantees on:
// create-dir-on-miss writes, atomic rename, and .sha256 sidecar pairing.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// SidecarSuffix is the extension used for digest sidecar files.
const SidecarSuffix = ".sha256"

// PartSuffix is the extension used for in-progress download staging files.
const PartSuffix = ".part"

// SidecarPath returns the sidecar path for an artifact path.
func SidecarPath(path string) string {
	return path + SidecarSuffix
}

// PartPath returns the staging path for an artifact path.
func PartPath(path string) string {
	return path + PartSuffix
}

// CreateFileCreateDir creates path for writing, creating parent directories
// on a missing-directory error.
func CreateFileCreateDir(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err == nil {
		return f, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
		return nil, fmt.Errorf("create parent dir for %s: %w", path, mkErr)
	}
	return os.Create(path)
}

// WriteFileCreateDir writes contents to path, creating parent directories
// on a missing-directory error.
func WriteFileCreateDir(path string, contents []byte) error {
	err := os.WriteFile(path, contents, 0o644)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, mkErr)
	}
	return os.WriteFile(path, contents, 0o644)
}

// AtomicRename renames from to to. Both paths must live on the same
// filesystem for the rename to be atomic; the mirror root is assumed to be
// a single filesystem, matching the teacher's assumption in pkg/utils.
func AtomicRename(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", to, err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}
	return nil
}

// MoveIfExists renames from to to only if from exists; a missing from is
// not an error.
func MoveIfExists(from, to string) error {
	if _, err := os.Stat(from); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return AtomicRename(from, to)
}

// MoveWithSidecarIfExists moves both an artifact and its .sha256 sidecar,
// sidecar first so a reader never observes a committed artifact whose
// sidecar has not yet caught up.
func MoveWithSidecarIfExists(from, to string) error {
	if err := MoveIfExists(SidecarPath(from), SidecarPath(to)); err != nil {
		return err
	}
	return MoveIfExists(from, to)
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CopyFile copies src to dst, creating dst's parent directory if needed.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	return WriteFileCreateDir(dst, data)
}

// CopyFileWithSidecar copies src and, if present, its .sha256 sidecar to dst.
func CopyFileWithSidecar(src, dst string) error {
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	if FileExists(SidecarPath(src)) {
		return CopyFile(SidecarPath(src), SidecarPath(dst))
	}
	return nil
}

// EnsureDir creates dir (and parents) if it does not already exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
