package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileCreateDirMissingParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "c.txt")

	require.NoError(t, WriteFileCreateDir(path, []byte("hello")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestAtomicRenameCreatesDestDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.part")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	dst := filepath.Join(dir, "nested", "dst")
	require.NoError(t, AtomicRename(src, dst))

	require.True(t, FileExists(dst))
	require.False(t, FileExists(src))
}

func TestMoveIfExistsMissingSourceIsNoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, MoveIfExists(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")))
	require.False(t, FileExists(filepath.Join(dir, "dst")))
}

func TestMoveWithSidecarIfExistsMovesBoth(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "artifact.bin")
	sidecar := SidecarPath(artifact)

	require.NoError(t, os.WriteFile(artifact, []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(sidecar, []byte("deadbeef"), 0o644))

	dst := filepath.Join(dir, "final.bin")
	require.NoError(t, MoveWithSidecarIfExists(artifact, dst))

	require.True(t, FileExists(dst))
	require.True(t, FileExists(SidecarPath(dst)))
}

func TestSidecarAndPartPaths(t *testing.T) {
	require.Equal(t, "foo.sha256", SidecarPath("foo"))
	require.Equal(t, "foo.part", PartPath("foo"))
}
