package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.ldif")

	require.NoError(t, Write(path, []byte("hello"), 0o644))

	data, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteOverwritesAndRetiresPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.ldif")

	require.NoError(t, Write(path, []byte("first"), 0o644))
	require.NoError(t, Write(path, []byte("second"), 0o644))

	data, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	old, err := Read(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "first", string(old))

	assert.NoFileExists(t, path+".new")
}

func TestWriteFirstCallHasNoOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.ldif")

	require.NoError(t, Write(path, []byte("only"), 0o644))
	assert.NoFileExists(t, path+".old")
}

// TestWriteCommitRenameFailure simulates the scenario.md §8 case where the
// final rename cannot complete: both path and path+".old" are pre-existing
// non-empty directories. The best-effort os.Remove(oldPath) and
// os.Rename(path, oldPath) steps both fail against a non-empty directory
// target and are swallowed, so path is left in place as a non-empty
// directory; the commit rename of path+".new" onto it then collides for
// real. The temp file must be left behind rather than silently discarded,
// and the caller must see the error.
func TestWriteCommitRenameFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.ldif")
	oldPath := path + ".old"

	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "occupied"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(oldPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(oldPath, "occupied"), []byte("x"), 0o644))

	err := Write(path, []byte("new contents"), 0o644)
	require.Error(t, err)

	assert.FileExists(t, path+".new")
	assert.DirExists(t, path)
	assert.DirExists(t, oldPath)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.ldif")

	assert.False(t, Exists(path))
	require.NoError(t, Write(path, []byte("x"), 0o644))
	assert.True(t, Exists(path))
}
