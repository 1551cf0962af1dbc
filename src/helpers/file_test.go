package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveDBPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "datafiles")

	path, err := ResolveDBPath(dir, "store.db")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(path))
	require.Equal(t, "store.db", filepath.Base(path))

	// The data directory is created as a side effect.
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestResolveDBPathEmptyNameIsInMemory(t *testing.T) {
	path, err := ResolveDBPath(t.TempDir(), "")
	require.NoError(t, err)
	require.Empty(t, path)
}

func TestFileExists(t *testing.T) {
	logger := zap.NewNop().Sugar()
	dir := t.TempDir()

	file := filepath.Join(dir, "store.db")
	require.False(t, FileExists(file, logger))
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	require.True(t, FileExists(file, logger))

	// Directories do not count as files.
	require.False(t, FileExists(dir, logger))

	require.NoError(t, DeleteDataFile(file))
	require.False(t, FileExists(file, logger))
}
