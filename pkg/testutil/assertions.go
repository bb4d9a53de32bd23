package testutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/liquidmods/modlink/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertSymlink checks that link is a symbolic link whose relative target
// resolves to target, and that the target exists.
func AssertSymlink(t *testing.T, fsys types.FS, link, target string) {
	t.Helper()

	info, err := fsys.Lstat(link)
	require.NoError(t, err, "expected symlink at %s", link)
	require.True(t, info.Mode()&fs.ModeSymlink != 0, "%s is not a symlink (mode %v)", link, info.Mode())

	dest, err := fsys.Readlink(link)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(dest), "symlink %s should be relative, got %s", link, dest)
	assert.Equal(t, filepath.Clean(target), filepath.Join(filepath.Dir(link), dest))

	_, err = fsys.Stat(target)
	assert.NoError(t, err, "symlink target %s should exist", target)
}

// AssertRegularFile checks that path is a regular file, optionally with content
func AssertRegularFile(t *testing.T, fsys types.FS, path string, content ...string) {
	t.Helper()

	info, err := fsys.Lstat(path)
	require.NoError(t, err, "expected file at %s", path)
	require.True(t, info.Mode().IsRegular(), "%s is not a regular file (mode %v)", path, info.Mode())

	if len(content) > 0 {
		data, err := fsys.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, content[0], string(data))
	}
}

// AssertNotExists checks that nothing, not even a dangling link, is at path
func AssertNotExists(t *testing.T, fsys types.FS, path string) {
	t.Helper()

	_, err := fsys.Lstat(path)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "expected %s to be absent, got err=%v", path, err)
}
