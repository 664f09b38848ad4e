package quota

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectorySizeSumsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), make([]byte, 250), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c"), make([]byte, 50), 0o644))

	size, err := DirectorySize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(400), size)
}

func TestWouldExceed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 900), 0o644))

	exceeds, err := WouldExceed(dir, 200, 1000)
	require.NoError(t, err)
	assert.True(t, exceeds)

	exceeds, err = WouldExceed(dir, 50, 1000)
	require.NoError(t, err)
	assert.False(t, exceeds)
}
