package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("name: x\n"), 0o644))
	}
}

func TestFindFilesByExtension_SortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "b.yaml", "a.HCL", "nested/c.yml", "notes.txt")

	files, err := FindFilesByExtension(root, ".yaml", ".yml", ".hcl")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.HCL"),
		filepath.Join(root, "b.yaml"),
		filepath.Join(root, "nested", "c.yml"),
	}, files)
}

func TestResolvePaths_SingleFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "m.yaml", "m.txt")

	files, err := ResolvePaths(filepath.Join(root, "m.yaml"), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "m.yaml")}, files)

	_, err = ResolvePaths(filepath.Join(root, "m.txt"), ".yaml")
	assert.Error(t, err)

	_, err = ResolvePaths(filepath.Join(root, "missing.yaml"), ".yaml")
	assert.Error(t, err)
}
