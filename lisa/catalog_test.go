package lisa

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanDir writes empty archives and, where a current is given, a sidecar.
func scanDir(t *testing.T, currents map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, current := range currents {
		p := filepath.Join(dir, name+".h5")
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		if current != "" {
			require.NoError(t, os.WriteFile(SidecarPath(p), []byte("BunchCurrent="+current+"\n"), 0o644))
		}
	}
	return dir
}

func base(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestCatalogOrder(t *testing.T) {
	dir := scanDir(t, map[string]string{
		"low":     "0.5e-3",
		"high":    "2e-3",
		"mid":     "1e-3",
		"unknown": "",
		"another": "",
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	c, err := OpenCatalog(dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, c.Dir())
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"high.h5", "mid.h5", "low.h5", "another.h5", "unknown.h5"}, base(c.Paths()))
}

func TestCatalogSorter(t *testing.T) {
	dir := scanDir(t, map[string]string{"a": "1", "b": "2", "c": "3"})

	c, err := OpenCatalog(dir, "*.h5", WithSorter(func(paths []string) []string {
		slices.Sort(paths)
		return paths
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h5", "b.h5", "c.h5"}, base(c.Paths()))

	c, err = OpenCatalog(dir, "b*.h5")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.h5"}, base(c.Paths()))
}

func TestCatalogBadPattern(t *testing.T) {
	_, err := OpenCatalog(t.TempDir(), "[")
	assert.Error(t, err)
}

func TestCatalogArchivesFailure(t *testing.T) {
	// Empty files are not HDF5.
	dir := scanDir(t, map[string]string{"a": "1", "b": "2"})
	c, err := OpenCatalog(dir, "", WithWorkers(1))
	require.NoError(t, err)

	_, err = c.Archives(context.Background())
	assert.ErrorIs(t, err, ErrCorruptArchive)
	assert.NoError(t, c.Close())
}

func TestCatalogEmpty(t *testing.T) {
	c, err := OpenCatalog(t.TempDir(), "")
	require.NoError(t, err)
	archives, err := c.Archives(context.Background())
	require.NoError(t, err)
	assert.Empty(t, archives)
	assert.NoError(t, c.Close())
}
