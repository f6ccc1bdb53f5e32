package lisa

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameters(t *testing.T) {
	a := newArchive(t, currentStore())

	params, err := a.Parameters()
	require.NoError(t, err)
	assert.Equal(t, []string{"BunchCurrent", "Comment", "RevolutionFrequency", "fs"}, params.Names())

	v, err := a.Parameter("fs")
	require.NoError(t, err)
	assert.Equal(t, 8.5e3, v)

	_, err = a.Parameter("nope")
	assert.ErrorIs(t, err, ErrParameterNotFound)

	set, err := a.ParameterSet("fs", ParamBunchCurrent)
	require.NoError(t, err)
	assert.Equal(t, []string{"fs", ParamBunchCurrent}, set.Names())
	assert.Equal(t, 0.001, set.At(1))
	got, err := set.Lookup("fs")
	require.NoError(t, err)
	assert.Equal(t, 8.5e3, got)
	_, err = set.Lookup("Comment")
	assert.ErrorIs(t, err, ErrParameterNotFound)

	_, err = a.ParameterSet("fs", "nope")
	assert.ErrorIs(t, err, ErrParameterNotFound)
}

func TestParametersGroupMissing(t *testing.T) {
	a := newArchive(t, tagged(0, 15, 1))
	_, err := a.Parameters()
	assert.ErrorIs(t, err, ErrComponentUnavailable)
}

func writeSidecar(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	archive := filepath.Join(dir, "run.h5")
	require.NoError(t, os.WriteFile(SidecarPath(archive), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return archive
}

func TestLegacyParametersFromSidecar(t *testing.T) {
	path := writeSidecar(t, "BunchCurrent=0.0042", "RevolutionFrequency = 2.7e6")
	a, err := New(legacyStore(), path)
	require.NoError(t, err)
	defer a.Close()

	params, err := a.Parameters()
	require.NoError(t, err)
	assert.Empty(t, params)

	v, err := a.Parameter(ParamBunchCurrent)
	require.NoError(t, err)
	assert.Equal(t, 0.0042, v)

	v, err = a.Parameter(ParamRevolutionFrequency)
	require.NoError(t, err)
	assert.Equal(t, 2.7e6, v)

	_, err = a.Parameter("fs")
	assert.ErrorIs(t, err, ErrParameterNotFound)
}

func TestLegacyParametersWithoutSidecar(t *testing.T) {
	a, err := New(legacyStore(), filepath.Join(t.TempDir(), "run.h5"))
	require.NoError(t, err)
	defer a.Close()

	// The first stored sample, which the corrected component drops.
	v, err := a.Parameter(ParamBunchCurrent)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	v, err = a.Parameter(ParamRevolutionFrequency)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestLegacyBunchCurrentMissing(t *testing.T) {
	a := newArchive(t, NewMemStore().AddGroup("/Info", Attrs{"INOVESA_v": []int64{0, 9, 1}}))
	_, err := a.Parameter(ParamBunchCurrent)
	assert.ErrorIs(t, err, ErrParameterNotFound)
}

func TestSidecar(t *testing.T) {
	s, err := parseSidecar(strings.NewReader("# comment\nBunchCurrent = 1e-3\nBunchCurrentSpread=7\nName=run\n"))
	require.NoError(t, err)

	v, ok, err := s.Float("BunchCurrent")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1e-3, v)

	_, ok, err = s.Float("Missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Float("Name")
	assert.Error(t, err)

	var none *Sidecar
	_, ok, err = none.Float("BunchCurrent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadSidecar(t *testing.T) {
	assert.Equal(t, "/data/run.cfg", SidecarPath("/data/run.h5"))
	assert.Equal(t, "/data/run.cfg", SidecarPath("/data/run"))

	s, err := ReadSidecar(filepath.Join(t.TempDir(), "absent.h5"))
	require.NoError(t, err)
	_, ok, err := s.Float("BunchCurrent")
	require.NoError(t, err)
	assert.False(t, ok)

	path := writeSidecar(t, "BunchCurrent=2")
	s, err = ReadSidecar(path)
	require.NoError(t, err)
	assert.Equal(t, SidecarPath(path), s.Path)
	v, ok, err := s.Float("BunchCurrent")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}
