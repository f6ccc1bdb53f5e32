package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-inovesa/hdf5/hdf5test"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// archive writes a small v0.15.1 archive and returns its path.
func archive(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "inovesa_v15.h5")
	f := hdf5test.New().
		Dataset("/Info/Inovesa_v", []int{3}, []int32{0, 15, 1}, nil).
		Dataset("/Info/AxisValues_t", []int{4}, []float64{0, 0.5, 1, 1.5}, map[string]any{"Second": 0.25}).
		Dataset("/Info/AxisValues_z", []int{3}, []float64{1, 2, 3}, map[string]any{"Meter": 0.001, "Second": 0.5}).
		Dataset("/Info/AxisValues_E", []int{3}, []float64{-1, 0, 1}, map[string]any{"ElectronVolt": 100.0}).
		Dataset("/Info/AxisValues_f", []int{5}, []float64{0, 1, 2, 3, 4}, map[string]any{"Hertz": 1e9}).
		Group("/Info/Parameters", map[string]any{
			"BunchCurrent": 0.001, "RevolutionFrequency": 2.7e6, "fs": 8.5e3, "Comment": "fixture",
		}).
		Dataset("/BunchLength/data", []int{4}, []float64{1, 2, 3, 4}, map[string]any{"Meter": 2.0}).
		Dataset("/BunchProfile/data", []int{4, 3}, []float64{1, 1, 2, 1, 1, 2, 1, 1, 2, 1, 1, 2},
			map[string]any{"CoulombPerNBL": 4.0, "AmperePerNBL": 3.0},
			hdf5test.Chunked(hdf5test.Shuffle, hdf5test.Deflate(6))).
		Dataset("/SourceMap/data/x", []int{3, 3}, make([]float64, 9), nil).
		Dataset("/SourceMap/data/y", []int{3, 3}, make([]float64, 9), nil)
	require.NoError(t, f.WriteFile(p))
	return p
}

func scanDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, cfg := range map[string]string{
		"low.h5":  "BunchCurrent=0.001\n",
		"high.h5": "BunchCurrent = 0.003\n",
		"none.h5": "",
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, make([]byte, 2048), 0o644))
		if cfg != "" {
			require.NoError(t, os.WriteFile(strings.TrimSuffix(p, ".h5")+".cfg", []byte(cfg), 0o644))
		}
	}
	return dir
}

func TestLs(t *testing.T) {
	dir := scanDir(t)

	out, _, err := execute(t, "ls", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "high.h5")
	assert.Contains(t, lines[0], "0.003 A")
	assert.Contains(t, lines[0], "2.0 kB")
	assert.Contains(t, lines[1], "low.h5")
	assert.Contains(t, lines[2], "none.h5")
	assert.Equal(t, "3 archives", lines[3])
}

func TestLsJSON(t *testing.T) {
	dir := scanDir(t)

	out, _, err := execute(t, "ls", "--format", "json", dir)
	require.NoError(t, err)
	var entries []catalogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)
	require.NotNil(t, entries[0].BunchCurrent)
	assert.Equal(t, 0.003, *entries[0].BunchCurrent)
	assert.Nil(t, entries[2].BunchCurrent)
	assert.Equal(t, int64(2048), entries[1].Size)
}

func TestLsFromEnvironment(t *testing.T) {
	dir := scanDir(t)
	t.Setenv("LISA_DIR", dir)

	out, _, err := execute(t, "ls", "--pattern", "h*.h5")
	require.NoError(t, err)
	assert.Contains(t, out, "high.h5")
	assert.Contains(t, out, "1 archives")
}

func TestBadFormat(t *testing.T) {
	_, _, err := execute(t, "ls", "--format", "xml", t.TempDir())
	assert.ErrorContains(t, err, "unknown format")
}

func TestArgs(t *testing.T) {
	_, _, err := execute(t, "get", "only-a-file")
	assert.Error(t, err)

	_, _, err = execute(t, "get", "x.h5", "bunch_profile", "sideways")
	assert.ErrorContains(t, err, "role not applicable")

	_, _, err = execute(t, "info", filepath.Join(t.TempDir(), "missing.h5"))
	assert.ErrorContains(t, err, "corrupt archive")
}

func TestSummarize(t *testing.T) {
	s, err := summarize([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 4, s.N)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 2.5, s.Median)
	assert.InDelta(t, 1.118, s.StdDev, 1e-3)

	_, err = summarize(nil)
	assert.Error(t, err)
}

func TestFormatValues(t *testing.T) {
	assert.Equal(t, "[1 2 3]", formatValues([]float64{1, 2, 3}, 10))
	assert.Equal(t, "[0 1 ... 4 5]", formatValues([]float64{0, 1, 2, 3, 4, 5}, 4))
	assert.Equal(t, "[]", formatValues(nil, 4))
	assert.Equal(t, "<none>", formatAny(nil))
	assert.Equal(t, `"x"`, formatAny("x"))
	assert.Equal(t, "0.5", formatAny(0.5))
}

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lisa_test_total", Help: "Test conversions."}, []string{"unit"})
	reg.MustRegister(c)
	c.WithLabelValues("m").Add(3)

	var buf bytes.Buffer
	require.NoError(t, writeMetrics(&buf, reg))
	assert.Equal(t, "# HELP lisa_test_total Test conversions.\n"+
		"# TYPE lisa_test_total counter\n"+
		"lisa_test_total{unit=\"m\"} 3\n", buf.String())
}

func TestArchiveCommands(t *testing.T) {
	path := archive(t)

	out, _, err := execute(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "v0.15.1")
	assert.Contains(t, out, "parameters: 4")

	out, _, err = execute(t, "quantities", path)
	require.NoError(t, err)
	assert.Contains(t, out, "source_map")

	out, _, err = execute(t, "get", "-f", "json", "--unit", "cps", "--index", "0", path, "bunch_profile", "data")
	require.NoError(t, err)
	var res getResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []float64{8, 8, 16}, res.Values)
	assert.Equal(t, []int{3}, res.Shape)

	out, _, err = execute(t, "stats", path, "bunch_length", "data", "-u", "m")
	require.NoError(t, err)
	assert.Contains(t, out, "4 values")

	out, _, err = execute(t, "params", path, "fs", "BunchCurrent")
	require.NoError(t, err)
	assert.Equal(t, "fs = 8500\nBunchCurrent = 0.001\n", out)

	out, errOut, err := execute(t, "tree", "--attrs", "--metrics", path)
	require.NoError(t, err)
	assert.Contains(t, out, "AxisValues_z")
	assert.Contains(t, out, "@Meter = 0.001")
	assert.Empty(t, errOut)
}
