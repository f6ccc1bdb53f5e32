package lisa

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-inovesa/hdf5/hdf5test"
)

// axes adds the grid axes. Legacy archives stored the z, E and f axes with
// a leading row dimension.
func axes(f *hdf5test.File, times []float64, legacy bool, attrs map[string]map[string]any) *hdf5test.File {
	grids := []struct {
		name string
		vals []float64
	}{
		{"z", []float64{1, 2, 3}},
		{"E", []float64{-1, 0, 1}},
		{"f", []float64{0, 1, 2, 3, 4}},
	}
	f.Dataset("/Info/AxisValues_t", []int{len(times)}, times, attrs["t"])
	for _, g := range grids {
		shape, vals := []int{len(g.vals)}, g.vals
		if legacy {
			shape, vals = []int{2, len(g.vals)}, append(append([]float64{}, g.vals...), g.vals...)
		}
		f.Dataset("/Info/AxisValues_"+g.name, shape, vals, attrs[g.name])
	}
	return f
}

// sampleArchives builds the sample archives by file name.
var sampleArchives = map[string]func() *hdf5test.File{
	// The current layout, tagged v0.15.1.
	"inovesa_v15.h5": func() *hdf5test.File {
		f := hdf5test.New().
			Dataset("/Info/Inovesa_v", []int{3}, []int32{0, 15, 1}, nil)
		axes(f, []float64{0, 0.5, 1, 1.5}, false, map[string]map[string]any{
			"t": {"Second": 0.25},
			"z": {"Meter": 0.001, "Second": 0.5},
			"E": {"ElectronVolt": 100.0},
			"f": {"Hertz": 1e9},
		})
		return f.
			Group("/Info/Parameters", map[string]any{
				"BunchCurrent": 0.001, "RevolutionFrequency": 2.7e6, "fs": 8.5e3, "Comment": "fixture",
			}).
			Dataset("/BunchLength/data", []int{4}, []float64{1, 2, 3, 4}, map[string]any{"Meter": 2.0, "Second": 1e-3}).
			Dataset("/BunchProfile/data", []int{4, 3}, []float64{1, 1, 2, 1, 1, 2, 1, 1, 2, 1, 1, 2},
				map[string]any{"CoulombPerNBL": 4.0, "AmperePerNBL": 3.0},
				hdf5test.Chunked(hdf5test.Shuffle, hdf5test.Deflate(4))).
			Dataset("/EnergyProfile/data", []int{4, 3}, ones(12), map[string]any{"CoulombPerNES": 6.0, "AmperePerNES": 5.0}).
			Dataset("/PhaseSpace/data", []int{4, 3, 3}, ones(36),
				map[string]any{"CoulombPerNBLPerNES": 10.0, "AmperePerNBLPerNES": 20.0},
				hdf5test.Chunked(hdf5test.Deflate(6), hdf5test.Fletcher32)).
			Dataset("/CSR/Intensity/data", []int{4}, []float64{0, 1, 2, 3}, map[string]any{"Watt": 3.0}).
			Dataset("/CSR/Spectrum/data", []int{4, 5}, ones(20), map[string]any{"WattPerHertz": 0.5}).
			Group("/Impedance/data", map[string]any{"Ohm": 50.0}).
			Dataset("/Impedance/data/real", []int{5}, []float64{0, 1, 2, 3, 4}, nil).
			Dataset("/Impedance/data/imag", []int{5}, []float64{0, -1, -2, -3, -4}, nil).
			Dataset("/SourceMap/data/x", []int{3, 3}, ones(9), nil).
			Dataset("/SourceMap/data/y", []int{3, 3}, make([]float64, 9), nil).
			Dataset("/BunchPopulation/data", []int{4}, ones(4), nil).
			Dataset("/EnergySpread/data", []int{4}, []float64{0.5, 0.5, 0.5, 0.5}, nil, hdf5test.Compact())
	},

	// The era whose stored bunch length is recomputed from the profile.
	"inovesa_v14.h5": func() *hdf5test.File {
		f := hdf5test.New().
			Group("/Info", map[string]any{"Inovesa_v": []int32{0, 14, 1}})
		return axes(f, []float64{0}, false, nil).
			Group("/Info/Parameters", map[string]any{"BunchCurrent": 0.002}).
			Dataset("/BunchLength/data", []int{1}, []float64{99}, nil).
			Dataset("/BunchProfile/data", []int{1, 3}, []float64{1, 1, 2}, nil)
	},

	// A v0.9.1 archive with the old group names.
	"inovesa_legacy.h5": func() *hdf5test.File {
		f := hdf5test.New().
			Group("/Info", map[string]any{"INOVESA_v": []int32{0, 9, 1}})
		return axes(f, []float64{0, 0.5, 1, 1.5}, true, nil).
			Dataset("/BunchLength/data", []int{4}, []float64{0, 4, 9, 16}, nil).
			Dataset("/BunchCurrent/data", []int{4}, []float64{7, 6, 5, 4}, nil).
			Dataset("/CSRPower/data", []int{4}, []float64{0, 1, 2, 3}, nil).
			Dataset("/CSRSpectrum/data", []int{4, 5}, ones(20), nil).
			Dataset("/BunchProfile/data", []int{4, 3}, ones(12), nil)
	},
}

var sampleSidecars = map[string]string{
	"inovesa_legacy.h5": "BunchCurrent=0.0042\nRevolutionFrequency = 2.7e6\n",
}

// writeSamples writes the named sample archives and their sidecars into a
// temporary directory and returns it.
func writeSamples(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		build, ok := sampleArchives[name]
		require.True(t, ok, "no sample archive %s", name)
		p := filepath.Join(dir, name)
		require.NoError(t, build().WriteFile(p))
		if cfg, ok := sampleSidecars[name]; ok {
			require.NoError(t, os.WriteFile(SidecarPath(p), []byte(cfg), 0o644))
		}
	}
	return dir
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(writeSamples(t, name), name)
}

func openFixture(t *testing.T, name string, opts ...Option) *Archive {
	t.Helper()
	a, err := Open(fixture(t, name), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestFixtureCurrent(t *testing.T) {
	a := openFixture(t, "inovesa_v15.h5")
	assert.Equal(t, Version{0, 15, 1}, a.Version())

	shape, vals := values(t, a, BunchProfile, Data)
	assert.Equal(t, []int{4, 3}, shape)
	assert.Equal(t, []float64{1, 1, 2}, vals[:3])

	shape, vals = values(t, a, PhaseSpace, Data)
	assert.Equal(t, []int{4, 3, 3}, shape)
	assert.Equal(t, ones(36), vals)

	g, err := a.One(Impedance, DataGroup)
	require.NoError(t, err)
	ohm, ok := g.Attrs().Float("Ohm")
	require.True(t, ok)
	assert.Equal(t, 50.0, ohm)

	_, imag := values(t, a, Impedance, Imag)
	assert.Equal(t, []float64{0, -1, -2, -3, -4}, imag)

	v, err := a.Parameter("Comment")
	require.NoError(t, err)
	assert.Equal(t, "fixture", v)

	c, err := NewConverter(a)
	require.NoError(t, err)
	f, _, err := c.Factor(BunchProfile, Data, UnitOf("cps"))
	require.NoError(t, err)
	assert.Equal(t, 8.0, f)

	m, err := c.Get(BunchLength, Data, UnitOf("m"))
	require.NoError(t, err)
	meters, err := m.Values()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6, 8}, meters)
}

func TestFixtureRecompute(t *testing.T) {
	a := openFixture(t, "inovesa_v14.h5")
	assert.Equal(t, Version{0, 14, 1}, a.Version())

	_, vals := values(t, a, BunchLength, Data)
	require.Len(t, vals, 1)
	assert.InDelta(t, math.Sqrt(23.0/4.0), vals[0], 1e-12)
}

func TestFixtureLegacy(t *testing.T) {
	a := openFixture(t, "inovesa_legacy.h5")
	assert.True(t, a.Version().Legacy())

	_, vals := values(t, a, BunchLength, Data)
	assert.Equal(t, []float64{2, 3, 4}, vals)

	v, err := a.Parameter(ParamBunchCurrent)
	require.NoError(t, err)
	assert.Equal(t, 0.0042, v)
}

func TestFixtureCatalog(t *testing.T) {
	dir := writeSamples(t, "inovesa_v15.h5", "inovesa_v14.h5", "inovesa_legacy.h5")
	c, err := OpenCatalog(dir, "inovesa_*.h5")
	require.NoError(t, err)
	defer c.Close()

	archives, err := c.Archives(context.Background())
	require.NoError(t, err)
	require.Len(t, archives, 3)
	// Only the legacy archive has a sidecar.
	assert.Equal(t, "inovesa_legacy.h5", filepath.Base(archives[0].Path()))
}

func TestFixtureUnreadableAttribute(t *testing.T) {
	p := filepath.Join(t.TempDir(), "opaque.h5")
	w := hdf5test.New().
		Dataset("/Info/Inovesa_v", []int{3}, []int32{0, 15, 1}, nil).
		Group("/Info/Parameters", map[string]any{"fs": 8.5e3, "Blob": hdf5test.Opaque{1, 2, 3, 4}})
	require.NoError(t, w.WriteFile(p))

	var buf bytes.Buffer
	a, err := Open(p, WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))
	require.NoError(t, err)
	defer a.Close()

	params, err := a.Parameters()
	require.NoError(t, err)
	assert.True(t, params.Has("fs"))
	assert.False(t, params.Has("Blob"))
	assert.Contains(t, buf.String(), `"attribute":"Blob"`)
	assert.Contains(t, buf.String(), "skipping attribute")
}
