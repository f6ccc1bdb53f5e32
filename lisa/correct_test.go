package lisa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(t *testing.T, a *Archive, q Quantity, r Role) ([]int, []float64) {
	t.Helper()
	c, err := a.One(q, r)
	require.NoError(t, err)
	vals, err := c.Values()
	require.NoError(t, err)
	return c.Shape(), vals
}

func TestRecomputeBunchLength(t *testing.T) {
	s := NewMemStore().
		AddGroup("/Info", Attrs{"Inovesa_v": []int64{0, 14, 1}}).
		AddDataset("/Info/AxisValues_t", []int{2}, []float64{0, 1}, nil).
		AddDataset("/Info/AxisValues_z", []int{3}, []float64{1, 2, 3}, nil).
		AddDataset("/BunchLength/data", []int{2}, []float64{99, 99}, nil).
		AddDataset("/BunchProfile/data", []int{2, 3}, []float64{1, 1, 2, 0, 1, 0}, nil)
	a := newArchive(t, s)

	shape, vals := values(t, a, BunchLength, Data)
	assert.Equal(t, []int{2}, shape)
	require.Len(t, vals, 2)
	assert.InDelta(t, math.Sqrt(23.0/4.0), vals[0], 1e-12)
	assert.InDelta(t, 2.0, vals[1], 1e-12)
	assert.Equal(t, 0, s.Reads("/BunchLength/data"))

	// The profile itself is untouched.
	_, profile := values(t, a, BunchProfile, Data)
	assert.Equal(t, []float64{1, 1, 2, 0, 1, 0}, profile)
	assert.Equal(t, 1, s.Reads("/BunchProfile/data"))
}

func TestRecomputeNeedsProfile(t *testing.T) {
	s := NewMemStore().
		AddDataset("/Info/Inovesa_v", []int{3}, []float64{0, 14, 0}, nil).
		AddDataset("/Info/AxisValues_z", []int{3}, []float64{1, 2, 3}, nil).
		AddDataset("/BunchLength/data", []int{1}, []float64{99}, nil)
	a := newArchive(t, s)

	_, err := a.One(BunchLength, Data)
	assert.ErrorIs(t, err, ErrComponentUnavailable)

	s.AddDataset("/BunchProfile/data", []int{3}, []float64{1, 1, 2}, nil)
	b := newArchive(t, s)
	_, err = b.One(BunchLength, Data)
	assert.ErrorIs(t, err, ErrCorruptArchive)
}

func TestSquaredBunchLength(t *testing.T) {
	for _, v := range [][]float64{{0, 10, 0}, {0, 13, 0}, {0, 13, 2}} {
		s := NewMemStore().
			AddDataset("/Info/Inovesa_v", []int{3}, v, nil).
			AddDataset("/BunchLength/data", []int{4}, []float64{1, 4, 9, 16}, nil)
		a := newArchive(t, s)
		_, vals := values(t, a, BunchLength, Data)
		assert.Equal(t, []float64{1, 2, 3, 4}, vals, "version %v", v)
	}
}

func TestFixedBunchLength(t *testing.T) {
	s := NewMemStore().
		AddDataset("/Info/Inovesa_v", []int{3}, []float64{1, 0, 0}, nil).
		AddDataset("/BunchLength/data", []int{4}, []float64{1, 4, 9, 16}, nil)
	a := newArchive(t, s)
	_, vals := values(t, a, BunchLength, Data)
	assert.Equal(t, []float64{1, 4, 9, 16}, vals)
}

func legacyStore() *MemStore {
	return NewMemStore().
		AddGroup("/Info", Attrs{"INOVESA_v": []int64{0, 9, 1}}).
		AddDataset("/Info/AxisValues_t", []int{4}, []float64{0, 0.5, 1, 1.5}, nil).
		AddDataset("/Info/AxisValues_z", []int{2, 3}, []float64{1, 2, 3, 1, 2, 3}, nil).
		AddDataset("/Info/AxisValues_f", []int{2, 5}, []float64{0, 1, 2, 3, 4, 0, 1, 2, 3, 4}, nil).
		AddDataset("/BunchLength/data", []int{4}, []float64{0, 4, 9, 16}, nil).
		AddDataset("/BunchCurrent/data", []int{4}, []float64{7, 6, 5, 4}, nil).
		AddDataset("/CSRPower/data", []int{4}, []float64{0, 1, 2, 3}, nil).
		AddDataset("/CSRSpectrum/data", []int{4, 5}, ones(20), nil).
		AddDataset("/BunchProfile/data", []int{4, 3}, ones(12), nil)
}

func TestLegacyCorrections(t *testing.T) {
	a := newArchive(t, legacyStore())

	shape, vals := values(t, a, BunchLength, TimeAxis)
	assert.Equal(t, []int{3}, shape)
	assert.Equal(t, []float64{0.5, 1, 1.5}, vals)

	shape, vals = values(t, a, BunchLength, Data)
	assert.Equal(t, []int{3}, shape)
	assert.Equal(t, []float64{2, 3, 4}, vals)

	_, vals = values(t, a, BunchPopulation, Data)
	assert.Equal(t, []float64{6, 5, 4}, vals)

	_, vals = values(t, a, CSRIntensity, Data)
	assert.Equal(t, []float64{1, 2, 3}, vals)

	shape, vals = values(t, a, BunchProfile, SpaceAxis)
	assert.Equal(t, []int{3}, shape)
	assert.Equal(t, []float64{1, 2, 3}, vals)

	shape, _ = values(t, a, BunchProfile, Data)
	assert.Equal(t, []int{3, 3}, shape)

	v, err := a.Many(CSRSpectrum)
	require.NoError(t, err)
	assert.Equal(t, []Role{FrequencyAxis, TimeAxis, Data}, v.Roles())
	assert.Equal(t, []int{5}, v.At(0).Shape())
	assert.Equal(t, []int{3, 5}, v.At(2).Shape())
}

func TestCorrectionComposition(t *testing.T) {
	c := dropFirst.then(squareRoot)
	assert.Equal(t, "drop-first+sqrt", c.name)

	shape, err := c.shape([]int{3, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, shape)

	vals, err := c.values([]float64{0, 0, 1, 4, 9, 16}, []int{3, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, vals)

	_, err = dropFirst.shape([]int{0})
	assert.Error(t, err)
	_, err = dropFirst.shape(nil)
	assert.Error(t, err)

	// One-dimensional axes are already a single row.
	shape, err = firstRow.shape([]int{4})
	require.NoError(t, err)
	assert.Equal(t, []int{4}, shape)
}

func TestRMSWidth(t *testing.T) {
	out, err := rmsWidth([]float64{-1, 0, 1}, []float64{1, 0, 1, 0, 1, 0}, 2, 3)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, out, 1e-12)

	_, err = rmsWidth([]float64{1, 2}, []float64{1, 1, 1}, 1, 3)
	assert.Error(t, err)
}
