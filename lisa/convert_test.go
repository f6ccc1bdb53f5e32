package lisa

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConverter(t *testing.T, s Store, opts ...Option) *Converter {
	t.Helper()
	c, err := NewConverter(newArchive(t, s), opts...)
	require.NoError(t, err)
	return c
}

func converted(t *testing.T, c *Converter, q Quantity, r Role, u Unit, opts ...GetOption) []float64 {
	t.Helper()
	comp, err := c.Get(q, r, u, opts...)
	require.NoError(t, err)
	vals, err := comp.Values()
	require.NoError(t, err)
	return vals
}

func TestConvertOldUnitNames(t *testing.T) {
	s := NewMemStore().
		AddDataset("/Info/Inovesa_v", []int{3}, []float64{0, 12, 0}, nil).
		AddDataset("/BunchLength/data", []int{4}, []float64{1, 4, 9, 16}, Attrs{"Factor4Meters": 2.0})
	c := newConverter(t, s)

	raw := converted(t, c, BunchLength, Data, Raw)
	assert.Equal(t, []float64{1, 2, 3, 4}, raw)

	m := converted(t, c, BunchLength, Data, UnitOf("m"))
	assert.Equal(t, []float64{2, 4, 6, 8}, m)

	// Aliases are case-insensitive.
	m = converted(t, c, BunchLength, Data, UnitOf("Meters"))
	assert.Equal(t, []float64{2, 4, 6, 8}, m)

	_, err := c.Get(BunchLength, Data, UnitOf(""))
	assert.ErrorIs(t, err, ErrNoUnitSpecified)

	// Units the table does not know leave the values unscaled.
	furlong := converted(t, c, BunchLength, Data, UnitOf("furlong"))
	assert.Equal(t, raw, furlong)
	f, scaled, err := c.Factor(BunchLength, Data, UnitOf("furlong"))
	require.NoError(t, err)
	assert.False(t, scaled)
	assert.Equal(t, 1.0, f)

	// Seconds are a valid alias but the attribute is absent.
	_, err = c.Get(BunchLength, Data, UnitOf("s"))
	assert.ErrorIs(t, err, ErrInvalidUnit)
}

func TestConvertRawAliases(t *testing.T) {
	c := newConverter(t, currentStore())
	for _, name := range []string{"ts", "raw", "TS"} {
		f, scaled, err := c.Factor(BunchProfile, TimeAxis, UnitOf(name))
		require.NoError(t, err, name)
		assert.False(t, scaled, name)
		assert.Equal(t, 1.0, f, name)
	}
	assert.Equal(t, "raw", Raw.String())
	assert.True(t, Raw.IsRaw())
	assert.False(t, UnitOf("").IsRaw())
}

func TestConvertShortenedAttribute(t *testing.T) {
	s := tagged(0, 14, 1).
		AddDataset("/EnergyProfile/data", []int{4, 3}, ones(12), nil)
	c := newConverter(t, s)

	f, scaled, err := c.Factor(EnergyProfile, EnergyAxis, UnitOf("eV"))
	require.NoError(t, err)
	assert.True(t, scaled)
	assert.Equal(t, 100.0, f)

	vals := converted(t, c, EnergyProfile, EnergyAxis, UnitOf("ev"))
	assert.Equal(t, []float64{-100, 0, 100}, vals)
}

func TestMatchAttr(t *testing.T) {
	tests := []struct {
		attrs Attrs
		name  string
		want  string
		ok    bool
	}{
		{Attrs{"Factor4Meters": 1.0}, "Factor4Meters", "Factor4Meters", true},
		{Attrs{"Meters": 1.0}, "Factor4Meters", "Meters", true},
		{Attrs{"Meter": 1.0}, "Factor4Meters", "Meter", true},
		{Attrs{"Meter": 1.0}, "Meter", "Meter", true},
		{Attrs{"Mete": 1.0}, "Meter", "", false},
		{Attrs{}, "Factor4Watts", "", false},
	}
	for _, tt := range tests {
		got, ok := matchAttr(tt.attrs, tt.name)
		assert.Equal(t, tt.ok, ok, "%v %s", tt.attrs, tt.name)
		assert.Equal(t, tt.want, got, "%v %s", tt.attrs, tt.name)
	}
}

func TestConvertCurrentUnitNames(t *testing.T) {
	c := newConverter(t, currentStore())

	raw := converted(t, c, BunchLength, Data, Raw)
	require.Len(t, raw, 4)
	assert.InDelta(t, 2.398, raw[0], 1e-3)
	vals := converted(t, c, BunchLength, Data, UnitOf("m"))
	for i := range raw {
		assert.InDelta(t, 2*raw[i], vals[i], 1e-12)
	}

	vals = converted(t, c, BunchProfile, SpaceAxis, UnitOf("m"))
	assert.InDeltaSlice(t, []float64{0.001, 0.002, 0.003}, vals, 1e-15)

	vals = converted(t, c, CSRIntensity, Data, UnitOf("W"))
	assert.Equal(t, []float64{0, 3, 6, 9}, vals)

	vals = converted(t, c, CSRSpectrum, FrequencyAxis, UnitOf("Hz"))
	assert.Equal(t, []float64{0, 1e9, 2e9, 3e9, 4e9}, vals)

	// The stored values are not modified.
	stored := converted(t, c, CSRIntensity, Data, Raw)
	assert.Equal(t, []float64{0, 1, 2, 3}, stored)
}

func TestConvertComposite(t *testing.T) {
	c := newConverter(t, currentStore())

	f, scaled, err := c.Factor(BunchProfile, Data, UnitOf("C/s"))
	require.NoError(t, err)
	assert.True(t, scaled)
	assert.Equal(t, 8.0, f)

	f, _, err = c.Factor(BunchProfile, Data, UnitOf("aps"))
	require.NoError(t, err)
	assert.Equal(t, 6.0, f)

	f, _, err = c.Factor(EnergyProfile, Data, UnitOf("cpev"))
	require.NoError(t, err)
	assert.InDelta(t, 0.06, f, 1e-15)

	f, _, err = c.Factor(PhaseSpace, Data, UnitOf("c/s/ev"))
	require.NoError(t, err)
	assert.InDelta(t, 10.0/100/0.5, f, 1e-12)

	vals := converted(t, c, BunchProfile, Data, UnitOf("cps"), WithSubIndex(0))
	assert.Equal(t, []float64{8, 8, 16}, vals)
}

func TestConvertCompositeIllegal(t *testing.T) {
	c := newConverter(t, currentStore())

	_, err := c.Get(EnergyProfile, Data, UnitOf("cps"))
	assert.ErrorIs(t, err, ErrIllegalConversion)

	_, err = c.Get(BunchProfile, Data, UnitOf("cpev"))
	assert.ErrorIs(t, err, ErrIllegalConversion)

	// Composite units need the divisor axes.
	_, err = c.Get(BunchLength, Data, UnitOf("cpspev"))
	assert.ErrorIs(t, err, ErrIllegalConversion)
}

func TestConvertCompositeMissingAttribute(t *testing.T) {
	s := tagged(0, 15, 1).
		AddDataset("/BunchProfile/data", []int{4, 3}, ones(12), Attrs{"AmperePerNBL": 3.0})
	c := newConverter(t, s)

	_, err := c.Get(BunchProfile, Data, UnitOf("cps"))
	require.ErrorIs(t, err, ErrConversionFailure)
	assert.Contains(t, err.Error(), "CoulombPerNBL")

	// Composites do not fall back to shortened names.
	old := tagged(0, 14, 1).
		AddDataset("/BunchProfile/data", []int{4, 3}, ones(12), Attrs{"CoulombPerNBL": 4.0}).
		SetAttr("/Info/AxisValues_z", "Factor4Seconds", 0.5)
	c = newConverter(t, old)
	_, err = c.Get(BunchProfile, Data, UnitOf("cps"))
	require.ErrorIs(t, err, ErrConversionFailure)
	assert.Contains(t, err.Error(), "Factor4CoulombPerNBL")
}

func TestConvertImpedance(t *testing.T) {
	c := newConverter(t, currentStore())

	vals := converted(t, c, Impedance, Real, UnitOf("Ohm"))
	assert.Equal(t, []float64{0, 50, 100, 150, 200}, vals)

	vals = converted(t, c, Impedance, FrequencyAxis, UnitOf("hz"))
	assert.Equal(t, 4e9, vals[4])
}

func TestConvertSubIndex(t *testing.T) {
	c := newConverter(t, currentStore())

	comp, err := c.Get(PhaseSpace, Data, UnitOf("cpspev"), WithSubIndex(3))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, comp.Shape())
	vals, err := comp.Values()
	require.NoError(t, err)
	assert.Len(t, vals, 9)
	assert.InDelta(t, 0.2, vals[0], 1e-12)

	_, err = c.Get(PhaseSpace, Data, Raw, WithSubIndex(4))
	assert.Error(t, err)
}

func TestConvertMemoizes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newConverter(t, currentStore(), WithFactorCache(), WithRegisterer(reg))

	f1, _, err := c.Factor(BunchLength, Data, UnitOf("m"))
	require.NoError(t, err)
	f2, _, err := c.Factor(BunchLength, Data, UnitOf("meter"))
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	_, _, err = c.Factor(BunchLength, Data, UnitOf("m"))
	require.NoError(t, err)
	assert.Len(t, c.factors, 2)

	// Raw is never looked up.
	converted(t, c, BunchLength, Data, UnitOf("m"))
	converted(t, c, BunchLength, Data, Raw)
	assert.Len(t, c.factors, 2)
	assert.Equal(t, 2.0, gathered(t, reg, "lisa_conversions_total"))

	plain := newConverter(t, currentStore())
	_, _, err = plain.Factor(BunchLength, Data, UnitOf("m"))
	require.NoError(t, err)
	assert.Empty(t, plain.factors)
}

func TestConvertUnknownQuantity(t *testing.T) {
	c := newConverter(t, currentStore())
	_, _, err := c.Factor("nonsense", Data, UnitOf("m"))
	assert.ErrorIs(t, err, ErrUnknownQuantity)
	_, err = c.Get(BunchLength, EnergyAxis, UnitOf("ev"))
	assert.ErrorIs(t, err, ErrRoleNotApplicable)
}

func TestConvertDataGroup(t *testing.T) {
	c := newConverter(t, currentStore())
	g, err := c.Get(Impedance, DataGroup, Raw)
	require.NoError(t, err)
	assert.True(t, g.Group())
	assert.True(t, g.Attrs().Has("Ohm"))
}
