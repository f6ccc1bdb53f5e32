package lisa

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// correction repairs a component written by a release with a known bug.
// shape maps the stored shape to the corrected one; values receives the
// stored values and stored shape. A derived correction computes its values
// from other components and is passed nil instead of the stored values.
type correction struct {
	name    string
	shape   func([]int) ([]int, error)
	values  func(vals []float64, shape []int) ([]float64, error)
	derived bool
}

var asStored = correction{
	name:   "none",
	shape:  func(s []int) ([]int, error) { return slices.Clone(s), nil },
	values: func(v []float64, _ []int) ([]float64, error) { return v, nil },
}

// dropFirst removes the first sample along the time axis, an
// initialization artifact of legacy archives.
var dropFirst = correction{
	name: "drop-first",
	shape: func(s []int) ([]int, error) {
		if len(s) == 0 || s[0] == 0 {
			return nil, fmt.Errorf("cannot drop the first sample of shape %v", s)
		}
		out := slices.Clone(s)
		out[0]--
		return out, nil
	},
	values: func(v []float64, s []int) ([]float64, error) {
		return v[stride(s):], nil
	},
}

// firstRow keeps the first row of a legacy axis, which was stored once per
// time step.
var firstRow = correction{
	name: "first-row",
	shape: func(s []int) ([]int, error) {
		if len(s) < 2 {
			return slices.Clone(s), nil
		}
		return slices.Clone(s[1:]), nil
	},
	values: func(v []float64, s []int) ([]float64, error) {
		if len(s) < 2 {
			return v, nil
		}
		return v[:stride(s)], nil
	},
}

// squareRoot undoes bunch lengths that were stored squared.
var squareRoot = correction{
	name:  "sqrt",
	shape: asStored.shape,
	values: func(v []float64, _ []int) ([]float64, error) {
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = math.Sqrt(x)
		}
		return out, nil
	},
}

// then applies c and afterwards next.
func (c correction) then(next correction) correction {
	return correction{
		name:    c.name + "+" + next.name,
		derived: c.derived,
		shape: func(s []int) ([]int, error) {
			mid, err := c.shape(s)
			if err != nil {
				return nil, err
			}
			return next.shape(mid)
		},
		values: func(v []float64, s []int) ([]float64, error) {
			mid, err := c.values(v, s)
			if err != nil {
				return nil, err
			}
			midShape, err := c.shape(s)
			if err != nil {
				return nil, err
			}
			return next.values(mid, midShape)
		},
	}
}

// stride returns the number of elements in one step along the first axis.
func stride(shape []int) int {
	n := 1
	for _, d := range shape[1:] {
		n *= d
	}
	return n
}

// correction selects the fix for role r of q in this archive's epoch.
// Exactly one bunch length treatment applies per archive.
func (a *Archive) correction(q Quantity, r Role) (correction, error) {
	v := a.version
	lengthData := q == BunchLength && r == Data

	switch {
	case v.Legacy():
		switch {
		case r == TimeAxis:
			return dropFirst, nil
		case r == Data && a.axes.Has(q, TimeAxis):
			if lengthData {
				return dropFirst.then(squareRoot), nil
			}
			return dropFirst, nil
		case r == SpaceAxis || r == EnergyAxis || r == FrequencyAxis:
			return firstRow, nil
		}
	case lengthData && v.Less(LengthRecomputeFrom):
		return squareRoot, nil
	case lengthData && v.Less(LengthFixed):
		return a.recomputeLength()
	}
	return asStored, nil
}

// recomputeLength replaces the stored bunch length by the RMS width of the
// bunch profile at every time step:
//
//	length[t] = sqrt(Σ x_i² p[t,i] / Σ p[t,i])
//
// with x the space axis.
func (a *Archive) recomputeLength() (correction, error) {
	profile, err := a.One(BunchProfile, Data)
	if err != nil {
		return correction{}, fmt.Errorf("recomputing bunch length: %w", err)
	}
	axis, err := a.One(BunchProfile, SpaceAxis)
	if err != nil {
		return correction{}, fmt.Errorf("recomputing bunch length: %w", err)
	}
	ps := profile.Shape()
	if len(ps) != 2 {
		return correction{}, fmt.Errorf("%w: bunch profile has shape %v, want 2 dimensions", ErrCorruptArchive, ps)
	}

	return correction{
		name:    "recompute",
		derived: true,
		shape:   func([]int) ([]int, error) { return []int{ps[0]}, nil },
		values: func([]float64, []int) ([]float64, error) {
			x, err := axis.Values()
			if err != nil {
				return nil, err
			}
			p, err := profile.Values()
			if err != nil {
				return nil, err
			}
			return rmsWidth(x, p, ps[0], ps[1])
		},
	}, nil
}

// rmsWidth computes the weighted RMS of x for each of the rows of p.
func rmsWidth(x, p []float64, rows, cols int) ([]float64, error) {
	if len(x) != cols {
		return nil, fmt.Errorf("space axis has %d points, profile rows have %d", len(x), cols)
	}
	x2 := make([]float64, cols)
	for i, v := range x {
		x2[i] = v * v
	}
	out := make([]float64, rows)
	for t := range out {
		out[t] = math.Sqrt(stat.Mean(x2, p[t*cols:(t+1)*cols]))
	}
	return out, nil
}
