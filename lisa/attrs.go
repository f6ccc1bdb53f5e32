package lisa

import (
	"fmt"
	"maps"
	"slices"
)

// Attrs is the metadata map of a stored node. Values are float64, int64,
// string or slices of those.
type Attrs map[string]any

// Has reports whether name is present.
func (a Attrs) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Names returns the attribute names, sorted.
func (a Attrs) Names() []string {
	return slices.Sorted(maps.Keys(a))
}

// Float returns attribute name as a float64. Single-element numeric slices
// count as scalars.
func (a Attrs) Float(name string) (float64, bool) {
	v, ok := a[name]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// String returns attribute name as a string.
func (a Attrs) String(name string) (string, bool) {
	switch v := a[name].(type) {
	case string:
		return v, true
	case []string:
		if len(v) == 1 {
			return v[0], true
		}
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case []float64:
		if len(x) == 1 {
			return x[0], true
		}
	case []int64:
		if len(x) == 1 {
			return float64(x[0]), true
		}
	}
	return 0, false
}

// toFloats converts a numeric attribute or dataset value to a slice.
func toFloats(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []int64:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, nil
	}
	if f, ok := toFloat(v); ok {
		return []float64{f}, nil
	}
	return nil, fmt.Errorf("value of type %T is not numeric", v)
}
