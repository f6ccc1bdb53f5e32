package lisa

import (
	"errors"
	"fmt"
	"maps"
)

// parameter names a legacy archive keeps in its sidecar rather than in
// Info/Parameters.
const (
	ParamBunchCurrent        = "BunchCurrent"
	ParamRevolutionFrequency = "RevolutionFrequency"
)

// Parameters returns the attributes of Info/Parameters. Legacy archives have
// no such group and yield an empty map.
func (a *Archive) Parameters() (Attrs, error) {
	group, ok := a.groups[Parameters]
	if !ok {
		return Attrs{}, nil
	}
	node, err := a.store.Node("/" + group)
	if errors.Is(err, ErrNodeNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrComponentUnavailable, group)
	}
	if err != nil {
		return nil, err
	}
	attrs, err := node.Attrs()
	if err != nil {
		return nil, fmt.Errorf("reading parameters: %w", err)
	}
	return maps.Clone(attrs), nil
}

// Parameter returns one simulation parameter. In legacy archives
// BunchCurrent comes from the sidecar, falling back to the first stored
// bunch current sample, and RevolutionFrequency comes from the sidecar only;
// it is nil when the sidecar lacks it.
func (a *Archive) Parameter(name string) (any, error) {
	if a.version.Legacy() {
		switch name {
		case ParamBunchCurrent:
			return a.legacyBunchCurrent()
		case ParamRevolutionFrequency:
			v, ok, err := a.sidecarFloat(name)
			if err != nil || !ok {
				return nil, err
			}
			return v, nil
		}
	}

	params, err := a.Parameters()
	if err != nil {
		return nil, err
	}
	v, ok := params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrParameterNotFound, name)
	}
	return v, nil
}

// ParameterSet returns several parameters in request order. It fails if any
// of them is missing.
func (a *Archive) ParameterSet(names ...string) (*ParamSet, error) {
	vals := make(map[string]any, len(names))
	for _, name := range names {
		v, err := a.Parameter(name)
		if err != nil {
			return nil, err
		}
		vals[name] = v
	}
	o, _ := newOrdered(vals, names)
	return &ParamSet{o}, nil
}

func (a *Archive) legacyBunchCurrent() (any, error) {
	v, ok, err := a.sidecarFloat(ParamBunchCurrent)
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	// The stored samples, not the corrected component: the first sample
	// is exactly the one legacy corrections drop.
	p := "/" + a.groups[BunchPopulation] + "/data"
	node, err := a.store.Node(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParameterNotFound, ParamBunchCurrent, err)
	}
	vals, err := node.Values()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: %s: no samples", ErrParameterNotFound, ParamBunchCurrent)
	}
	return vals[0], nil
}

func (a *Archive) sidecarFloat(key string) (float64, bool, error) {
	a.sidecarOnce.Do(func() {
		if a.path == "" {
			return
		}
		s, err := ReadSidecar(a.path)
		if err != nil {
			a.log.Warn().Err(err).Msg("ignoring unreadable sidecar")
			return
		}
		a.sidecar = s
	})
	return a.sidecar.Float(key)
}
