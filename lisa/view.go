package lisa

import (
	"fmt"
	"iter"
	"slices"
)

// Result is what Archive.Get returns: a *Component when exactly one role
// was requested, a *View otherwise.
type Result interface {
	result()
}

// ordered is an immutable, insertion-ordered snapshot of some map entries.
type ordered[K comparable, V any] struct {
	keys []K
	vals map[K]V
}

// newOrdered copies the entries of keys out of src, reporting the keys src
// does not hold.
func newOrdered[K comparable, V any](src map[K]V, keys []K) (ordered[K, V], []K) {
	o := ordered[K, V]{keys: slices.Clone(keys), vals: make(map[K]V, len(keys))}
	var missing []K
	for _, k := range keys {
		v, ok := src[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		o.vals[k] = v
	}
	return o, missing
}

// Len returns the number of entries.
func (o ordered[K, V]) Len() int { return len(o.keys) }

// Has reports whether k is part of the view.
func (o ordered[K, V]) Has(k K) bool { return slices.Contains(o.keys, k) }

// All iterates over the entries in request order.
func (o ordered[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range o.keys {
			if !yield(k, o.vals[k]) {
				return
			}
		}
	}
}

func (o ordered[K, V]) at(i int) V {
	return o.vals[o.keys[i]]
}

func (o ordered[K, V]) lookup(k K) (V, bool) {
	if !o.Has(k) {
		var zero V
		return zero, false
	}
	return o.vals[k], true
}

// View is an ordered set of components of one quantity.
type View struct {
	ordered[Role, *Component]
}

func (*View) result() {}

func newView(cache map[Role]*Component, roles []Role) (*View, error) {
	o, missing := newOrdered(cache, roles)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrComponentUnavailable, missing)
	}
	return &View{o}, nil
}

// buildResult collapses a single requested role to its component.
func buildResult(cache map[Role]*Component, roles []Role) (Result, error) {
	if len(roles) == 1 {
		c, ok := cache[roles[0]]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrComponentUnavailable, roles[0])
		}
		return c, nil
	}
	return newView(cache, roles)
}

// At returns the i-th requested component. It panics if i is out of range.
func (v *View) At(i int) *Component { return v.at(i) }

// Lookup returns the component of role r.
func (v *View) Lookup(r Role) (*Component, error) {
	c, ok := v.lookup(r)
	if !ok {
		return nil, fmt.Errorf("%w: %s not in view", ErrComponentUnavailable, r)
	}
	return c, nil
}

// Roles returns the roles in request order.
func (v *View) Roles() []Role { return slices.Clone(v.keys) }

// ParamSet is an ordered set of named parameter values.
type ParamSet struct {
	ordered[string, any]
}

// At returns the i-th requested parameter value.
func (p *ParamSet) At(i int) any { return p.at(i) }

// Lookup returns the value of parameter name.
func (p *ParamSet) Lookup(name string) (any, error) {
	v, ok := p.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s not in set", ErrParameterNotFound, name)
	}
	return v, nil
}

// Names returns the parameter names in request order.
func (p *ParamSet) Names() []string { return slices.Clone(p.keys) }
