package lisa

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Component is one loaded role of a quantity: a stored array with its
// attributes. Values are read on first use and then shared; callers must
// not modify the returned slice.
type Component struct {
	name  string
	shape []int
	attrs Attrs
	group bool

	load   func() ([]float64, error)
	once   sync.Once
	values []float64
	err    error
	loaded atomic.Bool
}

// NewComponent returns a component holding values already in memory.
func NewComponent(name string, shape []int, attrs Attrs, values []float64) *Component {
	c := &Component{name: name, shape: slices.Clone(shape), attrs: attrs, values: values}
	c.once.Do(func() {})
	c.loaded.Store(true)
	return c
}

func lazyComponent(name string, shape []int, attrs Attrs, load func() ([]float64, error)) *Component {
	return &Component{name: name, shape: shape, attrs: attrs, load: load}
}

func groupComponent(name string, attrs Attrs) *Component {
	c := NewComponent(name, nil, attrs, nil)
	c.group = true
	return c
}

func (*Component) result() {}

// Name returns the storage path the component was read from.
func (c *Component) Name() string { return c.name }

// Shape returns the array dimensions.
func (c *Component) Shape() []int { return slices.Clone(c.shape) }

// Len returns the number of elements.
func (c *Component) Len() int {
	if c.group {
		return 0
	}
	n := 1
	for _, d := range c.shape {
		n *= d
	}
	return n
}

// Attrs returns the component's attributes.
func (c *Component) Attrs() Attrs { return c.attrs }

// Group reports whether the component is a storage group, which carries
// attributes but no values.
func (c *Component) Group() bool { return c.group }

// Loaded reports whether the values are in memory.
func (c *Component) Loaded() bool { return c.loaded.Load() }

// Values returns the elements in row-major order, reading them on the
// first call.
func (c *Component) Values() ([]float64, error) {
	c.once.Do(func() {
		c.values, c.err = c.load()
		if c.err == nil {
			c.loaded.Store(true)
		}
	})
	return c.values, c.err
}

// Row returns element i along the first axis as a new component.
func (c *Component) Row(i int) (*Component, error) {
	if len(c.shape) == 0 {
		return nil, fmt.Errorf("%s: cannot index a scalar", c.name)
	}
	if i < 0 || i >= c.shape[0] {
		return nil, fmt.Errorf("%s: index %d out of range [0, %d)", c.name, i, c.shape[0])
	}
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	shape := c.shape[1:]
	stride := 1
	for _, d := range shape {
		stride *= d
	}
	return NewComponent(c.name, shape, c.attrs, vals[i*stride:(i+1)*stride]), nil
}
