package lisa

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/robert-malhotra/go-inovesa/internal/metrics"
)

// Converter returns archive components scaled into physical units, using
// the factor attributes Inovesa stores with each component.
type Converter struct {
	archive *Archive
	log     zerolog.Logger
	metrics *metrics.Metrics

	memo    bool
	mu      sync.Mutex
	factors map[factorKey]factorEntry
}

type factorKey struct {
	q    Quantity
	r    Role
	unit string
}

type factorEntry struct {
	factor float64
	scaled bool
}

// NewConverter wraps an open archive. Options override the archive's.
func NewConverter(a *Archive, opts ...Option) (*Converter, error) {
	cfg := a.cfg
	for _, opt := range opts {
		opt(&cfg)
	}
	m, err := metrics.New(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	return &Converter{
		archive: a,
		log:     cfg.Logger.With().Str("archive", a.path).Logger(),
		metrics: m,
		memo:    cfg.MemoizeFactors,
		factors: make(map[factorKey]factorEntry),
	}, nil
}

// OpenConverter opens the archive at path and wraps it.
func OpenConverter(path string, opts ...Option) (*Converter, error) {
	a, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	c, err := NewConverter(a)
	if err != nil {
		a.Close()
		return nil, err
	}
	return c, nil
}

// Archive returns the wrapped archive.
func (c *Converter) Archive() *Archive { return c.archive }

// Close closes the wrapped archive.
func (c *Converter) Close() error { return c.archive.Close() }

type getOptions struct {
	index    int
	hasIndex bool
}

// GetOption configures Converter.Get.
type GetOption func(*getOptions)

// WithSubIndex selects element i along the first axis before scaling.
func WithSubIndex(i int) GetOption {
	return func(o *getOptions) { o.index, o.hasIndex = i, true }
}

// Get returns role r of q converted to unit. The result is a new component
// whose values the caller owns; Raw returns an unscaled copy. A DataGroup
// role is returned as is.
func (c *Converter) Get(q Quantity, r Role, unit Unit, opts ...GetOption) (*Component, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}

	factor, scaled, err := c.Factor(q, r, unit)
	if err != nil {
		return nil, err
	}
	comp, err := c.archive.One(q, r)
	if err != nil {
		return nil, err
	}
	if comp.Group() {
		// Attributes only; there is nothing to scale.
		return comp, nil
	}
	if o.hasIndex {
		if comp, err = comp.Row(o.index); err != nil {
			return nil, err
		}
	}

	vals, err := comp.Values()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	if scaled {
		floats.ScaleTo(out, factor, vals)
	} else {
		copy(out, vals)
	}
	c.metrics.RecordConversion(unit.String())
	return NewComponent(comp.Name(), comp.Shape(), comp.Attrs(), out), nil
}

// Factor returns the multiplier converting role r of q into unit. scaled is
// false when no scaling applies, for Raw and for aliases of the storage unit.
func (c *Converter) Factor(q Quantity, r Role, unit Unit) (factor float64, scaled bool, err error) {
	if unit.IsRaw() {
		return 1, false, nil
	}
	if unit.name == "" {
		return 0, false, ErrNoUnitSpecified
	}
	q, _, err = c.archive.resolve(q)
	if err != nil {
		return 0, false, err
	}

	key := factorKey{q, r, unit.name}
	if c.memo {
		c.mu.Lock()
		e, ok := c.factors[key]
		c.mu.Unlock()
		if ok {
			return e.factor, e.scaled, nil
		}
	}

	if comp, ok := compositeTable[unit.name]; ok {
		factor, err = c.compositeFactor(q, unit.name, comp)
		scaled = err == nil
	} else {
		factor, scaled, err = c.simpleFactor(q, r, unit.name)
	}
	if err != nil {
		return 0, false, err
	}
	c.log.Debug().
		Str("quantity", string(q)).
		Stringer("role", r).
		Str("unit", unit.name).
		Float64("factor", factor).
		Msg("conversion factor")

	if c.memo {
		c.mu.Lock()
		c.factors[key] = factorEntry{factor, scaled}
		c.mu.Unlock()
	}
	return factor, scaled, nil
}

func (c *Converter) simpleFactor(q Quantity, r Role, alias string) (float64, bool, error) {
	name, isRaw := factorAttr(alias, c.archive.version)
	if isRaw {
		return 1, false, nil
	}
	comp, err := c.archive.One(q, r)
	if err != nil {
		return 0, false, err
	}
	attrs := comp.Attrs()
	if q == Impedance && !attrs.Has(name) {
		// Impedance keeps its factors on the data group.
		group, err := c.archive.One(q, DataGroup)
		if err != nil {
			return 0, false, err
		}
		attrs = group.Attrs()
	}

	found, ok := matchAttr(attrs, name)
	if !ok {
		c.log.Debug().Strs("attributes", attrs.Names()).Str("unit", alias).Msg("no factor attribute")
		return 0, false, fmt.Errorf("%w: %s is not a valid unit for %s %s", ErrInvalidUnit, alias, q, r)
	}
	f, ok := attrs.Float(found)
	if !ok {
		return 0, false, fmt.Errorf("%w: attribute %s of %s %s is not a number", ErrConversionFailure, found, q, r)
	}
	return f, true, nil
}

func (c *Converter) compositeFactor(q Quantity, alias string, u compositeUnit) (float64, error) {
	axes := c.archive.axes
	if _, err := axes.Roles(q); err != nil {
		return 0, err
	}
	if u.checked && axes.Has(q, u.forbidden) {
		return 0, fmt.Errorf("%w: %s does not apply to %s, which has a %s", ErrIllegalConversion, alias, q, u.forbidden)
	}

	// Divisors first: a quantity lacking an axis is an illegal conversion
	// whatever its data attributes say.
	divisor := 1.0
	for _, r := range u.divisors {
		d, err := c.attrFactor(q, r, divisorAlias[r])
		if err != nil {
			return 0, err
		}
		divisor *= d
	}
	factor, err := c.attrFactor(q, Data, alias[:1]+u.numerator)
	if err != nil {
		return 0, err
	}
	return factor / divisor, nil
}

// attrFactor reads the factor attribute of a unit alias from role r of q,
// without the fallback names simple units get.
func (c *Converter) attrFactor(q Quantity, r Role, alias string) (float64, error) {
	name, _ := factorAttr(alias, c.archive.version)
	comp, err := c.archive.One(q, r)
	if errors.Is(err, ErrRoleNotApplicable) || errors.Is(err, ErrComponentUnavailable) {
		return 0, fmt.Errorf("%w: %s has no usable %s: %w", ErrIllegalConversion, q, r, err)
	}
	if err != nil {
		return 0, err
	}
	v, ok := comp.Attrs()[name]
	if !ok {
		return 0, fmt.Errorf("%w: cannot find attribute %s on %s %s", ErrConversionFailure, name, q, r)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: attribute %s on %s %s is not a number", ErrConversionFailure, name, q, r)
	}
	return f, nil
}
