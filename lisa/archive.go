// Package lisa reads Inovesa result archives through a version-aware layer:
// quantities and roles are resolved against the schema of the release that
// wrote the archive, known data bugs of older releases are corrected on load,
// and a Converter scales components into physical units using the factor
// attributes stored next to the data.
//
//	a, err := lisa.Open("run.h5")
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//	profile, err := a.One(lisa.BunchProfile, lisa.Data)
package lisa

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/robert-malhotra/go-inovesa/hdf5"
	"github.com/robert-malhotra/go-inovesa/internal/metrics"
)

// Archive is one Inovesa result file. It is safe for concurrent use; every
// component is read from storage at most once.
type Archive struct {
	path    string
	store   Store
	cfg     Config
	log     zerolog.Logger
	metrics *metrics.Metrics

	version Version
	axes    *AxisSelector
	groups  map[Quantity]string

	mu    sync.Mutex
	cache map[string]map[Role]*Component
	loads singleflight.Group

	sidecarOnce sync.Once
	sidecar     *Sidecar
}

// Open opens the HDF5 archive at path.
func Open(path string, opts ...Option) (*Archive, error) {
	store, err := OpenStore(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrCorruptArchive, path, err)
	}
	a, err := New(store, path, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// New wraps an open store. path locates the .cfg sidecar and may be empty
// when there is none.
func New(store Store, path string, opts ...Option) (*Archive, error) {
	cfg := newConfig(opts)
	m, err := metrics.New(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	version, err := detectVersion(store)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s := schemaFor(version)

	a := &Archive{
		path:    path,
		store:   store,
		cfg:     cfg,
		log:     cfg.Logger.With().Str("archive", path).Logger(),
		metrics: m,
		version: version,
		axes:    &AxisSelector{roles: s.roles},
		groups:  s.groups,
		cache:   make(map[string]map[Role]*Component),
	}
	a.log.Debug().Stringer("version", version).Msg("archive opened")
	return a, nil
}

// versionNames are the attribute names of the version tag, newest first.
var versionNames = []string{"Inovesa_v", "INOVESA_v"}

// detectVersion reads the version tag, stored either as a dataset under
// /Info or as an attribute of /Info.
func detectVersion(s Store) (Version, error) {
	var infoAttrs Attrs
	info, err := s.Node("/Info")
	switch {
	case err == nil:
		if infoAttrs, err = info.Attrs(); err != nil {
			return Version{}, fmt.Errorf("reading /Info attributes: %w", err)
		}
	case !errors.Is(err, ErrNodeNotFound):
		return Version{}, fmt.Errorf("reading /Info: %w", err)
	}

	for _, name := range versionNames {
		n, err := s.Node("/Info/" + name)
		if err != nil && !errors.Is(err, ErrNodeNotFound) {
			return Version{}, fmt.Errorf("reading /Info/%s: %w", name, err)
		}
		if err == nil && !n.Group() {
			vals, err := n.Values()
			if err != nil {
				return Version{}, fmt.Errorf("%w: reading %s: %w", ErrCorruptArchive, name, err)
			}
			return versionFromValues(vals)
		}
		v, ok := infoAttrs[name]
		if !ok {
			continue
		}
		if str, ok := v.(string); ok {
			ver, err := ParseVersion(str)
			if err != nil {
				return Version{}, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
			}
			return ver, nil
		}
		vals, err := toFloats(v)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %s: %w", ErrCorruptArchive, name, err)
		}
		return versionFromValues(vals)
	}
	return Version{}, fmt.Errorf("%w: no version tag under /Info", ErrCorruptArchive)
}

// Path returns the path the archive was opened with.
func (a *Archive) Path() string { return a.path }

// Version returns the release that wrote the archive.
func (a *Archive) Version() Version { return a.version }

// Axes returns the archive's role table.
func (a *Archive) Axes() *AxisSelector { return a.axes }

// Store returns the underlying store.
func (a *Archive) Store() Store { return a.store }

// Close closes the underlying store.
func (a *Archive) Close() error { return a.store.Close() }

// Quantities returns the quantities this archive's epoch provides, sorted.
func (a *Archive) Quantities() []Quantity {
	var qs []Quantity
	for q := range a.groups {
		if _, ok := a.axes.roles[q]; ok {
			qs = append(qs, q)
		}
	}
	slices.Sort(qs)
	return qs
}

// Roles returns the roles of q in declared order.
func (a *Archive) Roles(q Quantity) ([]Role, error) {
	q, _, err := a.resolve(q)
	if err != nil {
		return nil, err
	}
	return a.axes.Roles(q)
}

// resolve maps a quantity, or for compatibility the literal name of its
// storage group, to the quantity and its group.
func (a *Archive) resolve(q Quantity) (Quantity, string, error) {
	if g, ok := a.groups[q]; ok {
		return q, g, nil
	}
	for lq, g := range a.groups {
		if g == string(q) {
			return lq, g, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s in %s archive", ErrUnknownQuantity, q, a.version)
}

// Get returns the requested roles of q, or all of them when none are given.
// A single role yields a *Component, anything else a *View.
func (a *Archive) Get(q Quantity, roles ...Role) (Result, error) {
	q, group, err := a.resolve(q)
	if err != nil {
		return nil, err
	}
	all, err := a.axes.Roles(q)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = all
	}

	got := make(map[Role]*Component, len(roles))
	for _, r := range roles {
		if !slices.Contains(all, r) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrRoleNotApplicable, q, r)
		}
		c, err := a.component(q, group, r)
		if err != nil {
			return nil, err
		}
		got[r] = c
	}
	return buildResult(got, roles)
}

// One returns a single role of q.
func (a *Archive) One(q Quantity, r Role) (*Component, error) {
	res, err := a.Get(q, r)
	if err != nil {
		return nil, err
	}
	return res.(*Component), nil
}

// Many returns the requested roles of q, or all of them, as a View.
func (a *Archive) Many(q Quantity, roles ...Role) (*View, error) {
	q, group, err := a.resolve(q)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		if roles, err = a.axes.Roles(q); err != nil {
			return nil, err
		}
	}
	got := make(map[Role]*Component, len(roles))
	for _, r := range roles {
		if !a.axes.Has(q, r) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrRoleNotApplicable, q, r)
		}
		c, err := a.component(q, group, r)
		if err != nil {
			return nil, err
		}
		got[r] = c
	}
	return newView(got, roles)
}

func (a *Archive) cached(group string, r Role) *Component {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cache[group][r]
}

// component returns the cached component of (group, r), building it once.
func (a *Archive) component(q Quantity, group string, r Role) (*Component, error) {
	if c := a.cached(group, r); c != nil {
		a.metrics.RecordCacheHit()
		return c, nil
	}

	v, err, _ := a.loads.Do(group+"\x00"+r.String(), func() (any, error) {
		if c := a.cached(group, r); c != nil {
			return c, nil
		}
		c, err := a.build(q, group, r)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.cache[group] == nil {
			a.cache[group] = make(map[Role]*Component)
		}
		a.cache[group][r] = c
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Component), nil
}

// build resolves where (q, r) is stored and returns a component that reads
// and corrects the values on first use.
func (a *Archive) build(q Quantity, group string, r Role) (*Component, error) {
	rel, err := a.axes.Resolve(r, q)
	if err != nil {
		return nil, err
	}
	p := rel
	if !strings.HasPrefix(rel, "/") {
		p = hdf5.JoinPath(group, rel)
	}

	node, err := a.store.Node(p)
	if errors.Is(err, ErrNodeNotFound) {
		return nil, fmt.Errorf("%w: %s %s at %s", ErrComponentUnavailable, q, r, p)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", q, r, err)
	}
	attrs, err := node.Attrs()
	if err != nil {
		return nil, fmt.Errorf("%s %s: attributes of %s: %w", q, r, p, err)
	}

	if r == DataGroup {
		return groupComponent(p, attrs), nil
	}
	if node.Group() {
		return nil, fmt.Errorf("%w: %s %s at %s is a group", ErrComponentUnavailable, q, r, p)
	}

	fix, err := a.correction(q, r)
	if err != nil {
		return nil, err
	}
	stored := node.Shape()
	shape, err := fix.shape(stored)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", q, r, err)
	}

	log := a.log.With().Str("quantity", string(q)).Stringer("role", r).Logger()
	load := func() ([]float64, error) {
		start := time.Now()
		var (
			vals []float64
			err  error
		)
		if !fix.derived {
			if vals, err = node.Values(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", p, err)
			}
		}
		if vals, err = fix.values(vals, stored); err != nil {
			return nil, fmt.Errorf("correcting %s: %w", p, err)
		}
		a.metrics.RecordLoad(string(q), r.String(), time.Since(start))
		log.Debug().Str("path", p).Str("correction", fix.name).Int("n", len(vals)).Msg("component loaded")
		return vals, nil
	}
	return lazyComponent(p, shape, attrs, load), nil
}

// Preload reads the values of the given roles of q, or of all its roles,
// into memory. Failures are logged and counted but not returned; a later
// access reports them again.
func (a *Archive) Preload(q Quantity, roles ...Role) {
	var comps []*Component
	if len(roles) == 1 {
		c, err := a.One(q, roles[0])
		if err != nil {
			a.preloadFailed(q, err)
			return
		}
		comps = append(comps, c)
	} else {
		v, err := a.Many(q, roles...)
		if err != nil {
			a.preloadFailed(q, err)
			return
		}
		for _, c := range v.All() {
			comps = append(comps, c)
		}
	}
	for _, c := range comps {
		if c.Group() {
			continue
		}
		if _, err := c.Values(); err != nil {
			a.preloadFailed(q, err)
			return
		}
	}
}

func (a *Archive) preloadFailed(q Quantity, err error) {
	a.metrics.RecordPreloadFailure()
	a.log.Warn().Err(err).Str("quantity", string(q)).Msg("preload failed")
}
