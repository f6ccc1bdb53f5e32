package lisa

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Catalog is a directory of archives from one parameter scan.
type Catalog struct {
	dir     string
	pattern string
	cfg     Config
	paths   []string

	mu       sync.Mutex
	archives []*Archive
}

// OpenCatalog lists the archives in dir matching pattern ("*.h5" when
// empty). By default they are ordered by the BunchCurrent in their
// sidecars, highest first; WithSorter replaces that order.
func OpenCatalog(dir, pattern string, opts ...Option) (*Catalog, error) {
	if pattern == "" {
		pattern = "*.h5"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	c := &Catalog{dir: dir, pattern: pattern, cfg: newConfig(opts)}
	if c.cfg.Sorter != nil {
		c.paths = c.cfg.Sorter(slices.Clone(matches))
	} else {
		c.paths = sortByCurrent(matches, c.cfg)
	}
	return c, nil
}

// sortByCurrent orders paths by sidecar BunchCurrent, descending. Paths
// without a readable value come last, by name.
func sortByCurrent(paths []string, cfg Config) []string {
	type entry struct {
		path    string
		current float64
		ok      bool
	}
	entries := make([]entry, len(paths))
	for i, p := range paths {
		entries[i].path = p
		s, err := ReadSidecar(p)
		if err != nil {
			cfg.Logger.Warn().Err(err).Str("archive", p).Msg("ignoring unreadable sidecar")
			continue
		}
		v, ok, err := s.Float(ParamBunchCurrent)
		if err != nil {
			cfg.Logger.Warn().Err(err).Str("archive", p).Msg("ignoring sidecar bunch current")
		}
		entries[i].current, entries[i].ok = v, ok && err == nil
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.ok && b.ok:
			if c := cmp.Compare(b.current, a.current); c != 0 {
				return c
			}
		case a.ok:
			return -1
		case b.ok:
			return 1
		}
		return cmp.Compare(a.path, b.path)
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.path
	}
	return out
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string { return c.dir }

// Paths returns the archive paths in catalog order.
func (c *Catalog) Paths() []string { return slices.Clone(c.paths) }

// Len returns the number of archives.
func (c *Catalog) Len() int { return len(c.paths) }

// Archives opens every archive, concurrently, on the first call and returns
// them in catalog order. Later calls return the same archives. If any
// archive fails to open, the ones that did open are closed again.
func (c *Catalog) Archives(ctx context.Context) ([]*Archive, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.archives != nil {
		return slices.Clone(c.archives), nil
	}

	archives := make([]*Archive, len(c.paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, p := range c.paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := Open(p, c.options()...)
			if err != nil {
				return err
			}
			archives[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, a := range archives {
			if a != nil {
				a.Close()
			}
		}
		return nil, err
	}
	c.archives = archives
	return slices.Clone(archives), nil
}

func (c *Catalog) options() []Option {
	cfg := c.cfg
	return []Option{func(dst *Config) { *dst = cfg }}
}

// Close closes every archive opened through the catalog.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, a := range c.archives {
		errs = append(errs, a.Close())
	}
	c.archives = nil
	return errors.Join(errs...)
}
