package lisa

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-inovesa/hdf5"
	"github.com/rs/zerolog"
)

// Node is one stored object: a group, which only carries attributes, or a
// dataset of numbers.
type Node interface {
	Path() string
	Group() bool
	Shape() []int
	Attrs() (Attrs, error)
	Values() ([]float64, error)
}

// Store is a read-only hierarchy of nodes addressed by absolute path.
// Node returns an error wrapping ErrNodeNotFound for missing paths.
type Store interface {
	Node(path string) (Node, error)
	Close() error
}

// OpenStore opens an HDF5 file as a Store. Only the logger of opts is used.
func OpenStore(path string, opts ...Option) (Store, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	cfg := newConfig(opts)
	return &hdf5Store{f: f, log: cfg.Logger.With().Str("file", path).Logger()}, nil
}

type hdf5Store struct {
	f   *hdf5.File
	log zerolog.Logger
}

func (s *hdf5Store) Node(path string) (Node, error) {
	obj, err := s.f.Get(path)
	if errors.Is(err, hdf5.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return hdf5Node{obj: obj, log: s.log}, nil
}

func (s *hdf5Store) Close() error { return s.f.Close() }

type hdf5Node struct {
	obj hdf5.Object
	log zerolog.Logger
}

func (n hdf5Node) Path() string { return n.obj.Path() }

func (n hdf5Node) Group() bool {
	_, ok := n.obj.(*hdf5.Group)
	return ok
}

func (n hdf5Node) Shape() []int {
	if ds, ok := n.obj.(*hdf5.Dataset); ok {
		return ds.Shape()
	}
	return nil
}

// Attrs decodes every attribute. Attributes of a type that cannot be decoded
// are left out and logged at debug level.
func (n hdf5Node) Attrs() (Attrs, error) {
	list, err := n.obj.Attrs()
	if err != nil {
		return nil, err
	}
	attrs := make(Attrs, len(list))
	for _, a := range list {
		v, err := a.Value()
		if err != nil {
			n.log.Debug().Err(err).Str("node", n.obj.Path()).Str("attribute", a.Name()).Msg("skipping attribute")
			continue
		}
		attrs[a.Name()] = v
	}
	return attrs, nil
}

func (n hdf5Node) Values() ([]float64, error) {
	ds, ok := n.obj.(*hdf5.Dataset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", n.obj.Path(), hdf5.ErrNotDataset)
	}
	return ds.ReadFloat64()
}
