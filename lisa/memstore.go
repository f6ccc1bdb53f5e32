package lisa

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"sync"

	"github.com/robert-malhotra/go-inovesa/hdf5"
)

// MemStore is an in-memory Store. It is useful for building synthetic
// archives in tests and for data that never lived in a file.
type MemStore struct {
	mu     sync.Mutex
	nodes  map[string]*memNode
	reads  map[string]int
	closed bool
}

// NewMemStore returns a store holding only the root group.
func NewMemStore() *MemStore {
	m := &MemStore{nodes: make(map[string]*memNode), reads: make(map[string]int)}
	m.nodes["/"] = &memNode{store: m, path: "/", group: true, attrs: Attrs{}}
	return m
}

// AddGroup adds a group, creating missing parents, and merges attrs into
// its attributes.
func (m *MemStore) AddGroup(path string, attrs Attrs) *MemStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.ensureGroup(hdf5.CleanPath(path))
	maps.Copy(n.attrs, attrs)
	return m
}

// AddDataset adds a dataset, creating missing parent groups. The number of
// values must match shape.
func (m *MemStore) AddDataset(path string, shape []int, values []float64, attrs Attrs) *MemStore {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(values) {
		panic(fmt.Sprintf("memstore: %s has shape %v but %d values", path, shape, len(values)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	path = hdf5.CleanPath(path)
	m.ensureGroup(parentPath(path))
	if attrs == nil {
		attrs = Attrs{}
	}
	m.nodes[path] = &memNode{
		store:  m,
		path:   path,
		shape:  slices.Clone(shape),
		values: slices.Clone(values),
		attrs:  maps.Clone(attrs),
	}
	return m
}

// SetAttr sets one attribute on an existing node.
func (m *MemStore) SetAttr(path, name string, value any) *MemStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[hdf5.CleanPath(path)]
	if !ok {
		panic(fmt.Sprintf("memstore: no node %s", path))
	}
	n.attrs[name] = value
	return m
}

// Reads returns how many times the values at path were read.
func (m *MemStore) Reads(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[hdf5.CleanPath(path)]
}

func (m *MemStore) ensureGroup(p string) *memNode {
	if n, ok := m.nodes[p]; ok {
		return n
	}
	m.ensureGroup(parentPath(p))
	n := &memNode{store: m, path: p, group: true, attrs: Attrs{}}
	m.nodes[p] = n
	return n
}

func parentPath(p string) string {
	return path.Dir(hdf5.CleanPath(p))
}

// Node implements Store.
func (m *MemStore) Node(path string) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, hdf5.ErrClosed
	}
	n, ok := m.nodes[hdf5.CleanPath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	return n, nil
}

// Close implements Store.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memNode struct {
	store  *MemStore
	path   string
	group  bool
	shape  []int
	values []float64
	attrs  Attrs
}

func (n *memNode) Path() string { return n.path }
func (n *memNode) Group() bool  { return n.group }
func (n *memNode) Shape() []int { return slices.Clone(n.shape) }

func (n *memNode) Attrs() (Attrs, error) {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	return maps.Clone(n.attrs), nil
}

func (n *memNode) Values() ([]float64, error) {
	if n.group {
		return nil, fmt.Errorf("%s: %w", n.path, hdf5.ErrNotDataset)
	}
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	n.store.reads[n.path]++
	return slices.Clone(n.values), nil
}
