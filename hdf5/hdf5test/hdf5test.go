// Package hdf5test writes small HDF5 files for tests.
//
// Files use a version 2 superblock and version 2 object headers. Groups keep
// their links and attributes compact in the header. Datasets are stored
// contiguously by default, or compact, or as one chunk passed through a
// filter pipeline.
//
//	f := hdf5test.New().
//		Group("/Info", map[string]any{"Inovesa_v": []int64{1, 0, 0}}).
//		Dataset("/Info/AxisValues_z", []int{3}, []float64{-1, 0, 1}, nil)
//	err := f.WriteFile(filepath.Join(t.TempDir(), "result.h5"))
package hdf5test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"os"
	"slices"
	"strings"

	binpkg "github.com/robert-malhotra/go-inovesa/internal/binary"
)

// undefined is the all-ones address of a file with 8-byte offsets.
const undefined = ^uint64(0)

// Opaque is an attribute or dataset value stored with the opaque datatype,
// which readers hand back undecoded at best.
type Opaque []byte

// File is an HDF5 file under construction. Methods panic on values they
// cannot store, like a malformed test fixture should.
type File struct {
	root *node
}

type node struct {
	name     string
	group    bool
	children []*node
	target   string // soft links only
	attrs    map[string]any

	shape   []uint64
	scalar  bool
	dtype   dtype
	data    []byte
	layout  layoutKind
	filters []Filter
}

// New returns a file holding only the root group.
func New() *File {
	return &File{root: &node{name: "/", group: true, attrs: map[string]any{}}}
}

// Group adds a group, creating missing parents, and merges attrs into its
// attributes.
func (f *File) Group(path string, attrs map[string]any) *File {
	n := f.ensureGroup(path)
	for k, v := range attrs {
		n.attrs[k] = v
	}
	return f
}

// Dataset adds a dataset of the given shape, creating missing parent
// groups. values is a []float64, []float32, []int64, []int32 or []string
// whose length matches shape; an empty shape stores a scalar.
func (f *File) Dataset(path string, shape []int, values any, attrs map[string]any, opts ...DatasetOption) *File {
	parent, name := f.parentOf(path)
	dt, data, count := encode(values)
	want := 1
	for _, d := range shape {
		want *= d
	}
	if count != want {
		panic(fmt.Sprintf("hdf5test: %s has shape %v but %d values", path, shape, count))
	}

	n := &node{name: name, attrs: map[string]any{}, dtype: dt, data: data, scalar: len(shape) == 0}
	for _, d := range shape {
		n.shape = append(n.shape, uint64(d))
	}
	for k, v := range attrs {
		n.attrs[k] = v
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.layout == chunked && n.scalar {
		panic(fmt.Sprintf("hdf5test: scalar dataset %s cannot be chunked", path))
	}
	parent.add(n)
	return f
}

// SoftLink adds a soft link at path pointing to target.
func (f *File) SoftLink(path, target string) *File {
	parent, name := f.parentOf(path)
	parent.add(&node{name: name, target: target})
	return f
}

func (f *File) parentOf(path string) (*node, string) {
	parts := split(path)
	if len(parts) == 0 {
		panic("hdf5test: the root group cannot be replaced")
	}
	dir := "/" + strings.Join(parts[:len(parts)-1], "/")
	return f.ensureGroup(dir), parts[len(parts)-1]
}

func (f *File) ensureGroup(path string) *node {
	cur := f.root
	for _, name := range split(path) {
		next := cur.child(name)
		if next == nil {
			next = &node{name: name, group: true, attrs: map[string]any{}}
			cur.add(next)
		}
		if !next.group {
			panic(fmt.Sprintf("hdf5test: %s is not a group", name))
		}
		cur = next
	}
	return cur
}

func split(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) add(c *node) {
	if n.child(c.name) != nil {
		panic(fmt.Sprintf("hdf5test: %s already exists", c.name))
	}
	n.children = append(n.children, c)
}

// WriteFile writes the file to path.
func (f *File) WriteFile(path string) error {
	b, err := f.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Bytes encodes the file. Objects are laid out children first so that every
// link points backwards; the superblock is filled in last.
func (f *File) Bytes() ([]byte, error) {
	w := &writer{buf: make([]byte, superblockSize)}
	root, err := w.object(f.root)
	if err != nil {
		return nil, err
	}

	sb := []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}
	sb = append(sb, 2, 8, 8, 0) // version, offset size, length size, flags
	sb = le64(sb, 0)            // base address
	sb = le64(sb, undefined)    // superblock extension
	sb = le64(sb, uint64(len(w.buf)))
	sb = le64(sb, root)
	sb = le32(sb, binpkg.Lookup3(sb))
	copy(w.buf, sb)
	return w.buf, nil
}

// superblockSize is the size of a version 2 superblock with 8-byte offsets.
const superblockSize = 12 + 4*8 + 4

type writer struct {
	buf []byte
}

func (w *writer) pos() uint64 { return uint64(len(w.buf)) }

// object writes n and everything below it, returning the address of n's
// object header.
func (w *writer) object(n *node) (uint64, error) {
	if n.group {
		return w.group(n)
	}
	return w.dataset(n)
}

func (w *writer) group(n *node) (uint64, error) {
	msgs := []message{
		{msgLinkInfo, le64(le64([]byte{0, 0}, undefined), undefined)},
		{msgGroupInfo, []byte{0, 0}},
	}
	for _, c := range n.children {
		if c.target != "" {
			msgs = append(msgs, message{msgLink, softLink(c.name, c.target)})
			continue
		}
		addr, err := w.object(c)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, message{msgLink, hardLink(c.name, addr)})
	}
	return w.header(append(msgs, attributes(n.attrs)...)), nil
}

func (w *writer) dataset(n *node) (uint64, error) {
	msgs := []message{
		{msgDataspace, dataspace(n.shape, n.scalar)},
		{msgDatatype, n.dtype.encode()},
		{msgFillValue, []byte{3, 0x0A}}, // late allocation, fill if set, no value
	}

	switch n.layout {
	case compact:
		l := []byte{3, 0}
		l = le16(l, uint16(len(n.data)))
		msgs = append(msgs, message{msgLayout, append(l, n.data...)})

	case contiguous:
		addr := w.pos()
		w.buf = append(w.buf, n.data...)
		l := le64([]byte{3, 1}, addr)
		msgs = append(msgs, message{msgLayout, le64(l, uint64(len(n.data)))})

	case chunked:
		chunk, err := applyFilters(n.data, n.filters, n.dtype.size)
		if err != nil {
			return 0, fmt.Errorf("dataset %s: %w", n.name, err)
		}
		addr := w.pos()
		w.buf = append(w.buf, chunk...)

		var flags byte
		if len(n.filters) > 0 {
			flags = 0x02 // single chunk with filters
		}
		l := []byte{4, 2, flags, byte(len(n.shape) + 1), 8}
		for _, d := range n.shape {
			l = le64(l, d)
		}
		l = le64(l, uint64(n.dtype.size))
		l = append(l, 1) // single chunk index
		if len(n.filters) > 0 {
			l = le64(l, uint64(len(chunk)))
			l = le32(l, 0)
		}
		msgs = append(msgs, message{msgLayout, le64(l, addr)})
		msgs = append(msgs, message{msgFilters, pipeline(n.filters, n.dtype.size)})
	}

	return w.header(append(msgs, attributes(n.attrs)...)), nil
}

// Header message types.
const (
	msgDataspace = 0x01
	msgLinkInfo  = 0x02
	msgDatatype  = 0x03
	msgFillValue = 0x05
	msgLink      = 0x06
	msgLayout    = 0x08
	msgGroupInfo = 0x0A
	msgFilters   = 0x0B
	msgAttribute = 0x0C
)

type message struct {
	typ  byte
	data []byte
}

/*
header appends a version 2 object header:

	"OHDR" version(1) flags(1) chunk0 size(4)
	messages: type(1) size(2) flags(1) data(size)
	checksum(4)
*/
func (w *writer) header(msgs []message) uint64 {
	size := 0
	for _, m := range msgs {
		size += 4 + len(m.data)
	}
	h := []byte{'O', 'H', 'D', 'R', 2, 0x02}
	h = le32(h, uint32(size))
	for _, m := range msgs {
		h = append(h, m.typ)
		h = le16(h, uint16(len(m.data)))
		h = append(h, 0)
		h = append(h, m.data...)
	}
	h = le32(h, binpkg.Lookup3(h))

	addr := w.pos()
	w.buf = append(w.buf, h...)
	return addr
}

func hardLink(name string, addr uint64) []byte {
	b := []byte{1, 0, byte(len(name))}
	b = append(b, name...)
	return le64(b, addr)
}

func softLink(name, target string) []byte {
	b := []byte{1, 0x08, 1, byte(len(name))}
	b = append(b, name...)
	b = le16(b, uint16(len(target)))
	return append(b, target...)
}

func dataspace(dims []uint64, scalar bool) []byte {
	kind := byte(1)
	if scalar {
		kind = 0
	}
	b := []byte{2, byte(len(dims)), 0, kind}
	for _, d := range dims {
		b = le64(b, d)
	}
	return b
}

// attributes encodes version 3 attribute messages in name order.
func attributes(attrs map[string]any) []message {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	slices.Sort(names)

	msgs := make([]message, 0, len(names))
	for _, name := range names {
		v := attrs[name]
		scalar := true
		switch v.(type) {
		case []float64, []float32, []int64, []int32, []string:
			scalar = false
		}
		dt, data, count := encode(v)
		var dims []uint64
		if !scalar {
			dims = []uint64{uint64(count)}
		}
		dtBytes := dt.encode()
		dsBytes := dataspace(dims, scalar)

		b := []byte{3, 0}
		b = le16(b, uint16(len(name)+1))
		b = le16(b, uint16(len(dtBytes)))
		b = le16(b, uint16(len(dsBytes)))
		b = append(b, 0) // ASCII name
		b = append(b, name...)
		b = append(b, 0)
		b = append(b, dtBytes...)
		b = append(b, dsBytes...)
		b = append(b, data...)
		msgs = append(msgs, message{msgAttribute, b})
	}
	return msgs
}

func le16(b []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(b, v) }
func le32(b []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(b, v) }
func le64(b []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(b, v) }

// DatasetOption selects how a dataset is stored.
type DatasetOption func(*node)

type layoutKind int

const (
	contiguous layoutKind = iota
	compact
	chunked
)

// Compact stores the values inside the object header.
func Compact() DatasetOption {
	return func(n *node) { n.layout = compact }
}

// Chunked stores the dataset as a single chunk passed through filters, in
// the order given.
func Chunked(filters ...Filter) DatasetOption {
	return func(n *node) {
		n.layout = chunked
		n.filters = filters
	}
}

// Filter is one stage of a chunk filter pipeline.
type Filter struct {
	id    uint16
	level int
}

// Chunk filters.
var (
	Shuffle    = Filter{id: 2}
	Fletcher32 = Filter{id: 3}
)

// Deflate compresses chunks with zlib at the given level.
func Deflate(level int) Filter { return Filter{id: 1, level: level} }

func pipeline(filters []Filter, elemSize int) []byte {
	b := []byte{2, byte(len(filters))}
	for _, f := range filters {
		b = le16(b, f.id)
		b = le16(b, 0) // mandatory
		switch f.id {
		case 1:
			b = le16(b, 1)
			b = le32(b, uint32(f.level))
		case 2:
			b = le16(b, 1)
			b = le32(b, uint32(elemSize))
		default:
			b = le16(b, 0)
		}
	}
	return b
}

func applyFilters(data []byte, filters []Filter, elemSize int) ([]byte, error) {
	for _, f := range filters {
		switch f.id {
		case 1:
			var buf bytes.Buffer
			zw, err := zlib.NewWriterLevel(&buf, f.level)
			if err != nil {
				return nil, fmt.Errorf("deflate: %w", err)
			}
			if _, err := zw.Write(data); err != nil {
				return nil, fmt.Errorf("deflate: %w", err)
			}
			if err := zw.Close(); err != nil {
				return nil, fmt.Errorf("deflate: %w", err)
			}
			data = buf.Bytes()
		case 2:
			data = shuffle(data, elemSize)
		case 3:
			data = le32(slices.Clone(data), binpkg.Fletcher32(data))
		}
	}
	return data, nil
}

// shuffle stores the i-th byte of every element together.
func shuffle(data []byte, size int) []byte {
	n := len(data) / size
	if size <= 1 || n == 0 {
		return data
	}
	out := make([]byte, len(data))
	for i := range n {
		for b := range size {
			out[b*n+i] = data[i*size+b]
		}
	}
	copy(out[n*size:], data[n*size:])
	return out
}
