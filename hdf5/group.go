package hdf5

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/robert-malhotra/go-inovesa/internal/format"
)

// Object is a group or a dataset.
type Object interface {
	Name() string
	Path() string
	Attrs() ([]*Attribute, error)
	Attr(name string) (*Attribute, error)
}

// object holds what groups and datasets share.
type object struct {
	file *File
	path string
	hdr  *format.Header
}

// Name returns the last component of the object's path.
func (o *object) Name() string {
	if o.path == "/" {
		return "/"
	}
	return path.Base(o.path)
}

// Path returns the absolute path the object was opened through.
func (o *object) Path() string { return o.path }

// Group represents an HDF5 group.
type Group struct {
	object
}

// link is one named member of a group.
type link struct {
	name   string
	kind   format.LinkKind
	addr   uint64
	target string
}

// Members returns the names of the group's members in sorted order.
func (g *Group) Members() ([]string, error) {
	links, err := g.links()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.name
	}
	return names, nil
}

// Has reports whether name is a direct member of the group.
func (g *Group) Has(name string) bool {
	links, err := g.links()
	if err != nil {
		return false
	}
	_, ok := findLink(links, name)
	return ok
}

// Get resolves a path to a group or dataset. Paths starting with "/" are
// resolved from the root group, others relative to g.
func (g *Group) Get(p string) (Object, error) {
	if g.file.isClosed() {
		return nil, ErrClosed
	}
	start := g
	if strings.HasPrefix(p, "/") {
		start = g.file.root
	}
	return start.resolve(SplitPath(p), 0)
}

// OpenGroup opens the group at path p.
func (g *Group) OpenGroup(p string) (*Group, error) {
	obj, err := g.Get(p)
	if err != nil {
		return nil, err
	}
	grp, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, obj.Path())
	}
	return grp, nil
}

// OpenDataset opens the dataset at path p.
func (g *Group) OpenDataset(p string) (*Dataset, error) {
	obj, err := g.Get(p)
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, obj.Path())
	}
	return ds, nil
}

func (g *Group) resolve(parts []string, depth int) (Object, error) {
	var cur Object = g
	for i, name := range parts {
		grp, ok := cur.(*Group)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, cur.Path())
		}
		if name == ".." {
			parent := path.Dir(grp.path)
			obj, err := grp.file.root.resolve(SplitPath(parent), depth)
			if err != nil {
				return nil, err
			}
			cur = obj
			continue
		}

		links, err := grp.links()
		if err != nil {
			return nil, err
		}
		l, ok := findLink(links, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, JoinPath(grp.path, strings.Join(parts[i:], "/")))
		}

		switch l.kind {
		case format.LinkHard:
			if cur, err = grp.file.openAt(l.addr, JoinPath(grp.path, name)); err != nil {
				return nil, err
			}
		case format.LinkSoft:
			if depth >= MaxLinkDepth {
				return nil, fmt.Errorf("%w: %s", ErrLinkDepth, JoinPath(grp.path, name))
			}
			start := grp
			if strings.HasPrefix(l.target, "/") {
				start = grp.file.root
			}
			if cur, err = start.resolve(SplitPath(l.target), depth+1); err != nil {
				return nil, fmt.Errorf("soft link %s -> %s: %w", JoinPath(grp.path, name), l.target, err)
			}
		default:
			return nil, fmt.Errorf("%w: external link %s", ErrUnsupported, JoinPath(grp.path, name))
		}
	}
	return cur, nil
}

func findLink(links []link, name string) (link, bool) {
	i, ok := slices.BinarySearchFunc(links, name, func(l link, n string) int {
		return strings.Compare(l.name, n)
	})
	if !ok {
		return link{}, false
	}
	return links[i], true
}

// links returns the group's links sorted by name, reading them once.
func (g *Group) links() ([]link, error) {
	f := g.file
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if l, ok := f.links[g.hdr.Addr]; ok {
		f.mu.Unlock()
		return l, nil
	}
	f.mu.Unlock()

	links, err := g.readLinks()
	if err != nil {
		return nil, fmt.Errorf("reading members of %s: %w", g.path, err)
	}
	slices.SortFunc(links, func(a, b link) int { return strings.Compare(a.name, b.name) })

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.links != nil {
		f.links[g.hdr.Addr] = links
	}
	return links, nil
}

func (g *Group) readLinks() ([]link, error) {
	r := g.file.reader

	if m, ok := g.hdr.Find(format.MsgSymbolTable); ok {
		st, err := format.DecodeSymbolTable(r.Decoder(m.Data))
		if err != nil {
			return nil, err
		}
		heap, err := format.ReadLocalHeap(r, st.Heap)
		if err != nil {
			return nil, err
		}
		entries, err := format.GroupEntries(r, st.BTree, heap)
		if err != nil {
			return nil, err
		}
		links := make([]link, len(entries))
		for i, e := range entries {
			links[i] = link{name: e.Name, kind: format.LinkHard, addr: e.Header}
		}
		return links, nil
	}

	if m, ok := g.hdr.Find(format.MsgLinkInfo); ok {
		li, err := format.DecodeLinkInfo(r.Decoder(m.Data))
		if err != nil {
			return nil, err
		}
		if !r.Undefined(li.Heap) {
			return nil, fmt.Errorf("%w: dense link storage", ErrUnsupported)
		}
	}

	var links []link
	for _, m := range g.hdr.All(format.MsgLink) {
		l, err := format.DecodeLink(r.Decoder(m.Data))
		if err != nil {
			return nil, err
		}
		links = append(links, link{name: l.Name, kind: l.Kind, addr: l.Target, target: l.Path})
	}
	return links, nil
}

// openAt opens the object whose header lives at addr. Objects with a data
// layout are datasets, everything else is a group.
func (f *File) openAt(addr uint64, p string) (Object, error) {
	hdr, err := f.header(addr)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", p, err)
	}
	obj := object{file: f, path: p, hdr: hdr}
	if _, ok := hdr.Find(format.MsgLayout); ok {
		ds, err := newDataset(obj)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		return ds, nil
	}
	return &Group{object: obj}, nil
}
