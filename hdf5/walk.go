package hdf5

import (
	"errors"
)

// SkipGroup can be returned by a WalkFunc to skip the members of the group
// it was called for.
var SkipGroup = errors.New("skip this group")

// WalkFunc is called for each object during traversal. obj is a *Group or a
// *Dataset, or nil when the member could not be opened, in which case err
// says why. Returning a non-nil error other than SkipGroup stops the walk.
type WalkFunc func(path string, obj Object, err error) error

// Walk visits g and everything below it, depth first, members in sorted
// order.
func Walk(g *Group, fn WalkFunc) error {
	err := walk(g, fn)
	if errors.Is(err, SkipGroup) {
		return nil
	}
	return err
}

func walk(g *Group, fn WalkFunc) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}
	members, err := g.Members()
	if err != nil {
		return fn(g.Path(), nil, err)
	}
	for _, name := range members {
		child := JoinPath(g.Path(), name)
		obj, err := g.Get(name)
		if err != nil {
			if err := fn(child, nil, err); err != nil && !errors.Is(err, SkipGroup) {
				return err
			}
			continue
		}
		switch o := obj.(type) {
		case *Group:
			if err := walk(o, fn); err != nil && !errors.Is(err, SkipGroup) {
				return err
			}
		default:
			if err := fn(child, o, nil); err != nil && !errors.Is(err, SkipGroup) {
				return err
			}
		}
	}
	return nil
}

// AttrInfo describes one attribute visited by WalkAttrs.
type AttrInfo struct {
	Path       string // full attribute path, e.g. "/Info/Parameters@BunchCurrent"
	ObjectPath string
	Name       string
	Attr       *Attribute
	Value      any   // nil when Err is set
	Err        error // error decoding the value
}

// WalkAttrs visits every attribute of every object in the file.
func (f *File) WalkAttrs(fn func(AttrInfo) error) error {
	if f.isClosed() {
		return ErrClosed
	}
	return Walk(f.root, func(p string, obj Object, err error) error {
		if err != nil {
			return nil
		}
		attrs, err := obj.Attrs()
		if err != nil {
			return nil
		}
		for _, a := range attrs {
			info := AttrInfo{
				Path:       JoinAttrPath(p, a.Name()),
				ObjectPath: p,
				Name:       a.Name(),
				Attr:       a,
			}
			info.Value, info.Err = a.Value()
			if err := fn(info); err != nil {
				return err
			}
		}
		return nil
	})
}
