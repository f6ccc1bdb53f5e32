package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/format"
)

// Attribute is a small named value attached to a group or dataset.
type Attribute struct {
	file *File
	attr *format.Attribute
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.attr.Name }

// Shape returns the attribute dimensions; scalars have an empty shape.
func (a *Attribute) Shape() []int {
	shape := make([]int, len(a.attr.Space.Dims))
	for i, d := range a.attr.Space.Dims {
		shape[i] = int(d)
	}
	return shape
}

// Scalar reports whether the attribute holds a single value.
func (a *Attribute) Scalar() bool { return len(a.attr.Space.Dims) == 0 && !a.attr.Space.Null }

// Value decodes the attribute. Scalars come back as float64, int64 or
// string; everything else as the corresponding slice.
func (a *Attribute) Value() (any, error) {
	v, err := a.file.decodeValue(a.attr.Raw, a.attr.Type)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.attr.Name, err)
	}
	if !a.Scalar() {
		return v, nil
	}
	switch s := v.(type) {
	case []float64:
		if len(s) == 1 {
			return s[0], nil
		}
	case []int64:
		if len(s) == 1 {
			return s[0], nil
		}
	case []string:
		if len(s) == 1 {
			return s[0], nil
		}
	}
	return v, nil
}

// Float64s decodes a numeric attribute.
func (a *Attribute) Float64s() ([]float64, error) {
	v, err := decodeFloat64s(a.attr.Raw, a.attr.Type)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.attr.Name, err)
	}
	return v, nil
}

// Float64 decodes a numeric attribute holding exactly one value.
func (a *Attribute) Float64() (float64, error) {
	v, err := a.Float64s()
	if err != nil {
		return 0, err
	}
	if len(v) != 1 {
		return 0, fmt.Errorf("%w: attribute %q holds %d values", ErrType, a.attr.Name, len(v))
	}
	return v[0], nil
}

// Strings decodes a string attribute.
func (a *Attribute) Strings() ([]string, error) {
	v, err := a.file.decodeStrings(a.attr.Raw, a.attr.Type)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.attr.Name, err)
	}
	return v, nil
}

// Attrs returns the object's attributes in the order they are stored.
func (o *object) Attrs() ([]*Attribute, error) {
	if o.file.isClosed() {
		return nil, ErrClosed
	}
	r := o.file.reader
	if m, ok := o.hdr.Find(format.MsgAttributeInfo); ok {
		ai, err := format.DecodeAttributeInfo(r.Decoder(m.Data))
		if err != nil {
			return nil, err
		}
		if !r.Undefined(ai.Heap) {
			return nil, fmt.Errorf("%w: dense attribute storage on %s", ErrUnsupported, o.path)
		}
	}

	msgs := o.hdr.All(format.MsgAttribute)
	attrs := make([]*Attribute, 0, len(msgs))
	for _, m := range msgs {
		fa, err := format.DecodeAttribute(r, m)
		if err != nil {
			return nil, fmt.Errorf("attributes of %s: %w", o.path, err)
		}
		attrs = append(attrs, &Attribute{file: o.file, attr: fa})
	}
	return attrs, nil
}

// Attr returns the attribute called name.
func (o *object) Attr(name string) (*Attribute, error) {
	attrs, err := o.Attrs()
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: attribute %q on %s", ErrNotFound, name, o.path)
}
