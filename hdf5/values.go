package hdf5

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/robert-malhotra/go-inovesa/internal/format"
)

// flatten unwraps array datatypes into their base type, returning how many
// base elements each outer element holds.
func flatten(t *format.Datatype) (*format.Datatype, int) {
	n := 1
	for t.Class == format.ClassArray && t.Base != nil {
		for _, d := range t.ArrayDims {
			n *= int(d)
		}
		t = t.Base
	}
	return t, n
}

func decodeFloat64s(raw []byte, t *format.Datatype) ([]float64, error) {
	base, per := flatten(t)
	if !base.Numeric() {
		return nil, fmt.Errorf("%w: cannot read %s as float64", ErrType, base.Class)
	}
	size := base.Size
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-sized %s", ErrType, base.Class)
	}
	count := len(raw) / size
	if per > 1 {
		count = count / per * per
	}
	out := make([]float64, count)
	for i := range out {
		v, err := numberAt(raw[i*size:(i+1)*size], base)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func numberAt(b []byte, t *format.Datatype) (float64, error) {
	order := t.Order
	if order == nil {
		order = binary.LittleEndian
	}
	switch t.Class {
	case format.ClassFloat:
		switch len(b) {
		case 4:
			return float64(math.Float32frombits(order.Uint32(b))), nil
		case 8:
			return math.Float64frombits(order.Uint64(b)), nil
		}
	case format.ClassFixed, format.ClassEnum:
		u, ok := unsigned(b, order)
		if !ok {
			break
		}
		if t.Signed {
			shift := 64 - 8*uint(len(b))
			return float64(int64(u<<shift) >> shift), nil
		}
		return float64(u), nil
	}
	return 0, fmt.Errorf("%w: %d-byte %s", ErrType, len(b), t.Class)
}

func unsigned(b []byte, order binary.ByteOrder) (uint64, bool) {
	switch len(b) {
	case 1:
		return uint64(b[0]), true
	case 2:
		return uint64(order.Uint16(b)), true
	case 4:
		return uint64(order.Uint32(b)), true
	case 8:
		return order.Uint64(b), true
	}
	return 0, false
}

func decodeInt64s(raw []byte, t *format.Datatype) ([]int64, error) {
	base, _ := flatten(t)
	if base.Class != format.ClassFixed && base.Class != format.ClassEnum {
		return nil, fmt.Errorf("%w: cannot read %s as int64", ErrType, base.Class)
	}
	size := base.Size
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-sized %s", ErrType, base.Class)
	}
	out := make([]int64, len(raw)/size)
	for i := range out {
		b := raw[i*size : (i+1)*size]
		u, ok := unsigned(b, base.Order)
		if !ok {
			return nil, fmt.Errorf("%w: %d-byte integer", ErrType, size)
		}
		if base.Signed {
			shift := 64 - 8*uint(size)
			out[i] = int64(u<<shift) >> shift
		} else {
			out[i] = int64(u)
		}
	}
	return out, nil
}

// decodeStrings decodes fixed-length strings in place and resolves
// variable-length strings through the global heap.
func (f *File) decodeStrings(raw []byte, t *format.Datatype) ([]string, error) {
	switch {
	case t.Class == format.ClassString:
		if t.Size == 0 {
			return nil, nil
		}
		out := make([]string, len(raw)/t.Size)
		for i := range out {
			s := raw[i*t.Size : (i+1)*t.Size]
			if j := bytes.IndexByte(s, 0); j >= 0 {
				s = s[:j]
			}
			out[i] = string(bytes.TrimRight(s, " "))
		}
		return out, nil

	case t.Class == format.ClassVarLen && t.VarString:
		r := f.reader
		elem := 4 + r.OffsetSize() + 4
		out := make([]string, len(raw)/elem)
		for i := range out {
			d := r.Decoder(raw[i*elem : (i+1)*elem])
			n := d.U32()
			addr := d.Offset()
			index := d.U32()
			if err := d.Err(); err != nil {
				return nil, err
			}
			if n == 0 || r.Undefined(addr) || addr == 0 {
				continue
			}
			heap, err := f.globalHeap(addr)
			if err != nil {
				return nil, err
			}
			obj, ok := heap.Object(index)
			if !ok {
				return nil, fmt.Errorf("global heap object %d at %#x not found", index, addr)
			}
			if int(n) < len(obj) {
				obj = obj[:n]
			}
			if j := bytes.IndexByte(obj, 0); j >= 0 {
				obj = obj[:j]
			}
			out[i] = string(obj)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: cannot read %s as string", ErrType, t.Class)
}

// decodeValue decodes raw into []float64, []int64 or []string depending on
// the datatype.
func (f *File) decodeValue(raw []byte, t *format.Datatype) (any, error) {
	base, _ := flatten(t)
	switch {
	case t.Text():
		return f.decodeStrings(raw, t)
	case base.Class == format.ClassFixed || base.Class == format.ClassEnum:
		return decodeInt64s(raw, t)
	case base.Class == format.ClassFloat:
		return decodeFloat64s(raw, t)
	}
	return nil, fmt.Errorf("%w: %s values", ErrUnsupported, t.Class)
}
