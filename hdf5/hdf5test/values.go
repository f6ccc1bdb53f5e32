package hdf5test

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Datatype classes written by this package.
const (
	classFixed  = 0
	classFloat  = 1
	classString = 3
	classOpaque = 5
)

type dtype struct {
	class  byte
	size   int
	signed bool
}

// encode returns a version 1 datatype message: little-endian numbers,
// NUL-padded ASCII strings and untagged opaque bytes.
func (t dtype) encode() []byte {
	b := []byte{1<<4 | t.class, 0, 0, 0}
	switch t.class {
	case classFixed:
		if t.signed {
			b[1] = 0x08
		}
		b = le32(b, uint32(t.size))
		b = le16(b, 0) // bit offset
		return le16(b, uint16(8*t.size))
	case classFloat:
		switch t.size {
		case 4:
			b[1], b[2] = 0x20, 31 // IEEE normalization, sign bit
			b = le32(b, 4)
			return append(b, 0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0)
		default:
			b[1], b[2] = 0x20, 63
			b = le32(b, 8)
			return append(b, 0, 0, 64, 0, 52, 11, 0, 52, 255, 3, 0, 0)
		}
	case classString:
		b[1] = 0x01 // NUL padded
	}
	return le32(b, uint32(t.size))
}

// encode converts a Go value to a datatype and its little-endian bytes,
// also returning the number of elements. Scalars count as one element.
func encode(v any) (dtype, []byte, int) {
	switch v := v.(type) {
	case float64:
		return encode([]float64{v})
	case float32:
		return encode([]float32{v})
	case int:
		return encode([]int64{int64(v)})
	case int64:
		return encode([]int64{v})
	case int32:
		return encode([]int32{v})
	case string:
		return encode([]string{v})
	case Opaque:
		return dtype{class: classOpaque, size: len(v)}, v, 1

	case []float64:
		b := make([]byte, 0, 8*len(v))
		for _, x := range v {
			b = le64(b, math.Float64bits(x))
		}
		return dtype{class: classFloat, size: 8}, b, len(v)
	case []float32:
		b := make([]byte, 0, 4*len(v))
		for _, x := range v {
			b = le32(b, math.Float32bits(x))
		}
		return dtype{class: classFloat, size: 4}, b, len(v)
	case []int64:
		b := make([]byte, 0, 8*len(v))
		for _, x := range v {
			b = binary.LittleEndian.AppendUint64(b, uint64(x))
		}
		return dtype{class: classFixed, size: 8, signed: true}, b, len(v)
	case []int32:
		b := make([]byte, 0, 4*len(v))
		for _, x := range v {
			b = binary.LittleEndian.AppendUint32(b, uint32(x))
		}
		return dtype{class: classFixed, size: 4, signed: true}, b, len(v)
	case []string:
		size := 1
		for _, s := range v {
			size = max(size, len(s))
		}
		b := make([]byte, size*len(v))
		for i, s := range v {
			copy(b[i*size:], s)
		}
		return dtype{class: classString, size: size}, b, len(v)
	}
	panic(fmt.Sprintf("hdf5test: cannot store %T", v))
}
