package format

import (
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
)

// Dataspace describes the shape of a dataset or attribute.
type Dataspace struct {
	Dims []uint64
	Null bool // no elements at all
}

// Elements returns the number of elements; a scalar has one.
func (s *Dataspace) Elements() uint64 {
	if s.Null {
		return 0
	}
	n := uint64(1)
	for _, d := range s.Dims {
		n *= d
	}
	return n
}

// DecodeDataspace decodes a dataspace message.
func DecodeDataspace(d *binary.Decoder) (*Dataspace, error) {
	version := d.U8()
	rank := int(d.U8())
	flags := d.U8()

	s := &Dataspace{}
	switch version {
	case 1:
		d.Skip(5)
	case 2:
		s.Null = d.U8() == 2
	default:
		return nil, fmt.Errorf("%w: dataspace v%d", ErrUnsupportedVersion, version)
	}

	s.Dims = make([]uint64, rank)
	for i := range s.Dims {
		s.Dims[i] = d.Length()
	}
	if flags&0x01 != 0 {
		for range rank {
			d.Length() // maximum dimensions
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding dataspace: %w", err)
	}
	return s, nil
}
