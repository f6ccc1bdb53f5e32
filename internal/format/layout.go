package format

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
)

// ErrUnsupported is returned for valid structures this package does not read.
var ErrUnsupported = errors.New("unsupported feature")

// LayoutClass is a data layout class.
type LayoutClass uint8

// Layout classes.
const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// ChunkIndex identifies how the chunks of a version 4 layout are located.
type ChunkIndex uint8

// Chunk index types. Version 3 layouts always use IndexBTreeV1.
const (
	IndexBTreeV1    ChunkIndex = 0
	IndexSingle     ChunkIndex = 1
	IndexImplicit   ChunkIndex = 2
	IndexFixedArray ChunkIndex = 3
	IndexExtensible ChunkIndex = 4
	IndexBTreeV2    ChunkIndex = 5
)

// Layout is a decoded data layout message.
type Layout struct {
	Class   LayoutClass
	Address uint64 // contiguous data, chunk index or single chunk
	Size    uint64 // contiguous data size

	Compact []byte

	// Chunked layouts. ChunkDims has one entry per dataset dimension plus
	// a trailing element size, as stored on disk.
	ChunkDims    []uint64
	Index        ChunkIndex
	SingleSize   uint64 // filtered size of a single chunk, 0 if unfiltered
	SingleFilter uint32
}

// DecodeLayout decodes a data layout message (versions 3 and 4).
func DecodeLayout(d *binary.Decoder) (*Layout, error) {
	version := d.U8()
	if version < 3 || version > 4 {
		return nil, fmt.Errorf("%w: layout v%d", ErrUnsupportedVersion, version)
	}
	l := &Layout{Class: LayoutClass(d.U8())}

	switch l.Class {
	case LayoutCompact:
		n := int(d.U16())
		l.Compact = d.Bytes(n)
	case LayoutContiguous:
		l.Address = d.Offset()
		l.Size = d.Length()
	case LayoutChunked:
		if version == 3 {
			rank := int(d.U8())
			l.Address = d.Offset()
			l.ChunkDims = make([]uint64, rank)
			for i := range l.ChunkDims {
				l.ChunkDims[i] = uint64(d.U32())
			}
			l.Index = IndexBTreeV1
			break
		}
		flags := d.U8()
		rank := int(d.U8())
		width := int(d.U8())
		l.ChunkDims = make([]uint64, rank)
		for i := range l.ChunkDims {
			l.ChunkDims[i] = d.Uint(width)
		}
		l.Index = ChunkIndex(d.U8())
		switch l.Index {
		case IndexSingle:
			if flags&0x02 != 0 {
				l.SingleSize = d.Length()
				l.SingleFilter = d.U32()
			}
		case IndexImplicit:
		case IndexFixedArray:
			d.Skip(1)
		case IndexExtensible:
			d.Skip(5)
		case IndexBTreeV2:
			d.Skip(6)
		default:
			return nil, fmt.Errorf("%w: chunk index type %d", ErrUnsupported, l.Index)
		}
		l.Address = d.Offset()
	case LayoutVirtual:
		return nil, fmt.Errorf("%w: virtual dataset layout", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: layout class %d", ErrUnsupported, l.Class)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding layout: %w", err)
	}
	return l, nil
}

// Filter identifiers.
const (
	FilterDeflate    = 1
	FilterShuffle    = 2
	FilterFletcher32 = 3
	FilterSZip       = 4
	FilterNBit       = 5
	FilterScale      = 6
)

// Filter is one stage of a filter pipeline.
type Filter struct {
	ID       uint16
	Name     string
	Optional bool
	Params   []uint32
}

// DecodeFilters decodes a filter pipeline message.
func DecodeFilters(d *binary.Decoder) ([]Filter, error) {
	version := d.U8()
	count := int(d.U8())
	if version == 1 {
		d.Skip(6)
	} else if version != 2 {
		return nil, fmt.Errorf("%w: filter pipeline v%d", ErrUnsupportedVersion, version)
	}

	filters := make([]Filter, 0, count)
	for range count {
		f := Filter{ID: d.U16()}
		nameLen := 0
		if version == 1 || f.ID >= 256 {
			nameLen = int(d.U16())
		}
		f.Optional = d.U16()&0x01 != 0
		nparams := int(d.U16())
		if nameLen > 0 {
			name := d.Bytes(nameLen)
			if version == 1 {
				d.Skip((8 - nameLen%8) % 8)
			}
			f.Name = trimNUL(name)
		}
		f.Params = make([]uint32, nparams)
		for i := range f.Params {
			f.Params[i] = d.U32()
		}
		if version == 1 && nparams%2 == 1 {
			d.Skip(4)
		}
		filters = append(filters, f)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding filter pipeline: %w", err)
	}
	return filters, nil
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
