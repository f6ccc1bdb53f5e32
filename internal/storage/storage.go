package storage

import (
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
	"github.com/robert-malhotra/go-inovesa/internal/format"
)

// Dataset describes where and how a dataset's elements are stored.
type Dataset struct {
	Dims     []uint64
	ElemSize int
	Layout   *format.Layout
	Pipeline *Pipeline
}

func (ds Dataset) total() uint64 {
	n := uint64(1)
	for _, d := range ds.Dims {
		n *= d
	}
	return n * uint64(ds.ElemSize)
}

// Read returns every element of the dataset in row-major order. Storage that
// was never allocated reads as zeros.
func Read(r *binary.Reader, ds Dataset) ([]byte, error) {
	size := ds.total()
	l := ds.Layout
	switch l.Class {
	case format.LayoutCompact:
		if uint64(len(l.Compact)) < size {
			return nil, fmt.Errorf("compact data holds %d bytes, need %d", len(l.Compact), size)
		}
		return l.Compact[:size], nil

	case format.LayoutContiguous:
		if r.Undefined(l.Address) || size == 0 {
			return make([]byte, size), nil
		}
		return r.ReadAt(l.Address, int(size))

	case format.LayoutChunked:
		return readChunked(r, ds, size)
	}
	return nil, fmt.Errorf("%w: layout class %d", format.ErrUnsupported, l.Class)
}

func readChunked(r *binary.Reader, ds Dataset, size uint64) ([]byte, error) {
	l := ds.Layout
	rank := len(ds.Dims)
	if len(l.ChunkDims) < rank || rank == 0 {
		return nil, fmt.Errorf("chunk rank %d does not match dataset rank %d", len(l.ChunkDims)-1, rank)
	}
	chunkDims := l.ChunkDims[:rank]
	chunkBytes := uint64(ds.ElemSize)
	for _, c := range chunkDims {
		chunkBytes *= c
	}

	out := make([]byte, size)
	if r.Undefined(l.Address) || size == 0 {
		return out, nil
	}

	var refs []format.ChunkRef
	switch l.Index {
	case format.IndexBTreeV1:
		var err error
		if refs, err = format.ChunkEntries(r, l.Address, len(l.ChunkDims)); err != nil {
			return nil, fmt.Errorf("reading chunk index: %w", err)
		}
	case format.IndexSingle:
		ref := format.ChunkRef{Offset: make([]uint64, rank), Size: uint32(chunkBytes), Addr: l.Address}
		if l.SingleSize > 0 {
			ref.Size, ref.Mask = uint32(l.SingleSize), l.SingleFilter
		}
		refs = append(refs, ref)
	case format.IndexImplicit:
		refs = implicitChunks(ds.Dims, chunkDims, chunkBytes, l.Address)
	case format.IndexBTreeV2:
		var err error
		if refs, err = format.ChunkEntriesV2(r, l.Address, chunkDims, chunkBytes); err != nil {
			return nil, fmt.Errorf("reading chunk index: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: chunk index type %d", format.ErrUnsupported, l.Index)
	}

	for _, ref := range refs {
		raw, err := r.ReadAt(ref.Addr, int(ref.Size))
		if err != nil {
			return nil, fmt.Errorf("reading chunk at %v: %w", ref.Offset, err)
		}
		chunk, err := ds.Pipeline.Decode(raw, ref.Mask, ds.ElemSize)
		if err != nil {
			return nil, fmt.Errorf("decoding chunk at %v: %w", ref.Offset, err)
		}
		place(out, chunk, ref.Offset, chunkDims, ds.Dims, ds.ElemSize)
	}
	return out, nil
}

// implicitChunks lists the chunks of an implicit index: every chunk of the
// grid, stored back to back in row-major order.
func implicitChunks(dims, chunkDims []uint64, chunkBytes, base uint64) []format.ChunkRef {
	rank := len(dims)
	grid := make([]uint64, rank)
	count := uint64(1)
	for i := range dims {
		grid[i] = (dims[i] + chunkDims[i] - 1) / chunkDims[i]
		count *= grid[i]
	}
	refs := make([]format.ChunkRef, 0, count)
	idx := make([]uint64, rank)
	for n := uint64(0); n < count; n++ {
		off := make([]uint64, rank)
		for i := range idx {
			off[i] = idx[i] * chunkDims[i]
		}
		refs = append(refs, format.ChunkRef{Offset: off, Size: uint32(chunkBytes), Addr: base + n*chunkBytes})
		for k := rank - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < grid[k] {
				break
			}
			idx[k] = 0
		}
	}
	return refs
}

// place copies a decoded chunk into the dataset buffer, clipping the parts of
// edge chunks that lie outside the dataset.
func place(dst, src []byte, off, chunkDims, dims []uint64, elem int) {
	n := len(dims)
	ext := make([]uint64, n)
	for i := range n {
		if off[i] >= dims[i] {
			return
		}
		ext[i] = min(chunkDims[i], dims[i]-off[i])
	}

	dstStride := make([]uint64, n)
	srcStride := make([]uint64, n)
	dstStride[n-1], srcStride[n-1] = uint64(elem), uint64(elem)
	for i := n - 2; i >= 0; i-- {
		dstStride[i] = dstStride[i+1] * dims[i+1]
		srcStride[i] = srcStride[i+1] * chunkDims[i+1]
	}

	row := ext[n-1] * uint64(elem)
	idx := make([]uint64, n-1)
	for {
		s := uint64(0)
		d := off[n-1] * uint64(elem)
		for i, v := range idx {
			s += v * srcStride[i]
			d += (off[i] + v) * dstStride[i]
		}
		if s+row <= uint64(len(src)) && d+row <= uint64(len(dst)) {
			copy(dst[d:d+row], src[s:s+row])
		}

		k := n - 2
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < ext[k] {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return
		}
	}
}
