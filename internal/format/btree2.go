package format

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
)

// Version 2 B-tree record types indexing dataset chunks.
const (
	btree2Chunk         = 10
	btree2FilteredChunk = 11
)

// btree2Prefix is the per-node overhead: signature, version, type and
// checksum.
const btree2Prefix = 10

// btree2 is a decoded "BTHD" header together with the per-level node
// capacities needed to size the fields of internal nodes.
type btree2 struct {
	r          *binary.Reader
	typ        uint8
	nodeSize   int
	recordSize int
	depth      int
	root       uint64
	rootRecs   int
	total      uint64

	nrecBytes int   // width of a child's record count
	cumBytes  []int // width of a child's total record count, per level
}

// encodedSize is the number of bytes needed to store n.
func encodedSize(n uint64) int {
	if n == 0 {
		return 1
	}
	return (bits.Len64(n)-1)/8 + 1
}

func readBTree2(r *binary.Reader, addr uint64) (*btree2, error) {
	d, err := r.DecoderAt(addr, 4+1+1+4+2+2+1+1+r.OffsetSize()+2+r.LengthSize())
	if err != nil {
		return nil, fmt.Errorf("b-tree v2 header at %#x: %w", addr, err)
	}
	if sig := string(d.Bytes(4)); sig != "BTHD" {
		return nil, fmt.Errorf("%w: b-tree v2 header at %#x", ErrBadSignature, addr)
	}
	if v := d.U8(); v != 0 {
		return nil, fmt.Errorf("%w: b-tree v2 header v%d", ErrUnsupportedVersion, v)
	}
	t := &btree2{r: r, typ: d.U8()}
	t.nodeSize = int(d.U32())
	t.recordSize = int(d.U16())
	t.depth = int(d.U16())
	d.Skip(2) // split and merge percentages
	t.root = d.Offset()
	t.rootRecs = int(d.U16())
	t.total = d.Length()
	if d.Err() != nil {
		return nil, fmt.Errorf("b-tree v2 header at %#x: %w", addr, d.Err())
	}
	if t.recordSize == 0 || t.nodeSize <= btree2Prefix+t.recordSize {
		return nil, fmt.Errorf("b-tree v2 at %#x: record size %d, node size %d", addr, t.recordSize, t.nodeSize)
	}
	if t.depth > maxTreeDepth {
		return nil, fmt.Errorf("b-tree v2 deeper than %d levels", maxTreeDepth)
	}
	t.levels()
	return t, nil
}

// levels derives the field widths of child pointers from the node size,
// the way the library that wrote the tree sized them.
func (t *btree2) levels() {
	maxRecs := uint64((t.nodeSize - btree2Prefix) / t.recordSize)
	cum := maxRecs
	t.nrecBytes = encodedSize(maxRecs)
	t.cumBytes = make([]int, t.depth+1)
	for u := 1; u <= t.depth; u++ {
		ptr := t.r.OffsetSize() + t.nrecBytes + t.cumBytes[u-1]
		n := uint64(0)
		if room := t.nodeSize - btree2Prefix - ptr; room > 0 {
			n = uint64(room / (t.recordSize + ptr))
		}
		cum = (n+1)*cum + n
		t.cumBytes[u] = encodedSize(cum)
	}
}

// records calls fn with every record of the tree, in no particular order.
func (t *btree2) records(fn func(rec []byte) error) error {
	if t.total == 0 || t.r.Undefined(t.root) {
		return nil
	}
	return t.node(t.root, t.rootRecs, t.depth, fn)
}

func (t *btree2) node(addr uint64, nrec, depth int, fn func([]byte) error) error {
	buf, err := t.r.ReadUpTo(addr, t.nodeSize)
	if err != nil {
		return fmt.Errorf("b-tree v2 node at %#x: %w", addr, err)
	}
	d := t.r.Decoder(buf)
	want := "BTLF"
	if depth > 0 {
		want = "BTIN"
	}
	if sig := string(d.Bytes(4)); sig != want {
		return fmt.Errorf("%w: b-tree v2 node at %#x", ErrBadSignature, addr)
	}
	if v := d.U8(); v != 0 {
		return fmt.Errorf("%w: b-tree v2 node v%d", ErrUnsupportedVersion, v)
	}
	if typ := d.U8(); typ != t.typ {
		return fmt.Errorf("b-tree v2 node at %#x: type %d, want %d", addr, typ, t.typ)
	}

	for range nrec {
		rec := d.Bytes(t.recordSize)
		if d.Err() != nil {
			break
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if depth == 0 {
		if d.Err() != nil {
			return fmt.Errorf("b-tree v2 leaf at %#x: %w", addr, d.Err())
		}
		return nil
	}

	type child struct {
		addr uint64
		nrec int
	}
	children := make([]child, 0, nrec+1)
	for range nrec + 1 {
		c := child{addr: d.Offset(), nrec: int(d.Uint(t.nrecBytes))}
		if depth > 1 {
			d.Skip(t.cumBytes[depth-1])
		}
		children = append(children, c)
	}
	if d.Err() != nil {
		return fmt.Errorf("b-tree v2 node at %#x: %w", addr, d.Err())
	}
	for _, c := range children {
		if err := t.node(c.addr, c.nrec, depth-1, fn); err != nil {
			return err
		}
	}
	return nil
}

// ChunkEntriesV2 lists the chunks indexed by a version 2 B-tree. chunkDims
// are the chunk dimensions without the element size; chunkBytes is the
// unfiltered size of one chunk.
func ChunkEntriesV2(r *binary.Reader, addr uint64, chunkDims []uint64, chunkBytes uint64) ([]ChunkRef, error) {
	t, err := readBTree2(r, addr)
	if err != nil {
		return nil, err
	}
	rank := len(chunkDims)
	sizeLen := 0
	switch t.typ {
	case btree2Chunk:
		if t.recordSize != r.OffsetSize()+8*rank {
			return nil, fmt.Errorf("b-tree v2 chunk record size %d for rank %d", t.recordSize, rank)
		}
	case btree2FilteredChunk:
		sizeLen = t.recordSize - r.OffsetSize() - 4 - 8*rank
		if sizeLen < 1 || sizeLen > 8 {
			return nil, fmt.Errorf("b-tree v2 filtered chunk record size %d for rank %d", t.recordSize, rank)
		}
	default:
		return nil, fmt.Errorf("b-tree v2 at %#x: record type %d does not index chunks", addr, t.typ)
	}

	var out []ChunkRef
	err = t.records(func(rec []byte) error {
		d := r.Decoder(rec)
		ref := ChunkRef{Addr: d.Offset(), Size: uint32(chunkBytes)}
		if sizeLen > 0 {
			ref.Size = uint32(d.Uint(sizeLen))
			ref.Mask = d.U32()
		}
		ref.Offset = make([]uint64, rank)
		for i := range ref.Offset {
			ref.Offset[i] = d.U64() * chunkDims[i]
		}
		if d.Err() != nil {
			return fmt.Errorf("chunk record: %w", d.Err())
		}
		if !r.Undefined(ref.Addr) {
			out = append(out, ref)
		}
		return nil
	})
	return out, err
}
