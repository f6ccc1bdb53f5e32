package format

import (
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
)

// maxTreeDepth bounds B-tree recursion on corrupt files.
const maxTreeDepth = 64

// Version 1 B-tree node types.
const (
	treeGroup = 0
	treeChunk = 1
)

// SymbolEntry is one member of an old-style group.
type SymbolEntry struct {
	Name   string
	Header uint64

	// Cached symbol table of the member when it is itself a group.
	BTree uint64
	Heap  uint64
}

// ChunkRef locates one stored chunk of a dataset.
type ChunkRef struct {
	Offset []uint64 // element offset of the chunk in each dataset dimension
	Size   uint32   // stored (possibly filtered) size in bytes
	Mask   uint32   // filters skipped for this chunk
	Addr   uint64
}

type treeNode struct {
	level    uint8
	keys     [][]byte
	children []uint64
}

// readTreeNode reads a "TREE" node whose keys are keyLen bytes long.
func readTreeNode(r *binary.Reader, addr uint64, wantType uint8, keyLen int) (*treeNode, error) {
	head, err := r.DecoderAt(addr, 8+2*r.OffsetSize())
	if err != nil {
		return nil, fmt.Errorf("b-tree node at %#x: %w", addr, err)
	}
	if sig := string(head.Bytes(4)); sig != "TREE" {
		return nil, fmt.Errorf("%w: b-tree node at %#x", ErrBadSignature, addr)
	}
	if typ := head.U8(); typ != wantType {
		return nil, fmt.Errorf("b-tree node at %#x: type %d, want %d", addr, typ, wantType)
	}
	n := &treeNode{level: head.U8()}
	used := int(head.U16())

	bodyLen := used*(keyLen+r.OffsetSize()) + keyLen
	body, err := r.DecoderAt(addr+uint64(8+2*r.OffsetSize()), bodyLen)
	if err != nil {
		return nil, fmt.Errorf("b-tree node at %#x: %w", addr, err)
	}
	n.keys = make([][]byte, 0, used+1)
	n.children = make([]uint64, 0, used)
	for range used {
		n.keys = append(n.keys, body.Bytes(keyLen))
		n.children = append(n.children, body.Offset())
	}
	n.keys = append(n.keys, body.Bytes(keyLen))
	if body.Err() != nil {
		return nil, fmt.Errorf("b-tree node at %#x: %w", addr, body.Err())
	}
	return n, nil
}

// GroupEntries lists the members of an old-style group by walking its
// B-tree and symbol table nodes. Names are resolved through the heap.
func GroupEntries(r *binary.Reader, btree uint64, heap *LocalHeap) ([]SymbolEntry, error) {
	var out []SymbolEntry
	err := walkGroupTree(r, btree, heap, 0, &out)
	return out, err
}

func walkGroupTree(r *binary.Reader, addr uint64, heap *LocalHeap, depth int, out *[]SymbolEntry) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("group b-tree deeper than %d levels", maxTreeDepth)
	}
	node, err := readTreeNode(r, addr, treeGroup, r.LengthSize())
	if err != nil {
		return err
	}
	for _, child := range node.children {
		if node.level > 0 {
			if err := walkGroupTree(r, child, heap, depth+1, out); err != nil {
				return err
			}
			continue
		}
		if err := readSymbolNode(r, child, heap, out); err != nil {
			return err
		}
	}
	return nil
}

func readSymbolNode(r *binary.Reader, addr uint64, heap *LocalHeap, out *[]SymbolEntry) error {
	head, err := r.DecoderAt(addr, 8)
	if err != nil {
		return fmt.Errorf("symbol node at %#x: %w", addr, err)
	}
	if sig := string(head.Bytes(4)); sig != "SNOD" {
		return fmt.Errorf("%w: symbol node at %#x", ErrBadSignature, addr)
	}
	head.Skip(2) // version, reserved
	count := int(head.U16())

	entryLen := 2*r.OffsetSize() + 24
	body, err := r.DecoderAt(addr+8, count*entryLen)
	if err != nil {
		return fmt.Errorf("symbol node at %#x: %w", addr, err)
	}
	for range count {
		nameOff := body.Offset()
		e := SymbolEntry{Header: body.Offset()}
		cache := body.U32()
		body.Skip(4)
		scratch := body.Bytes(16)
		if cache == 1 {
			sd := r.Decoder(scratch)
			e.BTree, e.Heap = sd.Offset(), sd.Offset()
		}
		if body.Err() != nil {
			return fmt.Errorf("symbol node at %#x: %w", addr, body.Err())
		}
		if e.Name, err = heap.String(nameOff); err != nil {
			return err
		}
		*out = append(*out, e)
	}
	return nil
}

// ChunkEntries lists the chunks indexed by a version 1 chunk B-tree. rank is
// the number of stored chunk dimensions, including the element size.
func ChunkEntries(r *binary.Reader, btree uint64, rank int) ([]ChunkRef, error) {
	var out []ChunkRef
	err := walkChunkTree(r, btree, rank, 0, &out)
	return out, err
}

func walkChunkTree(r *binary.Reader, addr uint64, rank, depth int, out *[]ChunkRef) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("chunk b-tree deeper than %d levels", maxTreeDepth)
	}
	keyLen := 8 + 8*rank
	node, err := readTreeNode(r, addr, treeChunk, keyLen)
	if err != nil {
		return err
	}
	for i, child := range node.children {
		if node.level > 0 {
			if err := walkChunkTree(r, child, rank, depth+1, out); err != nil {
				return err
			}
			continue
		}
		k := r.Decoder(node.keys[i])
		ref := ChunkRef{Size: k.U32(), Mask: k.U32(), Addr: child}
		ref.Offset = make([]uint64, rank-1)
		for j := range ref.Offset {
			ref.Offset[j] = k.U64()
		}
		if k.Err() != nil {
			return fmt.Errorf("chunk key at %#x: %w", addr, k.Err())
		}
		*out = append(*out, ref)
	}
	return nil
}
