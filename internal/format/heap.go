package format

import (
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
)

// LocalHeap holds the data segment of a local heap, which stores the link
// names of an old-style group.
type LocalHeap struct {
	data []byte
}

// ReadLocalHeap reads the local heap at addr.
func ReadLocalHeap(r *binary.Reader, addr uint64) (*LocalHeap, error) {
	d, err := r.DecoderAt(addr, 8+2*r.LengthSize()+r.OffsetSize())
	if err != nil {
		return nil, fmt.Errorf("local heap at %#x: %w", addr, err)
	}
	if sig := string(d.Bytes(4)); sig != "HEAP" {
		return nil, fmt.Errorf("%w: local heap at %#x", ErrBadSignature, addr)
	}
	if v := d.U8(); v != 0 {
		return nil, fmt.Errorf("%w: local heap v%d", ErrUnsupportedVersion, v)
	}
	d.Skip(3)
	size := d.Length()
	d.Length() // free list head
	dataAddr := d.Offset()
	if d.Err() != nil {
		return nil, fmt.Errorf("local heap at %#x: %w", addr, d.Err())
	}

	data, err := r.ReadAt(dataAddr, int(size))
	if err != nil {
		return nil, fmt.Errorf("local heap data: %w", err)
	}
	return &LocalHeap{data: data}, nil
}

// String returns the NUL-terminated string at offset off.
func (h *LocalHeap) String(off uint64) (string, error) {
	if off >= uint64(len(h.data)) {
		return "", fmt.Errorf("local heap offset %d out of range (%d bytes)", off, len(h.data))
	}
	return trimNUL(h.data[off:]), nil
}

// GlobalHeap is one global heap collection, holding variable-length data.
type GlobalHeap struct {
	objects map[uint16][]byte
}

// ReadGlobalHeap reads the global heap collection at addr.
func ReadGlobalHeap(r *binary.Reader, addr uint64) (*GlobalHeap, error) {
	hdrLen := 8 + r.LengthSize()
	d, err := r.DecoderAt(addr, hdrLen)
	if err != nil {
		return nil, fmt.Errorf("global heap at %#x: %w", addr, err)
	}
	if sig := string(d.Bytes(4)); sig != "GCOL" {
		return nil, fmt.Errorf("%w: global heap at %#x", ErrBadSignature, addr)
	}
	if v := d.U8(); v != 1 {
		return nil, fmt.Errorf("%w: global heap v%d", ErrUnsupportedVersion, v)
	}
	d.Skip(3)
	size := d.Length()
	if d.Err() != nil || size < uint64(hdrLen) {
		return nil, fmt.Errorf("global heap at %#x: bad collection size %d", addr, size)
	}

	body, err := r.DecoderAt(addr+uint64(hdrLen), int(size)-hdrLen)
	if err != nil {
		return nil, fmt.Errorf("global heap at %#x: %w", addr, err)
	}
	h := &GlobalHeap{objects: make(map[uint16][]byte)}
	for body.Len() >= 8+r.LengthSize() {
		index := body.U16()
		if index == 0 {
			break // free space object
		}
		body.Skip(6) // reference count, reserved
		n := int(body.Length())
		h.objects[index] = body.Bytes(n)
		body.Align(8)
		if body.Err() != nil {
			return nil, fmt.Errorf("global heap at %#x: %w", addr, body.Err())
		}
	}
	return h, nil
}

// Object returns the heap object with the given index.
func (h *GlobalHeap) Object(index uint32) ([]byte, bool) {
	b, ok := h.objects[uint16(index)]
	return b, ok
}
