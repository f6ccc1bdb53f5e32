// Package binary provides positioned reads and field decoding for HDF5 file parsing.
//
// A Reader fetches raw byte ranges from the file, relative to the superblock
// base address. A Decoder walks one such byte range field by field using the
// file's offset and length widths.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidSize is returned when an invalid offset or length size is specified.
var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// ErrShortBuffer is returned by a Decoder that ran past the end of its buffer.
var ErrShortBuffer = errors.New("field extends past end of buffer")

// Reader reads byte ranges from an HDF5 file.
type Reader struct {
	ra         io.ReaderAt
	order      binary.ByteOrder
	base       uint64
	offsetSize int
	lengthSize int
}

// NewReader returns a little-endian reader with 8-byte offsets and lengths,
// suitable for locating and decoding the superblock.
func NewReader(ra io.ReaderAt) *Reader {
	return &Reader{
		ra:         ra,
		order:      binary.LittleEndian,
		offsetSize: 8,
		lengthSize: 8,
	}
}

// Configure returns a copy of r that uses the given base address and field widths.
func (r *Reader) Configure(base uint64, offsetSize, lengthSize int) (*Reader, error) {
	if !validSize(offsetSize) || !validSize(lengthSize) {
		return nil, fmt.Errorf("%w (offset=%d, length=%d)", ErrInvalidSize, offsetSize, lengthSize)
	}
	c := *r
	c.base = base
	c.offsetSize = offsetSize
	c.lengthSize = lengthSize
	return &c, nil
}

func validSize(n int) bool {
	return n == 2 || n == 4 || n == 8
}

// OffsetSize returns the width of file addresses in bytes.
func (r *Reader) OffsetSize() int { return r.offsetSize }

// LengthSize returns the width of length fields in bytes.
func (r *Reader) LengthSize() int { return r.lengthSize }

// Order returns the byte order of structural fields.
func (r *Reader) Order() binary.ByteOrder { return r.order }

// ReadAt reads exactly n bytes at the given file address.
func (r *Reader) ReadAt(addr uint64, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d at %#x", n, addr)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	got, err := r.ra.ReadAt(buf, int64(r.base+addr))
	if got == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("reading %d bytes at %#x: %w", n, addr, err)
}

// ReadUpTo reads at most n bytes at addr. It returns fewer bytes only when
// the file ends first.
func (r *Reader) ReadUpTo(addr uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := r.ra.ReadAt(buf, int64(r.base+addr))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading at %#x: %w", addr, err)
	}
	return buf[:got], nil
}

// Decoder returns a field decoder over buf.
func (r *Reader) Decoder(buf []byte) *Decoder {
	return &Decoder{buf: buf, order: r.order, offsetSize: r.offsetSize, lengthSize: r.lengthSize}
}

// DecoderAt reads n bytes at addr and returns a decoder over them.
func (r *Reader) DecoderAt(addr uint64, n int) (*Decoder, error) {
	buf, err := r.ReadAt(addr, n)
	if err != nil {
		return nil, err
	}
	return r.Decoder(buf), nil
}

// Undefined reports whether addr is the all-ones "undefined address" for
// this file's offset width.
func (r *Reader) Undefined(addr uint64) bool {
	return addr == undefinedFor(r.offsetSize)
}

func undefinedFor(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(size)) - 1
}

// Decoder decodes consecutive fields from a byte slice. The first failure is
// sticky: later calls return zero values and Err reports the failure.
type Decoder struct {
	buf        []byte
	pos        int
	order      binary.ByteOrder
	offsetSize int
	lengthSize int
	err        error
}

// Err returns the first decoding failure, if any.
func (d *Decoder) Err() error { return d.err }

// Pos returns the current position within the buffer.
func (d *Decoder) Pos() int { return d.pos }

// Len returns the number of bytes left to decode.
func (d *Decoder) Len() int {
	if d.pos >= len(d.buf) {
		return 0
	}
	return len(d.buf) - d.pos
}

// Seek moves to an absolute position within the buffer.
func (d *Decoder) Seek(pos int) {
	if pos < 0 || pos > len(d.buf) {
		d.fail(pos - d.pos)
		return
	}
	d.pos = pos
}

// OffsetSize returns the width of address fields.
func (d *Decoder) OffsetSize() int { return d.offsetSize }

// LengthSize returns the width of length fields.
func (d *Decoder) LengthSize() int { return d.lengthSize }

func (d *Decoder) fail(n int) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: need %d bytes at %d, have %d", ErrShortBuffer, n, d.pos, d.Len())
	}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.pos+n > len(d.buf) {
		d.fail(n)
		return nil
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

// Bytes returns the next n bytes. The slice aliases the decoder's buffer.
func (d *Decoder) Bytes(n int) []byte { return d.take(n) }

// Rest returns all remaining bytes.
func (d *Decoder) Rest() []byte { return d.take(d.Len()) }

// Skip advances past n bytes.
func (d *Decoder) Skip(n int) { d.take(n) }

// Align advances to the next multiple of n, measured from the buffer start.
func (d *Decoder) Align(n int) {
	if rem := d.pos % n; rem != 0 {
		pad := n - rem
		if pad > d.Len() {
			pad = d.Len()
		}
		d.pos += pad
	}
}

// U8 decodes one byte.
func (d *Decoder) U8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 decodes a 2-byte unsigned integer.
func (d *Decoder) U16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return d.order.Uint16(b)
}

// U32 decodes a 4-byte unsigned integer.
func (d *Decoder) U32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return d.order.Uint32(b)
}

// U64 decodes an 8-byte unsigned integer.
func (d *Decoder) U64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return d.order.Uint64(b)
}

// Uint decodes an n-byte unsigned integer, 1 <= n <= 8.
func (d *Decoder) Uint(n int) uint64 {
	if n < 1 || n > 8 {
		if d.err == nil {
			d.err = fmt.Errorf("%w: %d", ErrInvalidSize, n)
		}
		return 0
	}
	b := d.take(n)
	if b == nil {
		return 0
	}
	return Uint(b, d.order)
}

// Offset decodes a file address.
func (d *Decoder) Offset() uint64 { return d.Uint(d.offsetSize) }

// Length decodes a length field.
func (d *Decoder) Length() uint64 { return d.Uint(d.lengthSize) }

// CString decodes a NUL-terminated string and consumes the terminator.
func (d *Decoder) CString() string {
	if d.err != nil {
		return ""
	}
	for i := d.pos; i < len(d.buf); i++ {
		if d.buf[i] == 0 {
			s := string(d.buf[d.pos:i])
			d.pos = i + 1
			return s
		}
	}
	d.fail(d.Len() + 1)
	return ""
}

// Uint decodes an unsigned integer of len(b) bytes (at most 8) in the given order.
func Uint(b []byte, order binary.ByteOrder) uint64 {
	var v uint64
	if order == binary.BigEndian {
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return v
	}
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
