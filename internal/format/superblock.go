package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
)

// Signature is the 8-byte HDF5 format signature.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

var (
	// ErrNoSignature is returned when no superblock signature is found.
	ErrNoSignature = errors.New("not an HDF5 file: signature not found")

	// ErrUnsupportedVersion is returned for structure versions this package cannot read.
	ErrUnsupportedVersion = errors.New("unsupported format version")

	// ErrBadSignature is returned when a structure does not carry its expected signature.
	ErrBadSignature = errors.New("bad structure signature")
)

// Superblock holds the file-level parameters needed to navigate the file.
type Superblock struct {
	Version    uint8
	OffsetSize int
	LengthSize int
	Base       uint64
	EOF        uint64
	Root       uint64 // root group object header address

	// Cached symbol table of the root group (version 0 and 1 only).
	RootBTree uint64
	RootHeap  uint64
}

// FindSuperblock searches for the superblock at offsets 0, 512, 1024, ...
// as the format allows for a user block in front of it.
func FindSuperblock(ra io.ReaderAt) (*Superblock, int64, error) {
	sig := make([]byte, len(Signature))
	for off := int64(0); off < 1<<30; off = nextSearchOffset(off) {
		n, err := ra.ReadAt(sig, off)
		if n < len(sig) {
			if err == nil || errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, err
		}
		if bytes.Equal(sig, Signature) {
			sb, err := readSuperblock(ra, off)
			return sb, off, err
		}
	}
	return nil, 0, ErrNoSignature
}

func nextSearchOffset(off int64) int64 {
	if off == 0 {
		return 512
	}
	return off * 2
}

func readSuperblock(ra io.ReaderAt, at int64) (*Superblock, error) {
	// 128 bytes covers every superblock version with 8-byte fields.
	buf := make([]byte, 128)
	n, err := ra.ReadAt(buf, at)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	buf = buf[:n]
	if len(buf) < 9 {
		return nil, fmt.Errorf("superblock truncated: %w", io.ErrUnexpectedEOF)
	}

	switch v := buf[8]; v {
	case 0, 1:
		return decodeSuperblockV0(buf, at)
	case 2, 3:
		return decodeSuperblockV2(buf, at)
	default:
		return nil, fmt.Errorf("%w: superblock version %d", ErrUnsupportedVersion, v)
	}
}

func decodeSuperblockV0(buf []byte, at int64) (*Superblock, error) {
	if len(buf) < 24 {
		return nil, fmt.Errorf("superblock truncated: %w", io.ErrUnexpectedEOF)
	}
	sb := &Superblock{
		Version:    buf[8],
		OffsetSize: int(buf[13]),
		LengthSize: int(buf[14]),
	}

	r, err := binary.NewReader(nil).Configure(0, sb.OffsetSize, sb.LengthSize)
	if err != nil {
		return nil, err
	}
	d := r.Decoder(buf)
	d.Skip(24) // signature, versions, sizes, group K values, flags
	if sb.Version == 1 {
		d.Skip(4) // indexed storage K, reserved
	}
	sb.Base = d.Offset()
	d.Offset() // free-space info
	sb.EOF = d.Offset()
	d.Offset() // driver info block

	// Root group symbol table entry.
	d.Offset() // link name offset
	sb.Root = d.Offset()
	cacheType := d.U32()
	d.Skip(4)
	if cacheType == 1 {
		sb.RootBTree = d.Offset()
		sb.RootHeap = d.Offset()
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding superblock v%d: %w", sb.Version, err)
	}
	sb.Base = adjustBase(sb.Base, at)
	return sb, nil
}

func decodeSuperblockV2(buf []byte, at int64) (*Superblock, error) {
	if len(buf) < 12 {
		return nil, fmt.Errorf("superblock truncated: %w", io.ErrUnexpectedEOF)
	}
	sb := &Superblock{
		Version:    buf[8],
		OffsetSize: int(buf[9]),
		LengthSize: int(buf[10]),
	}

	r, err := binary.NewReader(nil).Configure(0, sb.OffsetSize, sb.LengthSize)
	if err != nil {
		return nil, err
	}
	d := r.Decoder(buf)
	d.Skip(12) // signature, version, sizes, flags
	sb.Base = d.Offset()
	d.Offset() // superblock extension
	sb.EOF = d.Offset()
	sb.Root = d.Offset()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding superblock v%d: %w", sb.Version, err)
	}
	sb.Base = adjustBase(sb.Base, at)
	return sb, nil
}

// adjustBase accounts for a user block: a base address of zero in a file
// whose superblock is not at offset zero means "relative to the superblock".
func adjustBase(base uint64, at int64) uint64 {
	if base == 0 && at > 0 {
		return uint64(at)
	}
	return base
}
