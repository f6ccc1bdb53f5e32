package format

import (
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
)

// MsgType identifies an object header message.
type MsgType uint16

// Header message types this package understands.
const (
	MsgNil           MsgType = 0x00
	MsgDataspace     MsgType = 0x01
	MsgLinkInfo      MsgType = 0x02
	MsgDatatype      MsgType = 0x03
	MsgFillValueOld  MsgType = 0x04
	MsgFillValue     MsgType = 0x05
	MsgLink          MsgType = 0x06
	MsgExternalFiles MsgType = 0x07
	MsgLayout        MsgType = 0x08
	MsgGroupInfo     MsgType = 0x0A
	MsgFilters       MsgType = 0x0B
	MsgAttribute     MsgType = 0x0C
	MsgContinuation  MsgType = 0x10
	MsgSymbolTable   MsgType = 0x11
	MsgModified      MsgType = 0x12
	MsgAttributeInfo MsgType = 0x15
)

// Message flag bits.
const (
	MsgFlagShared = 0x02
)

// Message is one undecoded header message. Data aliases the block it was
// read from and must not be modified.
type Message struct {
	Type  MsgType
	Flags uint8
	Data  []byte
}

// Header is an object header with its messages in file order, continuation
// blocks already followed.
type Header struct {
	Addr     uint64
	Version  uint8
	Messages []Message
}

// Find returns the first message of type t.
func (h *Header) Find(t MsgType) (Message, bool) {
	for _, m := range h.Messages {
		if m.Type == t {
			return m, true
		}
	}
	return Message{}, false
}

// All returns every message of type t.
func (h *Header) All(t MsgType) []Message {
	var out []Message
	for _, m := range h.Messages {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// maxContinuations bounds the number of continuation blocks followed for one header.
const maxContinuations = 1024

// ReadHeader reads the object header at addr.
func ReadHeader(r *binary.Reader, addr uint64) (*Header, error) {
	prefix, err := r.ReadUpTo(addr, 16)
	if err != nil {
		return nil, err
	}
	if len(prefix) >= 4 && string(prefix[:4]) == "OHDR" {
		return readHeaderV2(r, addr)
	}
	if len(prefix) >= 1 && prefix[0] == 1 {
		return readHeaderV1(r, addr)
	}
	return nil, fmt.Errorf("%w: no object header at %#x", ErrBadSignature, addr)
}

/*
Version 1 object header:

	version(1) reserved(1) nmessages(2) refcount(4) size(4) pad(4)
	messages: type(2) size(2) flags(1) reserved(3) data(size), 8-byte aligned
*/
func readHeaderV1(r *binary.Reader, addr uint64) (*Header, error) {
	d, err := r.DecoderAt(addr, 16)
	if err != nil {
		return nil, fmt.Errorf("object header at %#x: %w", addr, err)
	}
	d.Skip(2)
	count := int(d.U16())
	d.Skip(4)
	size := d.U32()

	h := &Header{Addr: addr, Version: 1, Messages: make([]Message, 0, count)}
	blocks := []span{{addr + 16, uint64(size)}}
	for i := 0; i < len(blocks); i++ {
		if i > maxContinuations {
			return nil, fmt.Errorf("object header at %#x: too many continuation blocks", addr)
		}
		b := blocks[i]
		block, err := r.DecoderAt(b.addr, int(b.size))
		if err != nil {
			return nil, fmt.Errorf("object header at %#x: %w", addr, err)
		}
		for block.Len() >= 8 {
			typ := MsgType(block.U16())
			n := int(block.U16())
			flags := block.U8()
			block.Skip(3)
			data := block.Bytes(n)
			block.Align(8)
			if block.Err() != nil {
				return nil, fmt.Errorf("object header at %#x: %w", addr, block.Err())
			}
			if cont, ok := h.add(r, typ, flags, data); ok {
				blocks = append(blocks, cont)
			}
		}
	}
	return h, nil
}

/*
Version 2 object header:

	"OHDR" version(1) flags(1) [times 16] [attr phase change 4] chunk0 size(1,2,4,8)
	messages: type(1) size(2) flags(1) [creation order(2)] data(size)
	checksum(4)

Continuation blocks start with "OCHK" and end with a checksum.
*/
func readHeaderV2(r *binary.Reader, addr uint64) (*Header, error) {
	pre, err := r.ReadUpTo(addr, 32)
	if err != nil {
		return nil, err
	}
	d := r.Decoder(pre)
	d.Skip(4)
	if v := d.U8(); v != 2 {
		return nil, fmt.Errorf("%w: object header v%d", ErrUnsupportedVersion, v)
	}
	flags := d.U8()
	if flags&0x20 != 0 {
		d.Skip(16)
	}
	if flags&0x10 != 0 {
		d.Skip(4)
	}
	size := d.Uint(1 << (flags & 0x03))
	if d.Err() != nil {
		return nil, fmt.Errorf("object header at %#x: %w", addr, d.Err())
	}
	trackOrder := flags&0x04 != 0

	h := &Header{Addr: addr, Version: 2}
	blocks := []span{{addr + uint64(d.Pos()), size}}
	for i := 0; i < len(blocks); i++ {
		if i > maxContinuations {
			return nil, fmt.Errorf("object header at %#x: too many continuation blocks", addr)
		}
		b := blocks[i]
		start, length := b.addr, b.size
		if i > 0 {
			// Continuation blocks carry their own signature and checksum.
			sig, err := r.ReadAt(b.addr, 4)
			if err != nil {
				return nil, err
			}
			if string(sig) != "OCHK" {
				return nil, fmt.Errorf("%w: continuation block at %#x", ErrBadSignature, b.addr)
			}
			start += 4
			length -= 8
		}
		block, err := r.DecoderAt(start, int(length))
		if err != nil {
			return nil, fmt.Errorf("object header at %#x: %w", addr, err)
		}
		hdrLen := 4
		if trackOrder {
			hdrLen = 6
		}
		for block.Len() >= hdrLen {
			typ := MsgType(block.U8())
			n := int(block.U16())
			mflags := block.U8()
			if trackOrder {
				block.Skip(2)
			}
			data := block.Bytes(n)
			if block.Err() != nil {
				return nil, fmt.Errorf("object header at %#x: %w", addr, block.Err())
			}
			if cont, ok := h.add(r, typ, mflags, data); ok {
				blocks = append(blocks, cont)
			}
		}
	}
	return h, nil
}

type span struct {
	addr, size uint64
}

// add records a message, returning the block to visit when it is a continuation.
func (h *Header) add(r *binary.Reader, typ MsgType, flags uint8, data []byte) (span, bool) {
	switch typ {
	case MsgNil:
		return span{}, false
	case MsgContinuation:
		d := r.Decoder(data)
		s := span{d.Offset(), d.Length()}
		if d.Err() != nil || r.Undefined(s.addr) {
			return span{}, false
		}
		return s, true
	}
	h.Messages = append(h.Messages, Message{Type: typ, Flags: flags, Data: data})
	return span{}, false
}
