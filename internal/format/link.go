package format

import (
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
)

// LinkKind is the type of a link.
type LinkKind uint8

// Link kinds.
const (
	LinkHard     LinkKind = 0
	LinkSoft     LinkKind = 1
	LinkExternal LinkKind = 64
)

// Link is a decoded link message.
type Link struct {
	Name   string
	Kind   LinkKind
	Target uint64 // object header address for hard links
	Path   string // target path for soft links, object path for external links
	File   string // external links only
}

// DecodeLink decodes a link message.
func DecodeLink(d *binary.Decoder) (*Link, error) {
	if v := d.U8(); v != 1 {
		return nil, fmt.Errorf("%w: link v%d", ErrUnsupportedVersion, v)
	}
	flags := d.U8()
	l := &Link{Kind: LinkHard}
	if flags&0x08 != 0 {
		l.Kind = LinkKind(d.U8())
	}
	if flags&0x04 != 0 {
		d.Skip(8) // creation order
	}
	if flags&0x10 != 0 {
		d.Skip(1) // character set
	}
	nameLen := int(d.Uint(1 << (flags & 0x03)))
	l.Name = string(d.Bytes(nameLen))

	switch l.Kind {
	case LinkHard:
		l.Target = d.Offset()
	case LinkSoft:
		n := int(d.U16())
		l.Path = string(d.Bytes(n))
	case LinkExternal:
		n := int(d.U16())
		if info := d.Bytes(n); len(info) > 0 {
			ext := binary.NewReader(nil).Decoder(info[1:]) // skip version and flags byte
			l.File = ext.CString()
			l.Path = ext.CString()
		}
	default:
		return nil, fmt.Errorf("%w: link type %d", ErrUnsupported, l.Kind)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding link: %w", err)
	}
	return l, nil
}

// LinkInfo reports where a new-style group keeps its links.
type LinkInfo struct {
	Heap uint64 // fractal heap address, undefined when links are compact
}

// DecodeLinkInfo decodes a link info message.
func DecodeLinkInfo(d *binary.Decoder) (*LinkInfo, error) {
	d.U8() // version
	flags := d.U8()
	if flags&0x01 != 0 {
		d.Skip(8) // maximum creation index
	}
	li := &LinkInfo{Heap: d.Offset()}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding link info: %w", err)
	}
	return li, nil
}

// SymbolTable locates the B-tree and local heap of an old-style group.
type SymbolTable struct {
	BTree uint64
	Heap  uint64
}

// DecodeSymbolTable decodes a symbol table message.
func DecodeSymbolTable(d *binary.Decoder) (*SymbolTable, error) {
	st := &SymbolTable{BTree: d.Offset(), Heap: d.Offset()}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding symbol table: %w", err)
	}
	return st, nil
}
