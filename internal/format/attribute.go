package format

import (
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
)

// Attribute is a decoded attribute message. Raw holds the undecoded values.
type Attribute struct {
	Name  string
	Type  *Datatype
	Space *Dataspace
	Raw   []byte
}

// DecodeAttribute decodes an attribute message (versions 1 to 3).
func DecodeAttribute(r *binary.Reader, m Message) (*Attribute, error) {
	d := r.Decoder(m.Data)
	version := d.U8()
	flags := d.U8()
	nameLen := int(d.U16())
	typeLen := int(d.U16())
	spaceLen := int(d.U16())

	switch version {
	case 1, 2:
	case 3:
		d.Skip(1) // name character set
	default:
		return nil, fmt.Errorf("%w: attribute v%d", ErrUnsupportedVersion, version)
	}
	if flags&0x03 != 0 {
		return nil, fmt.Errorf("%w: shared attribute datatype or dataspace", ErrUnsupported)
	}

	pad := func(n int) int {
		if version == 1 {
			return (n + 7) &^ 7
		}
		return n
	}

	a := &Attribute{Name: trimNUL(d.Bytes(pad(nameLen)))}
	typeBytes := d.Bytes(pad(typeLen))
	spaceBytes := d.Bytes(pad(spaceLen))
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding attribute: %w", err)
	}

	var err error
	if a.Type, err = DecodeDatatype(r.Decoder(typeBytes)); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
	}
	if a.Space, err = DecodeDataspace(r.Decoder(spaceBytes)); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
	}

	n := int(a.Space.Elements()) * a.Type.Size
	if a.Raw = d.Bytes(n); d.Err() != nil {
		return nil, fmt.Errorf("attribute %q data: %w", a.Name, d.Err())
	}
	return a, nil
}

// AttributeInfo reports dense attribute storage on an object.
type AttributeInfo struct {
	Heap uint64 // fractal heap address, undefined when attributes are compact
}

// DecodeAttributeInfo decodes an attribute info message.
func DecodeAttributeInfo(d *binary.Decoder) (*AttributeInfo, error) {
	d.U8() // version
	flags := d.U8()
	if flags&0x01 != 0 {
		d.Skip(2) // maximum creation index
	}
	ai := &AttributeInfo{Heap: d.Offset()}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding attribute info: %w", err)
	}
	return ai, nil
}
