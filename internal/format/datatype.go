package format

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-inovesa/internal/binary"
)

// Class is a datatype class.
type Class uint8

// Datatype classes.
const (
	ClassFixed     Class = 0
	ClassFloat     Class = 1
	ClassTime      Class = 2
	ClassString    Class = 3
	ClassBitfield  Class = 4
	ClassOpaque    Class = 5
	ClassCompound  Class = 6
	ClassReference Class = 7
	ClassEnum      Class = 8
	ClassVarLen    Class = 9
	ClassArray     Class = 10
)

func (c Class) String() string {
	names := [...]string{"integer", "float", "time", "string", "bitfield", "opaque",
		"compound", "reference", "enum", "variable-length", "array"}
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Datatype is a decoded datatype message. Only the properties needed to
// read numbers and strings are kept; other classes carry Class and Size.
type Datatype struct {
	Class  Class
	Size   int
	Order  binary.ByteOrder
	Signed bool

	// Variable-length types.
	VarString bool
	Base      *Datatype

	// Enum and array types.
	ArrayDims []uint32
}

// DecodeDatatype decodes a datatype message.
func DecodeDatatype(d *binpkg.Decoder) (*Datatype, error) {
	classVersion := d.U8()
	bits := [3]uint8{d.U8(), d.U8(), d.U8()}
	size := d.U32()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding datatype: %w", err)
	}

	t := &Datatype{
		Class: Class(classVersion & 0x0F),
		Size:  int(size),
		Order: binary.LittleEndian,
	}
	version := classVersion >> 4

	switch t.Class {
	case ClassFixed, ClassBitfield:
		if bits[0]&0x01 != 0 {
			t.Order = binary.BigEndian
		}
		t.Signed = bits[0]&0x08 != 0
		d.Skip(4) // bit offset, precision
	case ClassFloat:
		if bits[0]&0x01 != 0 {
			t.Order = binary.BigEndian
		}
		d.Skip(12) // bit layout
	case ClassVarLen:
		t.VarString = bits[0]&0x0F == 1
		base, err := DecodeDatatype(d)
		if err != nil {
			return nil, err
		}
		t.Base = base
	case ClassEnum:
		base, err := DecodeDatatype(d)
		if err != nil {
			return nil, err
		}
		t.Base = base
		t.Order, t.Signed = base.Order, base.Signed
		// Member names and values follow; they are not needed to read the
		// underlying integers.
	case ClassArray:
		rank := int(d.U8())
		if version < 3 {
			d.Skip(3)
		}
		t.ArrayDims = make([]uint32, rank)
		for i := range t.ArrayDims {
			t.ArrayDims[i] = d.U32()
		}
		if version < 3 {
			d.Skip(4 * rank) // permutation indices
		}
		base, err := DecodeDatatype(d)
		if err != nil {
			return nil, err
		}
		t.Base = base
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("decoding %s datatype: %w", t.Class, err)
	}
	return t, nil
}

// Numeric reports whether values of t can be converted to float64.
func (t *Datatype) Numeric() bool {
	switch t.Class {
	case ClassFixed, ClassFloat, ClassEnum:
		return true
	}
	return false
}

// Text reports whether values of t are strings.
func (t *Datatype) Text() bool {
	return t.Class == ClassString || (t.Class == ClassVarLen && t.VarString)
}
