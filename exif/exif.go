// Package exif parses raw EXIF IFD blobs (the payload of a WebP EXIF
// chunk, no JPEG APP1 wrapper) into a flat collection of tag records.
//
// Parsing is best-effort by design: metadata loss must never block an
// image load, so a structurally corrupt blob yields an empty collection
// and individual undecodable tags are skipped.
package exif

import "fmt"

// Type represents the basic TIFF tag data types.
type Type uint16

const (
	TypeByte      Type = 1
	TypeAscii     Type = 2
	TypeShort     Type = 3
	TypeLong      Type = 4
	TypeRational  Type = 5
	TypeSByte     Type = 6
	TypeUndefined Type = 7
	TypeSShort    Type = 8
	TypeSLong     Type = 9
	TypeSRational Type = 10
	TypeFloat     Type = 11
	TypeDouble    Type = 12
)

// typeSizes holds the size in bytes of one element of each type.
var typeSizes = map[Type]uint32{
	TypeByte:      1,
	TypeAscii:     1,
	TypeShort:     2,
	TypeLong:      4,
	TypeRational:  8,
	TypeSByte:     1,
	TypeUndefined: 1,
	TypeSShort:    2,
	TypeSLong:     4,
	TypeSRational: 8,
	TypeFloat:     4,
	TypeDouble:    8,
}

// Size returns the byte size of one element, or 0 for unknown types.
func (t Type) Size() uint32 { return typeSizes[t] }

func (t Type) String() string {
	switch t {
	case TypeByte:
		return "Byte"
	case TypeAscii:
		return "Ascii"
	case TypeShort:
		return "Short"
	case TypeLong:
		return "Long"
	case TypeRational:
		return "Rational"
	case TypeSByte:
		return "SByte"
	case TypeUndefined:
		return "Undefined"
	case TypeSShort:
		return "SShort"
	case TypeSLong:
		return "SLong"
	case TypeSRational:
		return "SRational"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	}
	return fmt.Sprintf("Type(%d)", uint16(t))
}

// Rational is an unsigned rational: a pair of 32-bit integers.
type Rational struct {
	Num uint32
	Den uint32
}

// Float returns the quotient, or false when the denominator is zero.
func (r Rational) Float() (float64, bool) {
	if r.Den == 0 {
		return 0, false
	}
	return float64(r.Num) / float64(r.Den), true
}

// SRational is a signed rational.
type SRational struct {
	Num int32
	Den int32
}

// Tag is a single parsed IFD entry.  Raw holds the value bytes as stored;
// Value holds the decoded representation (string for Ascii, uint16/uint32
// for single Short/Long, Rational for single Rational, []byte for
// Byte/Undefined, slices for multi-element values).
type Tag struct {
	ID    uint16
	Type  Type
	Count uint32
	Raw   []byte
	Value any
}

// UintValue returns a single Short or Long value widened to uint32.
func (t Tag) UintValue() (uint32, bool) {
	switch v := t.Value.(type) {
	case uint16:
		return uint32(v), true
	case uint32:
		return v, true
	}
	return 0, false
}

// RationalValue returns a single Rational value.
func (t Tag) RationalValue() (Rational, bool) {
	r, ok := t.Value.(Rational)
	return r, ok
}

// StringValue returns an Ascii value.
func (t Tag) StringValue() (string, bool) {
	s, ok := t.Value.(string)
	return s, ok
}
