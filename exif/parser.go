package exif

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	byteOrderLittle = 0x4949 // "II"
	byteOrderBig    = 0x4d4d // "MM"
	tiffMagic       = 42

	// Sub-IFD pointer tags followed during the walk.
	tagExifIFD    = 0x8769
	tagGPSIFD     = 0x8825
	tagInteropIFD = 0xa005
)

// maxIFDs bounds the number of directories visited so that a blob with a
// pointer cycle or a long IFD chain cannot run away.
const maxIFDs = 16

// maxTagCount matches the per-entry count cap used when skipping
// implausible entries.
const maxTagCount = 0x10000

// Parse decodes an EXIF blob into a mapping from tag id to record.  The
// walk covers IFD0, the chained thumbnail IFD, and the Exif/GPS/Interop
// sub-IFDs, flattened into one collection; for duplicate ids the first
// occurrence wins, so IFD0 values shadow thumbnail values.
//
// The returned map is always non-nil.  A non-nil error describes the first
// structural problem encountered and is diagnostic only: the map still
// holds every tag decoded before the problem.
func Parse(blob []byte) (map[uint16]Tag, error) {
	tags := make(map[uint16]Tag)
	if len(blob) < 8 {
		return tags, fmt.Errorf("exif: blob too short (%d bytes)", len(blob))
	}

	var bo binary.ByteOrder
	switch binary.BigEndian.Uint16(blob[0:2]) {
	case byteOrderLittle:
		bo = binary.LittleEndian
	case byteOrderBig:
		bo = binary.BigEndian
	default:
		return tags, fmt.Errorf("exif: unrecognized byte order marker %x", blob[0:2])
	}
	if bo.Uint16(blob[2:4]) != tiffMagic {
		return tags, fmt.Errorf("exif: bad TIFF magic")
	}

	p := &parser{blob: blob, bo: bo, tags: tags, visited: make(map[uint32]bool)}
	err := p.walk(bo.Uint32(blob[4:8]))
	return tags, err
}

type parser struct {
	blob    []byte
	bo      binary.ByteOrder
	tags    map[uint16]Tag
	visited map[uint32]bool
	ifds    int
}

// walk decodes the IFD at offset and everything reachable from it: the
// next-IFD chain and any sub-IFD pointers among the entries.
func (p *parser) walk(offset uint32) error {
	pending := []uint32{offset}
	for len(pending) > 0 {
		off := pending[0]
		pending = pending[1:]

		if off == 0 || p.visited[off] {
			continue
		}
		p.visited[off] = true
		if p.ifds++; p.ifds > maxIFDs {
			return fmt.Errorf("exif: too many IFDs")
		}

		next, subs, err := p.decodeIFD(int(off))
		if err != nil {
			return err
		}
		pending = append(pending, subs...)
		if next != 0 {
			pending = append(pending, next)
		}
	}
	return nil
}

// decodeIFD decodes one directory: a 2-byte entry count, count 12-byte
// entries, and a trailing 4-byte offset to the next IFD in the chain.
func (p *parser) decodeIFD(off int) (next uint32, subs []uint32, err error) {
	if off < 0 || off+2 > len(p.blob) {
		return 0, nil, fmt.Errorf("exif: IFD offset %d out of range", off)
	}
	count := int(p.bo.Uint16(p.blob[off : off+2]))
	entries := off + 2
	if entries+count*12+4 > len(p.blob) {
		// Decode the entries that do fit; the directory is truncated.
		count = (len(p.blob) - entries) / 12
		err = fmt.Errorf("exif: truncated IFD at offset %d", off)
	}

	for i := 0; i < count; i++ {
		sub := p.decodeEntry(entries + i*12)
		if sub != 0 {
			subs = append(subs, sub)
		}
	}

	if err == nil {
		next = p.bo.Uint32(p.blob[entries+count*12 : entries+count*12+4])
	}
	return next, subs, err
}

// decodeEntry decodes the 12-byte entry at off into the tag map.  It
// returns a sub-IFD offset when the entry is an IFD pointer, else 0.
// Entries that fail to decode are skipped, never fatal.
func (p *parser) decodeEntry(off int) (subIFD uint32) {
	id := p.bo.Uint16(p.blob[off : off+2])
	typ := Type(p.bo.Uint16(p.blob[off+2 : off+4]))
	count := p.bo.Uint32(p.blob[off+4 : off+8])

	elemSize := typ.Size()
	if elemSize == 0 || count > maxTagCount {
		// Unknown type or implausible count: tolerate and skip.
		return 0
	}
	valLen := int(elemSize * count)

	var raw []byte
	if valLen <= 4 {
		raw = p.blob[off+8 : off+8+valLen]
	} else {
		valOff := int(p.bo.Uint32(p.blob[off+8 : off+12]))
		if valOff < 0 || valOff+valLen > len(p.blob) {
			return 0
		}
		raw = p.blob[valOff : valOff+valLen]
	}

	if id == tagExifIFD || id == tagGPSIFD || id == tagInteropIFD {
		if typ == TypeLong && count == 1 {
			return p.bo.Uint32(raw)
		}
		return 0
	}

	if _, dup := p.tags[id]; dup {
		// Duplicate across IFDs: first occurrence wins.
		return 0
	}

	rawCopy := make([]byte, len(raw))
	copy(rawCopy, raw)
	p.tags[id] = Tag{
		ID:    id,
		Type:  typ,
		Count: count,
		Raw:   rawCopy,
		Value: p.decodeValue(typ, count, rawCopy),
	}
	return 0
}

// decodeValue converts raw bytes into the decoded representation.
func (p *parser) decodeValue(typ Type, count uint32, raw []byte) any {
	switch typ {
	case TypeAscii:
		if n := len(raw); n > 0 && raw[n-1] == 0 {
			raw = raw[:n-1]
		}
		return string(raw)
	case TypeByte, TypeUndefined, TypeSByte:
		return raw
	}

	if count == 1 {
		return p.decodeElem(typ, raw)
	}
	vals := make([]any, 0, count)
	size := int(typ.Size())
	for i := 0; i < int(count); i++ {
		vals = append(vals, p.decodeElem(typ, raw[i*size:(i+1)*size]))
	}
	return vals
}

func (p *parser) decodeElem(typ Type, raw []byte) any {
	switch typ {
	case TypeShort:
		return p.bo.Uint16(raw)
	case TypeLong:
		return p.bo.Uint32(raw)
	case TypeSShort:
		return int16(p.bo.Uint16(raw))
	case TypeSLong:
		return int32(p.bo.Uint32(raw))
	case TypeRational:
		return Rational{Num: p.bo.Uint32(raw[0:4]), Den: p.bo.Uint32(raw[4:8])}
	case TypeSRational:
		return SRational{Num: int32(p.bo.Uint32(raw[0:4])), Den: int32(p.bo.Uint32(raw[4:8]))}
	case TypeFloat:
		return math.Float32frombits(p.bo.Uint32(raw))
	case TypeDouble:
		return math.Float64frombits(p.bo.Uint64(raw))
	}
	return raw
}
