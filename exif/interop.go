package exif

// The Interoperability IFD reuses tag ids 1 and 2, which also mean
// GPSLatitudeRef and GPSLatitude in the GPS IFD.  Once tags are flattened
// into a single id-keyed collection that distinction is gone, so consumers
// that hand tags to a general-purpose property store must drop the
// interoperability ones by shape to avoid corrupting GPS data.
const (
	tagInteropIndex   = 0x0001 // Ascii, exactly 4 bytes ("R98\0", "THM\0")
	tagInteropVersion = 0x0002 // Byte/Undefined, exactly 4 bytes ("0100")

	tagRelatedImageFileFormat = 0x1000
	tagRelatedImageWidth      = 0x1001
	tagRelatedImageLength     = 0x1002
)

// IsInterop reports whether t is an Interoperability-IFD tag.
//
// Id 1 is InteroperabilityIndex only when Ascii with a 4-byte payload; any
// other shape is a GPS tag and is retained.  Id 2 is
// InteroperabilityVersion only when Byte or Undefined with a 4-byte
// payload.  Ids 0x1000-0x1002 are unconditionally interoperability tags.
func IsInterop(t Tag) bool {
	switch t.ID {
	case tagInteropIndex:
		return t.Type == TypeAscii && t.Count == 4
	case tagInteropVersion:
		return (t.Type == TypeByte || t.Type == TypeUndefined) && t.Count == 4
	case tagRelatedImageFileFormat, tagRelatedImageWidth, tagRelatedImageLength:
		return true
	}
	return false
}

// StripInterop removes interoperability tags from tags in place and
// returns the number removed.
func StripInterop(tags map[uint16]Tag) int {
	n := 0
	for id, t := range tags {
		if IsInterop(t) {
			delete(tags, id)
			n++
		}
	}
	return n
}
