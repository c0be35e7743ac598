// Package container reads and writes metadata chunks of the WebP RIFF
// container: 4-byte ASCII tag + little-endian length + payload, padded to
// even length, inside an outer RIFF envelope with a total-size field.
//
// Reading is chunk-name based and never fails: an absent chunk or an
// unparseable container is reported as size 0.  Writing assembles a full
// container around an encoded image payload, recomputing all size fields.
package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/image/riff"

	"github.com/imagebridge/webpfile/core"
	apperrors "github.com/imagebridge/webpfile/errors"
)

// Reserved metadata chunk names.  The tag space is fixed by the container
// format and is case and space sensitive: "XMP " pads to 4 bytes with a
// trailing space.
const (
	NameICCP = "ICCP"
	NameEXIF = "EXIF"
	NameXMP  = "XMP "
)

var (
	fccWEBP = riff.FourCC{'W', 'E', 'B', 'P'}

	fourCCVP8  = makeFourCC("VP8 ")
	fourCCVP8L = makeFourCC("VP8L")
	fourCCVP8X = makeFourCC("VP8X")
	fourCCALPH = makeFourCC("ALPH")
	fourCCICCP = makeFourCC(NameICCP)
	fourCCEXIF = makeFourCC(NameEXIF)
	fourCCXMP  = makeFourCC(NameXMP)
)

// VP8X flag bits.
const (
	flagAnimation = 1 << 1
	flagXMP       = 1 << 2
	flagEXIF      = 1 << 3
	flagAlpha     = 1 << 4
	flagICCP      = 1 << 5
)

const (
	riffHeaderSize  = 12 // "RIFF" + size + "WEBP"
	chunkHeaderSize = 8  // FourCC + size
	vp8xChunkSize   = 10
	vp8lMagicByte   = 0x2f
)

func makeFourCC(name string) uint32 {
	return binary.LittleEndian.Uint32([]byte(name))
}

// IsWebP reports whether data starts with a RIFF/WEBP envelope.
func IsWebP(data []byte) bool {
	return len(data) >= riffHeaderSize &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P'
}

// ChunkSize returns the payload size of the first chunk named name, or 0 if
// the chunk is absent or data does not parse as a WebP container.  Absence
// is a normal, silent outcome.
func ChunkSize(data []byte, name string) int {
	n, _, ok := findChunk(data, name)
	if !ok {
		return 0
	}
	return n
}

// ExtractChunk copies the payload of the named chunk into dst.  len(dst)
// must equal the size previously returned by ChunkSize; anything else is a
// caller contract violation reported as ErrSizeMismatch.
func ExtractChunk(data []byte, name string, dst []byte) error {
	size, r, ok := findChunk(data, name)
	if !ok {
		size = 0
	}
	if len(dst) != size {
		return apperrors.New(apperrors.CategoryContainer, "container.extract",
			fmt.Errorf("%w: chunk %q is %d bytes, destination is %d",
				apperrors.ErrSizeMismatch, name, size, len(dst)))
	}
	if size == 0 {
		return nil
	}
	if _, err := io.ReadFull(r, dst); err != nil {
		return apperrors.Wrap(apperrors.CategoryContainer, "container.extract", err)
	}
	return nil
}

// Chunk returns a copy of the named chunk's payload and whether it exists.
func Chunk(data []byte, name string) ([]byte, bool) {
	size, r, ok := findChunk(data, name)
	if !ok {
		return nil, false
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, false
	}
	return out, true
}

// findChunk walks the container with the riff reader and positions at the
// first chunk named name.  Any structural failure reads as "not found".
func findChunk(data []byte, name string) (int, io.Reader, bool) {
	if !IsWebP(data) || len(name) != 4 {
		return 0, nil, false
	}
	want := riff.FourCC{name[0], name[1], name[2], name[3]}
	formType, rr, err := riff.NewReader(bytes.NewReader(data))
	if err != nil || formType != fccWEBP {
		return 0, nil, false
	}
	for {
		chunkID, chunkLen, chunkData, err := rr.Next()
		if err != nil {
			return 0, nil, false
		}
		if chunkID == want {
			return int(chunkLen), chunkData, true
		}
	}
}

// imagePayload is the image part of a container: the VP8/VP8L bitstream and
// an optional standalone ALPH chunk, with the parsed frame geometry.
type imagePayload struct {
	fourCC    uint32
	bitstream []byte
	alpha     []byte
	width     int
	height    int
	hasAlpha  bool
}

// Assemble builds a complete WebP container around image, injecting the
// metadata chunks present in meta.  image may be a complete WebP file (its
// bitstream is lifted out, existing metadata is not carried over) or a raw
// VP8/VP8L bitstream.  All container-level size fields are recomputed.
// A failure aborts the save; nothing partial is produced.
func Assemble(image []byte, meta core.MetadataBundle) ([]byte, error) {
	p, err := extractImagePayload(image)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryContainer, "container.assemble", err)
	}

	if meta.Empty() && p.alpha == nil {
		return assembleSimple(p), nil
	}
	return assembleExtended(p, meta)
}

// extractImagePayload locates the bitstream (and any standalone alpha
// chunk) inside image, accepting both full files and raw bitstreams.
func extractImagePayload(image []byte) (imagePayload, error) {
	var p imagePayload
	if len(image) == 0 {
		return p, apperrors.ErrEmptyInput
	}

	data := image
	if IsWebP(image) {
		rest := image[riffHeaderSize:]
		var found bool
		for len(rest) >= chunkHeaderSize {
			id := binary.LittleEndian.Uint32(rest[0:4])
			size := binary.LittleEndian.Uint32(rest[4:8])
			end := chunkHeaderSize + int(size)
			if end > len(rest) {
				break
			}
			payload := rest[chunkHeaderSize:end]
			switch id {
			case fourCCALPH:
				p.alpha = payload
			case fourCCVP8, fourCCVP8L:
				data = payload
				found = true
			}
			if found {
				break
			}
			// Chunks are padded to even byte boundaries.
			if size%2 != 0 && end < len(rest) {
				end++
			}
			rest = rest[end:]
		}
		if !found {
			return p, fmt.Errorf("%w: no image chunk in container", apperrors.ErrInvalidImage)
		}
	}

	p.bitstream = data
	switch {
	case len(data) >= 5 && data[0] == vp8lMagicByte:
		w, h, alpha, err := parseVP8LDimensions(data)
		if err != nil {
			return p, err
		}
		p.fourCC, p.width, p.height = fourCCVP8L, w, h
		p.hasAlpha = alpha || p.alpha != nil
	default:
		w, h, err := parseVP8Dimensions(data)
		if err != nil {
			return p, err
		}
		p.fourCC, p.width, p.height = fourCCVP8, w, h
		p.hasAlpha = p.alpha != nil
	}
	return p, nil
}

// assembleSimple writes a non-extended file: RIFF header + one image chunk.
func assembleSimple(p imagePayload) []byte {
	padded := len(p.bitstream)
	if padded%2 != 0 {
		padded++
	}
	riffPayload := 4 + chunkHeaderSize + padded

	var buf bytes.Buffer
	buf.Grow(8 + riffPayload)
	writeRIFFHeader(&buf, uint32(riffPayload))
	writeChunk(&buf, p.fourCC, p.bitstream)
	return buf.Bytes()
}

// assembleExtended writes a VP8X file in canonical chunk order:
// VP8X, ICCP, ALPH, VP8/VP8L, EXIF, XMP.
func assembleExtended(p imagePayload, meta core.MetadataBundle) ([]byte, error) {
	if p.width <= 0 || p.height <= 0 {
		return nil, apperrors.New(apperrors.CategoryContainer, "container.assemble",
			fmt.Errorf("%w: cannot determine canvas size", apperrors.ErrInvalidImage))
	}

	var flags byte
	if p.hasAlpha {
		flags |= flagAlpha
	}
	if len(meta.ICCProfile) > 0 {
		flags |= flagICCP
	}
	if len(meta.EXIF) > 0 {
		flags |= flagEXIF
	}
	if len(meta.XMP) > 0 {
		flags |= flagXMP
	}

	riffPayload := uint32(4) // "WEBP"
	riffPayload += chunkHeaderSize + vp8xChunkSize
	if len(meta.ICCProfile) > 0 {
		riffPayload += chunkTotalSize(len(meta.ICCProfile))
	}
	if p.alpha != nil {
		riffPayload += chunkTotalSize(len(p.alpha))
	}
	riffPayload += chunkTotalSize(len(p.bitstream))
	if len(meta.EXIF) > 0 {
		riffPayload += chunkTotalSize(len(meta.EXIF))
	}
	if len(meta.XMP) > 0 {
		riffPayload += chunkTotalSize(len(meta.XMP))
	}

	var buf bytes.Buffer
	buf.Grow(8 + int(riffPayload))
	writeRIFFHeader(&buf, riffPayload)

	vp8x := make([]byte, vp8xChunkSize)
	vp8x[0] = flags
	putLE24(vp8x[4:7], p.width-1)
	putLE24(vp8x[7:10], p.height-1)
	writeChunk(&buf, fourCCVP8X, vp8x)

	if len(meta.ICCProfile) > 0 {
		writeChunk(&buf, fourCCICCP, meta.ICCProfile)
	}
	if p.alpha != nil {
		writeChunk(&buf, fourCCALPH, p.alpha)
	}
	writeChunk(&buf, p.fourCC, p.bitstream)
	if len(meta.EXIF) > 0 {
		writeChunk(&buf, fourCCEXIF, meta.EXIF)
	}
	if len(meta.XMP) > 0 {
		writeChunk(&buf, fourCCXMP, meta.XMP)
	}
	return buf.Bytes(), nil
}

func writeRIFFHeader(buf *bytes.Buffer, riffPayload uint32) {
	hdr := make([]byte, riffHeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], riffPayload)
	copy(hdr[8:12], "WEBP")
	buf.Write(hdr)
}

// writeChunk writes a chunk header + payload + optional padding byte.
func writeChunk(buf *bytes.Buffer, id uint32, data []byte) {
	hdr := make([]byte, chunkHeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:4], id)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(data)))
	buf.Write(hdr)
	buf.Write(data)
	if len(data)%2 != 0 {
		buf.WriteByte(0)
	}
}

// chunkTotalSize returns header + payload + optional padding byte.
func chunkTotalSize(payloadSize int) uint32 {
	total := uint32(chunkHeaderSize + payloadSize)
	if payloadSize%2 != 0 {
		total++
	}
	return total
}

// putLE24 writes a 24-bit little-endian value into buf[0:3].
func putLE24(buf []byte, v int) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
}

// parseVP8Dimensions extracts width/height from a VP8 keyframe header.
func parseVP8Dimensions(data []byte) (int, int, error) {
	if len(data) < 10 {
		return 0, 0, fmt.Errorf("%w: VP8 bitstream truncated", apperrors.ErrInvalidImage)
	}
	// Bytes 3-5 carry the VP8 start code 0x9d 0x01 0x2a.
	if data[3] != 0x9d || data[4] != 0x01 || data[5] != 0x2a {
		return 0, 0, fmt.Errorf("%w: bad VP8 signature", apperrors.ErrInvalidImage)
	}
	width := int(binary.LittleEndian.Uint16(data[6:8])) & 0x3fff
	height := int(binary.LittleEndian.Uint16(data[8:10])) & 0x3fff
	return width, height, nil
}

// parseVP8LDimensions extracts width/height and the alpha bit from a VP8L
// bitstream header.
func parseVP8LDimensions(data []byte) (int, int, bool, error) {
	if len(data) < 5 || data[0] != vp8lMagicByte {
		return 0, 0, false, fmt.Errorf("%w: bad VP8L signature", apperrors.ErrInvalidImage)
	}
	bits := binary.LittleEndian.Uint32(data[1:5])
	width := int(bits&0x3fff) + 1
	height := int((bits>>14)&0x3fff) + 1
	hasAlpha := (bits>>28)&0x1 != 0
	return width, height, hasAlpha, nil
}
