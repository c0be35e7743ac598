package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/imagebridge/webpfile/core"
	apperrors "github.com/imagebridge/webpfile/errors"
)

// rawVP8L builds a minimal VP8L bitstream header for the given canvas,
// followed by filler so the payload has a realistic size.
func rawVP8L(width, height int, alpha bool, filler int) []byte {
	bits := uint32(width-1) | uint32(height-1)<<14
	if alpha {
		bits |= 1 << 28
	}
	out := make([]byte, 5+filler)
	out[0] = 0x2f
	binary.LittleEndian.PutUint32(out[1:5], bits)
	for i := 5; i < len(out); i++ {
		out[i] = byte(i)
	}
	return out
}

func TestAssembleSimple(t *testing.T) {
	bs := rawVP8L(4, 3, false, 7) // odd total length, exercises padding
	out, err := Assemble(bs, core.MetadataBundle{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !IsWebP(out) {
		t.Fatal("output is not a WebP container")
	}
	// RIFF header + chunk header + padded payload.
	want := 12 + 8 + len(bs) + len(bs)%2
	if len(out) != want {
		t.Fatalf("file size = %d, want %d", len(out), want)
	}
	if string(out[12:16]) != "VP8L" {
		t.Fatalf("image chunk tag = %q, want VP8L", out[12:16])
	}
	declared := int(binary.LittleEndian.Uint32(out[4:8]))
	if declared != len(out)-8 {
		t.Fatalf("RIFF size field = %d, want %d", declared, len(out)-8)
	}
	for _, name := range []string{NameICCP, NameEXIF, NameXMP} {
		if n := ChunkSize(out, name); n != 0 {
			t.Fatalf("ChunkSize(%q) = %d on a simple file", name, n)
		}
	}
}

func TestAssembleWithMetadata(t *testing.T) {
	bs := rawVP8L(16, 9, false, 10)
	meta := core.MetadataBundle{
		ICCProfile: []byte("fake icc profile"),
		EXIF:       []byte{'I', 'I', 42, 0, 8, 0, 0, 0, 0, 0, 0}, // odd length
		XMP:        []byte("<x:xmpmeta/>"),
	}

	out, err := Assemble(bs, meta)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !IsWebP(out) {
		t.Fatal("output is not a WebP container")
	}
	if string(out[12:16]) != "VP8X" {
		t.Fatalf("first chunk = %q, want VP8X", out[12:16])
	}

	// VP8X payload starts at 20: flags then 24-bit canvas dims minus one.
	flags := out[20]
	if flags != flagICCP|flagEXIF|flagXMP {
		t.Fatalf("VP8X flags = %08b", flags)
	}
	if w := int(out[24]) | int(out[25])<<8 | int(out[26])<<16; w != 15 {
		t.Fatalf("canvas width field = %d, want 15", w)
	}
	if h := int(out[27]) | int(out[28])<<8 | int(out[29])<<16; h != 8 {
		t.Fatalf("canvas height field = %d, want 8", h)
	}

	declared := int(binary.LittleEndian.Uint32(out[4:8]))
	if declared != len(out)-8 {
		t.Fatalf("RIFF size field = %d, want %d", declared, len(out)-8)
	}

	cases := []struct {
		name string
		want []byte
	}{
		{NameICCP, meta.ICCProfile},
		{NameEXIF, meta.EXIF},
		{NameXMP, meta.XMP},
	}
	for _, tc := range cases {
		if n := ChunkSize(out, tc.name); n != len(tc.want) {
			t.Fatalf("ChunkSize(%q) = %d, want %d", tc.name, n, len(tc.want))
		}
		got, ok := Chunk(out, tc.name)
		if !ok || !bytes.Equal(got, tc.want) {
			t.Fatalf("Chunk(%q) = %v, %v", tc.name, got, ok)
		}
		dst := make([]byte, len(tc.want))
		if err := ExtractChunk(out, tc.name, dst); err != nil {
			t.Fatalf("ExtractChunk(%q): %v", tc.name, err)
		}
		if !bytes.Equal(dst, tc.want) {
			t.Fatalf("ExtractChunk(%q) payload mismatch", tc.name)
		}
	}
}

func TestAssembleFromFullFile(t *testing.T) {
	bs := rawVP8L(8, 8, true, 6)
	first, err := Assemble(bs, core.MetadataBundle{XMP: []byte("old")})
	if err != nil {
		t.Fatalf("first Assemble: %v", err)
	}

	// Reassembling a complete file lifts the bitstream and drops the old
	// metadata instead of carrying it over.
	second, err := Assemble(first, core.MetadataBundle{EXIF: []byte("new exif")})
	if err != nil {
		t.Fatalf("second Assemble: %v", err)
	}
	if n := ChunkSize(second, NameXMP); n != 0 {
		t.Fatalf("old XMP survived reassembly (%d bytes)", n)
	}
	got, ok := Chunk(second, NameEXIF)
	if !ok || string(got) != "new exif" {
		t.Fatalf("Chunk(EXIF) = %q, %v", got, ok)
	}
	if second[20]&flagAlpha == 0 {
		t.Fatal("alpha flag lost on reassembly")
	}
}

func TestAssembleIdempotent(t *testing.T) {
	bs := rawVP8L(10, 10, false, 9)
	meta := core.MetadataBundle{
		ICCProfile: []byte("profile"),
		XMP:        []byte("<x/>"),
	}
	first, err := Assemble(bs, meta)
	if err != nil {
		t.Fatalf("first Assemble: %v", err)
	}
	second, err := Assemble(first, meta)
	if err != nil {
		t.Fatalf("second Assemble: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("reassembly with identical metadata is not byte-identical")
	}
}

func TestExtractChunkSizeMismatch(t *testing.T) {
	out, err := Assemble(rawVP8L(2, 2, false, 4), core.MetadataBundle{XMP: []byte("meta")})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	err = ExtractChunk(out, NameXMP, make([]byte, 2))
	if !errors.Is(err, apperrors.ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
	// Absent chunk with an empty destination is the documented no-op.
	if err := ExtractChunk(out, NameICCP, nil); err != nil {
		t.Fatalf("ExtractChunk on absent chunk: %v", err)
	}
	err = ExtractChunk(out, NameICCP, make([]byte, 1))
	if !errors.Is(err, apperrors.ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestChunkOnGarbage(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		[]byte("not a webp at all"),
		append([]byte("RIFF\x10\x00\x00\x00WEBP"), 0xde, 0xad), // truncated body
	} {
		if n := ChunkSize(data, NameEXIF); n != 0 {
			t.Fatalf("ChunkSize = %d on garbage input", n)
		}
		if _, ok := Chunk(data, NameEXIF); ok {
			t.Fatal("Chunk reported success on garbage input")
		}
	}
}

func TestAssembleRejectsGarbage(t *testing.T) {
	_, err := Assemble([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, core.MetadataBundle{})
	if !errors.Is(err, apperrors.ErrInvalidImage) {
		t.Fatalf("err = %v, want ErrInvalidImage", err)
	}
	_, err = Assemble(nil, core.MetadataBundle{})
	if err == nil {
		t.Fatal("Assemble accepted empty input")
	}
}

func TestVP8LDimensionParsing(t *testing.T) {
	bs := rawVP8L(16383, 16383, true, 0)
	w, h, alpha, err := parseVP8LDimensions(bs)
	if err != nil {
		t.Fatalf("parseVP8LDimensions: %v", err)
	}
	if w != 16383 || h != 16383 || !alpha {
		t.Fatalf("got %dx%d alpha=%v", w, h, alpha)
	}
}
