package normalize

import (
	"math"
	"testing"

	"github.com/imagebridge/webpfile/core"
	"github.com/imagebridge/webpfile/exif"
)

// makeBuf builds a w x h buffer whose pixels carry a unique label in the
// blue channel: 1, 2, 3, ... in row-major order.
func makeBuf(w, h int) *core.PixelBuffer {
	px := core.NewPixelBuffer(w, h)
	for y := 0; y < h; y++ {
		row := px.Row(y)
		for x := 0; x < w; x++ {
			row[x*4] = byte(y*w + x + 1)
			row[x*4+3] = 0xff
		}
	}
	return px
}

func labels(px *core.PixelBuffer) []byte {
	out := make([]byte, 0, px.Width*px.Height)
	for y := 0; y < px.Height; y++ {
		row := px.Row(y)
		for x := 0; x < px.Width; x++ {
			out = append(out, row[x*4])
		}
	}
	return out
}

func orientationTag(v uint16) exif.Tag {
	return exif.Tag{ID: 0x0112, Type: exif.TypeShort, Count: 1, Value: v}
}

func TestApplyOrientation(t *testing.T) {
	// Source is 2x3:
	//   1 2
	//   3 4
	//   5 6
	cases := []struct {
		orientation uint16
		wantW       int
		wantH       int
		want        []byte
	}{
		{1, 2, 3, []byte{1, 2, 3, 4, 5, 6}},
		{2, 2, 3, []byte{2, 1, 4, 3, 6, 5}},
		{3, 2, 3, []byte{6, 5, 4, 3, 2, 1}},
		{4, 2, 3, []byte{5, 6, 3, 4, 1, 2}},
		{5, 3, 2, []byte{1, 3, 5, 2, 4, 6}},
		{6, 3, 2, []byte{5, 3, 1, 6, 4, 2}},
		{7, 3, 2, []byte{6, 4, 2, 5, 3, 1}},
		{8, 3, 2, []byte{2, 4, 6, 1, 3, 5}},
	}
	for _, tc := range cases {
		px := makeBuf(2, 3)
		tags := map[uint16]exif.Tag{0x0112: orientationTag(tc.orientation)}
		Apply(px, tags)

		if px.Width != tc.wantW || px.Height != tc.wantH {
			t.Fatalf("orientation %d: got %dx%d, want %dx%d",
				tc.orientation, px.Width, px.Height, tc.wantW, tc.wantH)
		}
		got := labels(px)
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("orientation %d: pixels = %v, want %v", tc.orientation, got, tc.want)
			}
		}
		if _, present := tags[0x0112]; present {
			t.Fatalf("orientation %d: tag not consumed", tc.orientation)
		}
	}
}

func TestApplyOrientationOutOfRange(t *testing.T) {
	px := makeBuf(2, 2)
	before := labels(px)
	tags := map[uint16]exif.Tag{0x0112: orientationTag(9)}
	Apply(px, tags)

	got := labels(px)
	for i := range before {
		if got[i] != before[i] {
			t.Fatal("out-of-range orientation modified pixels")
		}
	}
	if _, present := tags[0x0112]; present {
		t.Fatal("out-of-range orientation tag not consumed")
	}
}

func rational(num, den uint32) exif.Tag {
	return exif.Tag{Type: exif.TypeRational, Count: 1, Value: exif.Rational{Num: num, Den: den}}
}

func short(v uint16) exif.Tag {
	return exif.Tag{Type: exif.TypeShort, Count: 1, Value: v}
}

func resolutionTags(x, y exif.Tag, unit uint16) map[uint16]exif.Tag {
	return map[uint16]exif.Tag{
		0x011a: x,
		0x011b: y,
		0x0128: short(unit),
	}
}

func TestApplyResolution(t *testing.T) {
	cases := []struct {
		name  string
		tags  map[uint16]exif.Tag
		wantX float64
		wantY float64
	}{
		{"inch passthrough", resolutionTags(rational(300, 1), rational(300, 1), 2), 300, 300},
		{"centimeters to dpi", resolutionTags(rational(300, 1), rational(300, 1), 3), 762, 762},
		{"short-typed density", resolutionTags(short(72), short(96), 2), 72, 96},
		{"fractional rational", resolutionTags(rational(1441, 10), rational(1441, 10), 2), 144.1, 144.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Apply(makeBuf(1, 1), tc.tags)
			if res == nil {
				t.Fatal("resolution = nil")
			}
			if math.Abs(res.X-tc.wantX) > 1e-9 || math.Abs(res.Y-tc.wantY) > 1e-9 {
				t.Fatalf("resolution = %v/%v, want %v/%v", res.X, res.Y, tc.wantX, tc.wantY)
			}
			for _, id := range []uint16{0x011a, 0x011b, 0x0128} {
				if _, present := tc.tags[id]; present {
					t.Fatalf("tag %#x not consumed", id)
				}
			}
		})
	}
}

func TestApplyResolutionUnset(t *testing.T) {
	cases := []struct {
		name string
		tags map[uint16]exif.Tag
	}{
		{"unknown unit", resolutionTags(rational(300, 1), rational(300, 1), 1)},
		{"zero density", resolutionTags(rational(0, 1), rational(300, 1), 2)},
		{"zero denominator", resolutionTags(rational(300, 0), rational(300, 1), 2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if res := Apply(makeBuf(1, 1), tc.tags); res != nil {
				t.Fatalf("resolution = %v, want nil", res)
			}
			// The trio was complete, so it is consumed regardless.
			if len(tc.tags) != 0 {
				t.Fatalf("%d tags left, want 0", len(tc.tags))
			}
		})
	}
}

func TestApplyResolutionIncompleteTrio(t *testing.T) {
	tags := map[uint16]exif.Tag{
		0x011a: rational(300, 1),
		0x0128: short(2),
	}
	if res := Apply(makeBuf(1, 1), tags); res != nil {
		t.Fatalf("resolution = %v, want nil", res)
	}
	// An incomplete trio stays untouched.
	if len(tags) != 2 {
		t.Fatalf("%d tags left, want 2", len(tags))
	}
}
