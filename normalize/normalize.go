// Package normalize applies EXIF orientation and resolution semantics to a
// freshly decoded pixel buffer.  The consumed tags are removed from the tag
// collection so they are not re-emitted as disconnected metadata items.
package normalize

import (
	"github.com/imagebridge/webpfile/core"
	"github.com/imagebridge/webpfile/exif"
)

const (
	tagOrientation    = 0x0112
	tagXResolution    = 0x011a
	tagYResolution    = 0x011b
	tagResolutionUnit = 0x0128

	unitInch       = 2
	unitCentimeter = 3

	centimetersPerInch = 2.54
)

// Apply normalizes px against the parsed EXIF tags.
//
// The Orientation tag, when present and non-identity, selects one of the
// eight standard transforms (90-degree rotations combined with a
// horizontal flip); transposed orientations swap width and height.
// XResolution, YResolution and ResolutionUnit are consumed as a group: all
// three must be present to act.  Centimeter values convert to dots per
// inch, inch values pass through, any other unit leaves the resolution
// unset, as do values that are not positive after conversion.
//
// Apply never fails; undecodable tag values degrade to "no change", and
// consumed tags are removed from tags either way.
func Apply(px *core.PixelBuffer, tags map[uint16]exif.Tag) *core.Resolution {
	if px != nil {
		if t, ok := tags[tagOrientation]; ok {
			delete(tags, tagOrientation)
			if o, ok := t.UintValue(); ok {
				orient(px, int(o))
			}
		}
	}
	return resolution(tags)
}

// orient applies the EXIF orientation transform in place or via
// reallocation.  Orientation 1 (and anything out of range) is identity.
func orient(px *core.PixelBuffer, orientation int) {
	switch orientation {
	case 2:
		flipHorizontal(px)
	case 3:
		rotate180(px)
	case 4:
		flipVertical(px)
	case 5:
		remap(px, true, func(w, h, x, y int) (int, int) { return y, x })
	case 6:
		remap(px, true, func(w, h, x, y int) (int, int) { return h - 1 - y, x })
	case 7:
		remap(px, true, func(w, h, x, y int) (int, int) { return h - 1 - y, w - 1 - x })
	case 8:
		remap(px, true, func(w, h, x, y int) (int, int) { return y, w - 1 - x })
	}
}

func flipHorizontal(px *core.PixelBuffer) {
	var tmp [4]byte
	for y := 0; y < px.Height; y++ {
		row := px.Row(y)
		for l, r := 0, (px.Width-1)*4; l < r; l, r = l+4, r-4 {
			copy(tmp[:], row[l:l+4])
			copy(row[l:l+4], row[r:r+4])
			copy(row[r:r+4], tmp[:])
		}
	}
}

func flipVertical(px *core.PixelBuffer) {
	tmp := make([]byte, px.Width*4)
	for t, b := 0, px.Height-1; t < b; t, b = t+1, b-1 {
		top, bot := px.Row(t), px.Row(b)
		copy(tmp, top)
		copy(top, bot)
		copy(bot, tmp)
	}
}

func rotate180(px *core.PixelBuffer) {
	flipHorizontal(px)
	flipVertical(px)
}

// remap rebuilds the buffer, sending each source pixel (x, y) to the
// destination computed by dst.  When swap is true the output dimensions
// are the transposed ones.
func remap(px *core.PixelBuffer, swap bool, dst func(w, h, x, y int) (int, int)) {
	w, h := px.Width, px.Height
	ow, oh := w, h
	if swap {
		ow, oh = h, w
	}
	out := core.NewPixelBuffer(ow, oh)
	for y := 0; y < h; y++ {
		row := px.Row(y)
		for x := 0; x < w; x++ {
			dx, dy := dst(w, h, x, y)
			copy(out.Pix[dy*out.Stride+dx*4:], row[x*4:x*4+4])
		}
	}
	*px = *out
}

// resolution extracts the resolution trio.  The three tags are removed
// only when all are present, i.e. when they were consumed.
func resolution(tags map[uint16]exif.Tag) *core.Resolution {
	xt, okX := tags[tagXResolution]
	yt, okY := tags[tagYResolution]
	ut, okU := tags[tagResolutionUnit]
	if !okX || !okY || !okU {
		return nil
	}
	delete(tags, tagXResolution)
	delete(tags, tagYResolution)
	delete(tags, tagResolutionUnit)

	x, okX := density(xt)
	y, okY := density(yt)
	unit, okU := ut.UintValue()
	if !okX || !okY || !okU {
		return nil
	}

	switch unit {
	case unitInch:
		// Already dots per inch.
	case unitCentimeter:
		x *= centimetersPerInch
		y *= centimetersPerInch
	default:
		// Unknown unit: leave the resolution unset.
		return nil
	}

	if x <= 0 || y <= 0 {
		return nil
	}
	return &core.Resolution{X: x, Y: y}
}

// density decodes a resolution value stored as a rational or a short.
func density(t exif.Tag) (float64, bool) {
	if r, ok := t.RationalValue(); ok {
		return r.Float()
	}
	if v, ok := t.UintValue(); ok {
		return float64(v), true
	}
	return 0, false
}
