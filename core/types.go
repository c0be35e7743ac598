package core

import "fmt"

// PixelBuffer is an in-memory bitmap in 32-bit BGRA byte order, row-major
// with an explicit stride.  Invariants: Stride >= Width*4 and
// len(Pix) >= Stride*Height.
//
// Ownership follows a single-owner contract: a buffer passed into Encode is
// borrowed read-only for the duration of the call; a buffer returned from
// Decode is freshly allocated and owned by the caller from that point on.
type PixelBuffer struct {
	Width  int
	Height int
	Stride int // bytes per row
	Pix    []byte
}

// NewPixelBuffer allocates a packed BGRA buffer (stride = width*4).
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Stride: width * 4,
		Pix:    make([]byte, width*4*height),
	}
}

// Validate returns an error if the buffer violates its invariants.
func (p *PixelBuffer) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("pixel buffer: invalid dimensions %dx%d", p.Width, p.Height)
	}
	if p.Stride < p.Width*4 {
		return fmt.Errorf("pixel buffer: stride %d < width*4 (%d)", p.Stride, p.Width*4)
	}
	if len(p.Pix) < p.Stride*p.Height {
		return fmt.Errorf("pixel buffer: %d bytes, need %d", len(p.Pix), p.Stride*p.Height)
	}
	return nil
}

// Row returns the y-th row, trimmed to the visible width.
func (p *PixelBuffer) Row(y int) []byte {
	off := y * p.Stride
	return p.Pix[off : off+p.Width*4]
}

// Preset selects a bundle of encoder tuning defaults.  Values follow the
// libwebp WebPPreset ordering; Icon and Text form the icon class, which is
// never edge-filtered.
type Preset int

const (
	PresetDefault Preset = iota
	PresetPicture
	PresetPhoto
	PresetDrawing
	PresetIcon
	PresetText
)

func (p Preset) String() string {
	switch p {
	case PresetDefault:
		return "default"
	case PresetPicture:
		return "picture"
	case PresetPhoto:
		return "photo"
	case PresetDrawing:
		return "drawing"
	case PresetIcon:
		return "icon"
	case PresetText:
		return "text"
	}
	return fmt.Sprintf("preset(%d)", int(p))
}

// IconClass reports whether the preset belongs to the icon class
// (Icon, Text): deblocking filter strength is suppressed for these.
func (p Preset) IconClass() bool { return p >= PresetIcon }

// ImageHint gives the lossless encoder a content-type hint.
type ImageHint int

const (
	HintNone ImageHint = iota
	HintPicture
	HintPhoto
	HintGraph
)

// EncodeOptions carries the user-facing encoding parameters.
// Quality 100 forces lossless mode; the filter fields are ignored there.
type EncodeOptions struct {
	Quality float32 // 0-100
	Preset  Preset
	Method  int // encoding effort 0-6

	// Lossy-only tuning.  A negative value keeps the preset's default.
	TargetSize      int // target output size in bytes, 0 = off
	FilterStrength  int // 0-100
	FilterSharpness int // 0-7
	FilterType      int // 0 simple, 1 strong
	NoiseShaping    int // spatial noise shaping strength 0-100
}

// DefaultEncodeOptions mirrors the host defaults: quality 95, photo preset.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Quality:         95,
		Preset:          PresetPhoto,
		Method:          4,
		FilterStrength:  -1,
		FilterSharpness: -1,
		FilterType:      -1,
		NoiseShaping:    -1,
	}
}

// MetadataBundle groups the optional metadata payloads carried through a
// save.  Any subset may be nil.  The bundle is consumed once per save and
// never retained by the codec layer.
type MetadataBundle struct {
	ICCProfile []byte
	EXIF       []byte
	XMP        []byte
}

// Empty reports whether no metadata is present.
func (m *MetadataBundle) Empty() bool {
	return m == nil || (len(m.ICCProfile) == 0 && len(m.EXIF) == 0 && len(m.XMP) == 0)
}

// Resolution is a pixel density in dots per inch.
type Resolution struct {
	X float64
	Y float64
}

// ProgressFunc receives a completion percentage in [0,100].  It is invoked
// synchronously on the calling goroutine, may be called zero or more times,
// is never called after the operation returns, and reaches 100 only on
// success.  It must not block for unbounded time.
type ProgressFunc func(percent int)

// Report invokes p if non-nil.
func (p ProgressFunc) Report(percent int) {
	if p != nil {
		p(percent)
	}
}
