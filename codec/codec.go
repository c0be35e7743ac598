// Package codec drives the external compression engine: it marshals BGRA
// pixel buffers across the engine boundary, selects the pixel import mode,
// builds the encoder configuration from user options, and maps engine
// failures onto the module's error taxonomy.
package codec

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/imagebridge/webpfile/core"
	apperrors "github.com/imagebridge/webpfile/errors"
)

// Adapter wraps a core.Engine with the pixel-format and option-mapping
// logic shared by all backends.  Decode and Encode are blocking calls with
// no cancellation; the engine runs to completion or failure.
type Adapter struct {
	engine  core.Engine
	workers int
	log     core.Logger
}

// NewAdapter creates an Adapter.  workers sizes the engine's internal
// worker pool where the backend supports it (0 = backend default).
func NewAdapter(engine core.Engine, workers int, log core.Logger) *Adapter {
	if log == nil {
		log = core.NopLogger{}
	}
	return &Adapter{engine: engine, workers: workers, log: log}
}

// Engine returns the wrapped backend.
func (a *Adapter) Engine() core.Engine { return a.engine }

// Decode decodes a WebP byte stream into a freshly allocated BGRA buffer
// with a packed stride (width*4).  Ownership of the buffer transfers to
// the caller on return.
func (a *Adapter) Decode(data []byte) (*core.PixelBuffer, error) {
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CategoryDecode, "codec.decode",
			fmt.Errorf("%w: empty input", apperrors.ErrInvalidImage))
	}

	width, height, err := a.engine.Dimensions(data)
	if err != nil || width <= 0 || height <= 0 {
		return nil, apperrors.New(apperrors.CategoryDecode, "codec.decode",
			fmt.Errorf("%w: no valid dimensions", apperrors.ErrInvalidImage))
	}

	img, err := a.engine.Decode(data)
	if err != nil {
		return nil, a.mapDecodeError(err)
	}

	px := core.NewPixelBuffer(width, height)
	fillBGRA(px, img)
	a.log.Debug("codec.decode", "engine", a.engine.Name(), "width", width, "height", height)
	return px, nil
}

// mapDecodeError collapses engine decode failures onto the decode
// taxonomy: allocation failures and version mismatches pass through,
// everything else (malformed bitstream, unsupported feature, truncated
// data) is not distinguishable to the caller and reads as invalid image.
func (a *Adapter) mapDecodeError(err error) error {
	if errors.Is(err, apperrors.ErrOutOfMemory) || errors.Is(err, apperrors.ErrVersionMismatch) {
		return apperrors.Wrap(apperrors.CategoryDecode, "codec.decode", err)
	}
	return apperrors.New(apperrors.CategoryDecode, "codec.decode",
		fmt.Errorf("%w: %v", apperrors.ErrInvalidImage, err))
}

// Encode encodes px according to opts and returns a complete simple WebP
// file.  px is borrowed read-only for the duration of the call.
func (a *Adapter) Encode(px *core.PixelBuffer, opts core.EncodeOptions, progress core.ProgressFunc) ([]byte, error) {
	if px == nil || px.Pix == nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "codec.encode",
			apperrors.Encode(apperrors.EncNullParameter, errors.New("nil pixel buffer")))
	}
	if err := px.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "codec.encode",
			apperrors.Encode(apperrors.EncBadDimension, err))
	}
	if opts.Quality < 0 || opts.Quality > 100 {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "codec.encode",
			apperrors.Encode(apperrors.EncInvalidConfiguration,
				fmt.Errorf("quality %.1f out of range", opts.Quality)))
	}

	// One linear pass decides the import mode.  Fully opaque sources are
	// imported without an alpha plane, which lets the encoder skip alpha
	// handling and shrinks lossless output.
	alpha := HasTransparency(px)
	progress.Report(5)

	img := toNRGBA(px, alpha)
	progress.Report(15)

	cfg := a.buildConfig(opts)
	a.log.Debug("codec.encode", "engine", a.engine.Name(),
		"preset", opts.Preset.String(), "quality", opts.Quality,
		"lossless", cfg.Lossless, "alpha", alpha)

	out, err := a.engine.Encode(img, cfg)
	if err != nil {
		if _, ok := apperrors.AsEncodeError(err); !ok {
			err = apperrors.Encode(apperrors.EncBadWrite, err)
		}
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "codec.encode", err)
	}
	progress.Report(100)
	return out, nil
}

// buildConfig resolves the preset+quality pair into an engine
// configuration.  Quality 100 forces lossless mode with a content hint
// selected by preset category; for lossy encodes the optional filter and
// noise-shaping overrides apply, except that icon-class presets are never
// edge-filtered.
func (a *Adapter) buildConfig(opts core.EncodeOptions) core.EncoderConfig {
	cfg := core.EncoderConfig{
		Quality:         opts.Quality,
		Preset:          opts.Preset,
		Method:          opts.Method,
		FilterStrength:  -1,
		FilterSharpness: -1,
		FilterType:      -1,
		NoiseShaping:    -1,
		Workers:         a.workers,
	}

	if opts.Quality == 100 {
		cfg.Lossless = true
		switch opts.Preset {
		case core.PresetPhoto:
			cfg.Hint = core.HintPhoto
		case core.PresetPicture:
			cfg.Hint = core.HintPicture
		case core.PresetDrawing:
			cfg.Hint = core.HintGraph
		}
		return cfg
	}

	if opts.TargetSize > 0 {
		cfg.TargetSize = opts.TargetSize
	}
	if !opts.Preset.IconClass() && opts.FilterStrength >= 0 {
		cfg.FilterStrength = opts.FilterStrength
	}
	if opts.FilterSharpness >= 0 {
		cfg.FilterSharpness = opts.FilterSharpness
	}
	if opts.FilterType >= 0 {
		cfg.FilterType = opts.FilterType
	}
	if opts.NoiseShaping >= 0 {
		cfg.NoiseShaping = opts.NoiseShaping
	}
	return cfg
}

// HasTransparency reports whether any pixel has an alpha below full
// opacity.  Single linear scan over the visible pixels.
func HasTransparency(px *core.PixelBuffer) bool {
	for y := 0; y < px.Height; y++ {
		row := px.Row(y)
		for x := 3; x < len(row); x += 4 {
			if row[x] < 0xff {
				return true
			}
		}
	}
	return false
}

// toNRGBA converts a BGRA buffer to the engine's NRGBA pixel layout.
// When withAlpha is false the source alpha channel is ignored entirely
// and the output is fully opaque.
func toNRGBA(px *core.PixelBuffer, withAlpha bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, px.Width, px.Height))
	for y := 0; y < px.Height; y++ {
		src := px.Row(y)
		dst := img.Pix[y*img.Stride : y*img.Stride+px.Width*4]
		for x := 0; x < px.Width*4; x += 4 {
			dst[x+0] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x+0]
			if withAlpha {
				dst[x+3] = src[x+3]
			} else {
				dst[x+3] = 0xff
			}
		}
	}
	return img
}

// fillBGRA copies a decoded image into the BGRA buffer, converting the
// color model when the engine did not produce NRGBA (lossy decodes often
// come back as YCbCr).
func fillBGRA(px *core.PixelBuffer, img image.Image) {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || img.Bounds().Min != (image.Point{}) {
		converted := image.NewNRGBA(image.Rect(0, 0, px.Width, px.Height))
		draw.Draw(converted, converted.Bounds(), img, img.Bounds().Min, draw.Src)
		nrgba = converted
	}
	rows := px.Height
	if b := nrgba.Bounds(); b.Dy() < rows {
		rows = b.Dy()
	}
	for y := 0; y < rows; y++ {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := px.Row(y)
		n := px.Width * 4
		if len(src) < n {
			n = len(src) / 4 * 4
		}
		for x := 0; x+3 < n; x += 4 {
			dst[x+0] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x+0]
			dst[x+3] = src[x+3]
		}
	}
}
