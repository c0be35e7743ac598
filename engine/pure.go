// Package engine provides the built-in compression backends.  Pure is the
// default: an all-Go VP8/VP8L implementation with no cgo footprint.  A
// libvips-backed alternative lives in the vips subpackage.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/deepteams/webp"

	"github.com/imagebridge/webpfile/core"
	apperrors "github.com/imagebridge/webpfile/errors"
)

// Pure is the default engine.  It is stateless and safe for concurrent use.
type Pure struct{}

// NewPure returns the pure-Go backend.
func NewPure() *Pure { return &Pure{} }

func (*Pure) Name() string { return "pure" }

func (*Pure) Dimensions(data []byte) (int, int, error) {
	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func (*Pure) Decode(data []byte) (image.Image, error) {
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, webp.ErrUnsupported) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrVersionMismatch, err)
		}
		return nil, err
	}
	return img, nil
}

func (*Pure) Encode(img image.Image, cfg core.EncoderConfig) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() > webp.MaxDimension || b.Dy() > webp.MaxDimension {
		return nil, apperrors.Encode(apperrors.EncBadDimension,
			fmt.Errorf("image %dx%d exceeds %d pixel limit", b.Dx(), b.Dy(), webp.MaxDimension))
	}

	opts := webp.OptionsForPreset(mapPreset(cfg.Preset), cfg.Quality)
	opts.Lossless = cfg.Lossless
	if cfg.Method >= 0 {
		opts.Method = cfg.Method
	}
	if cfg.TargetSize > 0 {
		opts.TargetSize = cfg.TargetSize
	}
	if cfg.FilterStrength >= 0 {
		opts.FilterStrength = cfg.FilterStrength
	}
	if cfg.FilterSharpness >= 0 {
		opts.FilterSharpness = cfg.FilterSharpness
	}
	if cfg.FilterType >= 0 {
		opts.FilterType = cfg.FilterType
	}
	if cfg.NoiseShaping >= 0 {
		opts.SNSStrength = cfg.NoiseShaping
	}
	// Photo-class lossy content benefits from the slower, more accurate
	// RGB->YUV conversion.
	if !cfg.Lossless && cfg.Hint == core.HintPhoto {
		opts.UseSharpYUV = true
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, classifyEncodeError(err)
	}
	return buf.Bytes(), nil
}

func mapPreset(p core.Preset) webp.Preset {
	switch p {
	case core.PresetPicture:
		return webp.PresetPicture
	case core.PresetPhoto:
		return webp.PresetPhoto
	case core.PresetDrawing:
		return webp.PresetDrawing
	case core.PresetIcon:
		return webp.PresetIcon
	case core.PresetText:
		return webp.PresetText
	default:
		return webp.PresetDefault
	}
}

// classifyEncodeError maps the backend's textual failures onto status
// codes.  The mapping is best-effort; anything unrecognized reads as a
// write failure.
func classifyEncodeError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid"):
		return apperrors.Encode(apperrors.EncInvalidConfiguration, err)
	case strings.Contains(msg, "dimension") || strings.Contains(msg, "too large"):
		return apperrors.Encode(apperrors.EncBadDimension, err)
	case strings.Contains(msg, "partition"):
		return apperrors.Encode(apperrors.EncPartition0Overflow, err)
	default:
		return apperrors.Encode(apperrors.EncBadWrite, err)
	}
}
