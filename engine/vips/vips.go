//go:build cgo

// Package vips provides a libvips-backed engine for hosts that already
// link libvips and want its decoder hardening and speed.  It is optional;
// the pure-Go backend in the parent package is the default.
package vips

import (
	"fmt"
	"image"
	"image/draw"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/imagebridge/webpfile/core"
	apperrors "github.com/imagebridge/webpfile/errors"
)

// Config configures the libvips backend.
type Config struct {
	Workers      int
	MaxCacheSize int
	ReportLeaks  bool
}

// Backend is a libvips-powered engine. Safe for concurrent use across
// goroutines.
type Backend struct {
	cfg Config
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg Config) *Backend {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.Workers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

func (*Backend) Name() string { return "vips" }

// ─── Decoder ──────────────────────────────────────────────────────────────────

func (b *Backend) Dimensions(data []byte) (int, int, error) {
	ref, err := govips.NewImageFromBuffer(data)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", apperrors.ErrInvalidImage, err)
	}
	defer ref.Close()
	return ref.Width(), ref.Height(), nil
}

func (b *Backend) Decode(data []byte) (image.Image, error) {
	ref, err := govips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidImage, err)
	}
	defer ref.Close()

	img, err := ref.ToImage(govips.NewDefaultExportParams())
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ─── Encoder ──────────────────────────────────────────────────────────────────

func (b *Backend) Encode(img image.Image, cfg core.EncoderConfig) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, apperrors.Encode(apperrors.EncBadDimension,
			fmt.Errorf("invalid dimensions %dx%d", width, height))
	}

	ref, err := govips.NewImageFromMemory(flattenRGBA(img), width, height, 4)
	if err != nil {
		return nil, apperrors.Encode(apperrors.EncOutOfMemory, err)
	}
	defer ref.Close()

	ep := govips.NewWebpExportParams()
	ep.Quality = int(cfg.Quality)
	ep.Lossless = cfg.Lossless
	if cfg.Method >= 0 && cfg.Method <= 6 {
		ep.ReductionEffort = cfg.Method
	}
	buf, _, err := ref.ExportWebp(ep)
	if err != nil {
		return nil, apperrors.Encode(apperrors.EncBadWrite, err)
	}
	return buf, nil
}

// flattenRGBA produces the packed non-premultiplied RGBA byte layout
// libvips expects from NewImageFromMemory.
func flattenRGBA(img image.Image) []byte {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == nrgba.Bounds().Dx()*4 {
		return nrgba.Pix
	}
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out.Pix
}

// compile-time interface check
var _ core.Engine = (*Backend)(nil)
