// Package webpfile converts between in-memory BGRA pixel buffers and WebP
// container byte streams.  Loads decode the bitstream, surface the ICC,
// EXIF, and XMP payloads verbatim, and normalize the pixels per the EXIF
// orientation and resolution tags.  Saves encode the pixels and re-embed
// the metadata chunks, streaming the finished file to a length-declared
// sink in fixed-size chunks.
package webpfile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/deepteams/webp"

	"github.com/imagebridge/webpfile/codec"
	"github.com/imagebridge/webpfile/config"
	"github.com/imagebridge/webpfile/container"
	"github.com/imagebridge/webpfile/core"
	"github.com/imagebridge/webpfile/engine"
	apperrors "github.com/imagebridge/webpfile/errors"
	"github.com/imagebridge/webpfile/exif"
	"github.com/imagebridge/webpfile/hooks"
	"github.com/imagebridge/webpfile/normalize"
	"github.com/imagebridge/webpfile/utils"
)

// Codec is the top-level entry point.  Safe for concurrent use.
type Codec struct {
	cfg     config.Config
	adapter *codec.Adapter
	log     core.Logger
}

// New creates a Codec with the built-in pure-Go engine.  For the libvips
// backend construct engine/vips.Backend yourself and pass it to
// NewWithEngine; that keeps cgo out of the default build.
func New(cfg config.Config) (*Codec, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "webpfile.new", err)
	}
	if cfg.Engine == config.EngineVips {
		return nil, apperrors.New(apperrors.CategoryConfig, "webpfile.new",
			fmt.Errorf("vips engine must be constructed explicitly; use NewWithEngine"))
	}
	return NewWithEngine(cfg, engine.NewPure())
}

// NewWithEngine creates a Codec around a caller-supplied engine.
func NewWithEngine(cfg config.Config, eng core.Engine) (*Codec, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "webpfile.new", err)
	}
	log := hooks.NewDefaultLogger(cfg.LogLevel)
	return &Codec{
		cfg:     cfg,
		adapter: codec.NewAdapter(eng, cfg.Workers, log),
		log:     log,
	}, nil
}

// SetLogger replaces the logger.  Must be called before the codec is
// shared across goroutines.
func (c *Codec) SetLogger(log core.Logger) {
	if log == nil {
		log = core.NopLogger{}
	}
	c.log = log
	c.adapter = codec.NewAdapter(c.adapter.Engine(), c.cfg.Workers, log)
}

// LoadResult carries everything a load produces.  Metadata fields are nil
// when the file carries no corresponding chunk.
type LoadResult struct {
	// Pixels is the decoded bitmap, already reoriented per the EXIF
	// orientation tag.
	Pixels *core.PixelBuffer

	// ICCProfile and XMP are the raw chunk payloads, byte-for-byte.
	ICCProfile []byte
	XMP        []byte

	// Exif is the parsed tag map with the orientation, resolution, and
	// interoperability entries already consumed.  Nil when the file has
	// no EXIF chunk; possibly empty when the chunk was unparseable.
	Exif map[uint16]exif.Tag

	// Resolution is the pixel density extracted from the EXIF resolution
	// tags, nil when absent or not expressible in DPI.
	Resolution *core.Resolution
}

// Load decodes a complete WebP file from memory.
func (c *Codec) Load(data []byte) (*LoadResult, error) {
	px, err := c.adapter.Decode(data)
	if err != nil {
		return nil, err
	}
	res := &LoadResult{Pixels: px}

	if icc, ok := container.Chunk(data, container.NameICCP); ok {
		res.ICCProfile = utils.CloneBytes(icc)
	}
	if xmp, ok := container.Chunk(data, container.NameXMP); ok {
		res.XMP = utils.CloneBytes(xmp)
	}

	if raw, ok := container.Chunk(data, container.NameEXIF); ok {
		tags, perr := exif.Parse(raw)
		if perr != nil {
			if c.cfg.StrictMetadata {
				return nil, apperrors.Wrap(apperrors.CategoryMetadata, "webpfile.load.exif", perr)
			}
			// A broken EXIF block never fails the load; the pixels are
			// what the caller came for.
			c.log.Warn("webpfile.load.exif", "error", perr.Error())
		}
		res.Resolution = normalize.Apply(px, tags)
		exif.StripInterop(tags)
		res.Exif = tags
	}
	return res, nil
}

// LoadFrom drains r and decodes it as a WebP file.
func (c *Codec) LoadFrom(r io.Reader) (*LoadResult, error) {
	buf, err := utils.DrainReader(r, 32*1024)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webpfile.load.drain", err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return c.Load(data)
}

// Save encodes px per opts, embeds meta when the codec keeps metadata, and
// streams the finished file to sink.  Encoding occupies the 0-85 progress
// band, container assembly lands at 90, and streaming fills the rest;
// progress reaches 100 only when every byte is written.
func (c *Codec) Save(sink core.Sink, px *core.PixelBuffer, opts core.EncodeOptions, meta *core.MetadataBundle, progress core.ProgressFunc) error {
	if sink == nil {
		return apperrors.Wrap(apperrors.CategoryContainer, "webpfile.save", apperrors.ErrNilSink)
	}

	encoded, err := c.adapter.Encode(px, opts, hooks.Scale(progress, 0, 85))
	if err != nil {
		return err
	}

	out := encoded
	if c.cfg.KeepMetadata && !meta.Empty() {
		out, err = container.Assemble(encoded, *meta)
		if err != nil {
			return err
		}
	}
	progress.Report(90)

	c.log.Debug("webpfile.save", "bytes", len(out),
		"quality", opts.Quality, "preset", opts.Preset.String())
	return utils.StreamTo(sink, out, c.cfg.ChunkSize, hooks.Scale(progress, 90, 100))
}

// SaveBytes is Save into memory.
func (c *Codec) SaveBytes(px *core.PixelBuffer, opts core.EncodeOptions, meta *core.MetadataBundle, progress core.ProgressFunc) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Save(utils.NewSink(&buf), px, opts, meta, progress); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeOptions returns the configured per-call defaults.
func (c *Codec) EncodeOptions() core.EncodeOptions { return c.cfg.EncodeOptions() }

// IsWebP reports whether data starts with a WebP RIFF signature.
func IsWebP(data []byte) bool { return container.IsWebP(data) }

// FileInfo summarizes a WebP file without decoding pixel data.
type FileInfo struct {
	Width    int
	Height   int
	HasAlpha bool
	Lossless bool
}

// Inspect probes data for its basic properties.
func Inspect(data []byte) (*FileInfo, error) {
	feat, err := webp.GetFeatures(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.New(apperrors.CategoryDecode, "webpfile.inspect",
			fmt.Errorf("%w: %v", apperrors.ErrInvalidImage, err))
	}
	return &FileInfo{
		Width:    feat.Width,
		Height:   feat.Height,
		HasAlpha: feat.HasAlpha,
		Lossless: feat.Format == "lossless",
	}, nil
}

// GetChunkSize reports the payload size of the named metadata chunk
// ("ICCP", "EXIF", "XMP ") in data, or 0 when absent.
func GetChunkSize(data []byte, name string) int {
	return container.ChunkSize(data, name)
}

// ExtractChunk copies the named chunk's payload into dst, whose length
// must equal GetChunkSize's answer.
func ExtractChunk(data []byte, name string, dst []byte) error {
	return container.ExtractChunk(data, name, dst)
}
