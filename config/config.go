package config

import (
	"errors"
	"fmt"

	"github.com/imagebridge/webpfile/core"
)

// EngineKind selects the compression backend.
type EngineKind string

const (
	EnginePure EngineKind = "pure"
	EngineVips EngineKind = "vips"
)

// Config is the top-level configuration struct.  All fields have safe
// defaults so callers can start with Default() and override only what
// they need.
type Config struct {
	// Engine selection and worker pool sizing.
	Engine  EngineKind
	Workers int // default: backend decides (usually NumCPU)

	// Default encode options applied when a call does not override.
	Quality float32     // 0-100; default 95
	Preset  core.Preset // default Photo
	Method  int         // 0-6 effort; default 4

	// Metadata handling.
	KeepMetadata   bool // embed ICC/EXIF/XMP chunks on save; default true
	StrictMetadata bool // fail loads on malformed EXIF instead of logging

	// Streaming output.
	ChunkSize int // write granularity in bytes; default 64 KiB

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		Engine:       EnginePure,
		Quality:      95,
		Preset:       core.PresetPhoto,
		Method:       4,
		KeepMetadata: true,
		ChunkSize:    64 * 1024,
		LogLevel:     "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.Quality < 0 || c.Quality > 100 {
		return errors.New("config: Quality must be between 0 and 100")
	}
	if c.Method < 0 || c.Method > 6 {
		return errors.New("config: Method must be between 0 and 6")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.Preset < core.PresetDefault || c.Preset > core.PresetText {
		return fmt.Errorf("config: unknown preset %d", int(c.Preset))
	}
	switch c.Engine {
	case EnginePure, EngineVips, "":
	default:
		return fmt.Errorf("config: unknown engine %q", c.Engine)
	}
	return nil
}

// EncodeOptions resolves the configured defaults into per-call options.
func (c Config) EncodeOptions() core.EncodeOptions {
	opts := core.DefaultEncodeOptions()
	opts.Quality = c.Quality
	opts.Preset = c.Preset
	opts.Method = c.Method
	return opts
}
