package core

import (
	"image"
	"io"
)

// Engine is the external compression capability: it turns pixels into a
// complete WebP byte stream and back.  Implementations live in engine/.
//
// Engines are invoked synchronously and run to completion; there is no
// cancellation once an encode starts.  An engine may use an internal worker
// pool sized by EncoderConfig.Workers where the backend supports it.
type Engine interface {
	// Name identifies the backend in logs.
	Name() string
	// Dimensions probes the byte stream for its pixel dimensions without
	// decoding the image.
	Dimensions(data []byte) (width, height int, err error)
	// Decode decodes a complete WebP byte stream.
	Decode(data []byte) (image.Image, error)
	// Encode encodes img according to cfg and returns a complete simple
	// WebP file (no metadata chunks).
	Encode(img image.Image, cfg EncoderConfig) ([]byte, error)
}

// EncoderConfig is the resolved configuration handed across the engine
// boundary.  It is built by the codec adapter from EncodeOptions; engines
// apply the fields they can express and ignore the rest (the pure-Go
// backend has no image-hint knob, libvips has no preset knob).
type EncoderConfig struct {
	Quality  float32
	Lossless bool
	Hint     ImageHint
	Preset   Preset
	Method   int

	// Lossy tuning; negative values mean "backend default".
	TargetSize      int
	FilterStrength  int
	FilterSharpness int
	FilterType      int
	NoiseShaping    int

	// Workers sizes the backend's internal worker pool (0 = backend default).
	Workers int
}

// Sink is the streaming output target for an encoded file.  SetLength is
// called exactly once, before any write, with the total byte count so
// file-backed sinks can pre-allocate.
type Sink interface {
	SetLength(total int64) error
	io.Writer
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// NopLogger discards all log output.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
