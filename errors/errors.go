package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and logging.
type Category string

const (
	CategoryDecode    Category = "decode"
	CategoryEncode    Category = "encode"
	CategoryContainer Category = "container"
	CategoryMetadata  Category = "metadata"
	CategoryConfig    Category = "config"
)

// CodecError is the structured error type used throughout the module.
type CodecError struct {
	Category Category
	Op       string // operation name
	Err      error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// New creates a CodecError.
func New(category Category, op string, err error) *CodecError {
	return &CodecError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.  Returns nil for a nil err.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Category == cat
	}
	return false
}

// Sentinel errors for the failure modes that abort an operation.
var (
	// ErrInvalidImage covers malformed, truncated, or unsupported
	// bitstreams.  The causes are not distinguishable to the caller.
	ErrInvalidImage = errors.New("not a valid WebP image")

	// ErrOutOfMemory reports an allocation failure in the codec path.
	ErrOutOfMemory = errors.New("codec out of memory")

	// ErrVersionMismatch reports a codec library version mismatch at init.
	ErrVersionMismatch = errors.New("codec library version mismatch")

	// ErrSizeMismatch reports a chunk extraction into a buffer whose
	// length differs from the queried chunk size.  This is a caller
	// contract violation, not a recoverable condition.
	ErrSizeMismatch = errors.New("destination size does not match chunk size")

	// ErrNilSink reports a nil output sink passed to a streaming write.
	ErrNilSink = errors.New("nil output sink")

	ErrEmptyInput = errors.New("empty input")
)

// EncodeCode is the encoder status enumeration.  Values match libwebp's
// WebPEncodingError so diagnostics stay comparable across backends.
type EncodeCode int

const (
	EncOK EncodeCode = iota
	EncOutOfMemory
	EncBitstreamOutOfMemory
	EncNullParameter
	EncInvalidConfiguration
	EncBadDimension
	EncPartition0Overflow
	EncPartitionOverflow
	EncBadWrite
	EncFileTooBig
	EncUserAbort
)

var encodeCodeNames = map[EncodeCode]string{
	EncOK:                   "ok",
	EncOutOfMemory:          "out of memory",
	EncBitstreamOutOfMemory: "bitstream out of memory",
	EncNullParameter:        "null parameter",
	EncInvalidConfiguration: "invalid configuration",
	EncBadDimension:         "bad dimension",
	EncPartition0Overflow:   "partition 0 overflow",
	EncPartitionOverflow:    "partition overflow",
	EncBadWrite:             "bad write",
	EncFileTooBig:           "file too big",
	EncUserAbort:            "user abort",
}

func (c EncodeCode) String() string {
	if s, ok := encodeCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// EncodeError reports an encoder failure with its numeric status code.
// The code propagates verbatim to the caller for diagnosis.
type EncodeError struct {
	Code EncodeCode
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encode failed (code %d: %s): %v", int(e.Code), e.Code, e.Err)
	}
	return fmt.Sprintf("encode failed (code %d: %s)", int(e.Code), e.Code)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Encode creates an EncodeError with the given status code.
func Encode(code EncodeCode, err error) *EncodeError {
	return &EncodeError{Code: code, Err: err}
}

// AsEncodeError extracts an *EncodeError from err's chain.
func AsEncodeError(err error) (*EncodeError, bool) {
	var ee *EncodeError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
