package utils

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/imagebridge/webpfile/core"
	apperrors "github.com/imagebridge/webpfile/errors"
)

// bufPool reuses byte buffers to reduce GC pressure.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// AcquireBuffer returns a reset buffer from the pool.
func AcquireBuffer() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer returns b to the pool.  Callers must not use b after this call.
func ReleaseBuffer(b *bytes.Buffer) {
	// Cap large buffers to avoid pinning excessive memory.
	if b.Cap() > 8*1024*1024 {
		return
	}
	bufPool.Put(b)
}

// DrainReader reads all bytes from r into a pooled buffer and returns it.
// Pass the buffer back with ReleaseBuffer when done.
func DrainReader(r io.Reader, chunkSize int) (*bytes.Buffer, error) {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	buf := AcquireBuffer()
	chunk := make([]byte, chunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			ReleaseBuffer(buf)
			return nil, err
		}
	}
	return buf, nil
}

// CloneBytes returns a copy of b that outlives the pooled buffer it came from.
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// DefaultChunkSize is the write granularity for streaming output.
const DefaultChunkSize = 64 * 1024

// StreamTo writes data to sink in fixed-size chunks.  The total length is
// declared exactly once via SetLength before the first write, so
// file-backed sinks can pre-allocate.  progress receives a percentage per
// chunk, in strictly increasing write-offset order, ending at 100.
func StreamTo(sink core.Sink, data []byte, chunkSize int, progress core.ProgressFunc) error {
	if sink == nil {
		return apperrors.Wrap(apperrors.CategoryContainer, "utils.stream", apperrors.ErrNilSink)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	total := len(data)
	if err := sink.SetLength(int64(total)); err != nil {
		return apperrors.Wrap(apperrors.CategoryContainer, "utils.stream.setlength", err)
	}
	for off := 0; off < total; off += chunkSize {
		end := off + chunkSize
		if end > total {
			end = total
		}
		if _, err := sink.Write(data[off:end]); err != nil {
			return apperrors.Wrap(apperrors.CategoryContainer, "utils.stream.write", err)
		}
		progress.Report(end * 100 / total)
	}
	if total == 0 {
		progress.Report(100)
	}
	return nil
}

// writerSink adapts a plain io.Writer into a Sink that ignores the length
// declaration.
type writerSink struct {
	w io.Writer
}

func (s *writerSink) SetLength(int64) error       { return nil }
func (s *writerSink) Write(p []byte) (int, error) { return s.w.Write(p) }

// NewSink wraps w as a Sink.  If w already implements Sink it is returned
// unchanged.
func NewSink(w io.Writer) core.Sink {
	if s, ok := w.(core.Sink); ok {
		return s
	}
	return &writerSink{w: w}
}

// FileSink writes to an *os.File and pre-allocates it to the declared
// length before the first write.
type FileSink struct {
	F *os.File
}

func (s *FileSink) SetLength(total int64) error {
	return s.F.Truncate(total)
}

func (s *FileSink) Write(p []byte) (int, error) { return s.F.Write(p) }
