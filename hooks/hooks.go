// Package hooks provides production-ready Logger and progress-reporting
// implementations.
package hooks

import (
	"log/slog"
	"os"
	"strings"

	"github.com/imagebridge/webpfile/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

// NewDefaultLogger creates a text logger on stderr at the given level
// ("debug", "info", "warn", "error"; anything else means info).
func NewDefaultLogger(level string) *SlogLogger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return &SlogLogger{log: slog.New(h)}
}

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, fields...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, fields...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, fields...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, fields...)
}

// ── Progress helpers ──────────────────────────────────────────────────────────

// Throttle wraps a progress callback so it fires only when the percentage
// advances by at least minStep (100 always fires).  Useful when the sink
// chunk size makes per-chunk callbacks too chatty for a UI.
func Throttle(fn core.ProgressFunc, minStep int) core.ProgressFunc {
	if fn == nil {
		return nil
	}
	if minStep < 1 {
		minStep = 1
	}
	last := -minStep
	return func(percent int) {
		if percent >= 100 || percent-last >= minStep {
			last = percent
			fn(percent)
		}
	}
}

// Scale maps a sub-phase's 0-100 progress into the [lo, hi] band of the
// overall operation.
func Scale(fn core.ProgressFunc, lo, hi int) core.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(percent int) {
		fn(lo + (hi-lo)*percent/100)
	}
}
