package gralloc

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger shared by gralloc and its backends.
// By default, gralloc produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default. Drivers created without WithLogger, existing ones included,
// log through the new logger from their next message on. A driver
// created with WithLogger keeps its own logger.
//
// Log levels used by gralloc:
//   - [slog.LevelDebug]: per-buffer diagnostics (handles, strides, sizes)
//   - [slog.LevelInfo]: driver lifecycle (module loaded, driver destroyed)
//   - [slog.LevelWarn]: best-effort cleanup failures
//   - [slog.LevelError]: failed allocations and mappings
//
// Example:
//
//	gralloc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
// Backend packages call this when no logger was passed in Options.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
