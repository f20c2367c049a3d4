package camfx

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled reports false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while a render loop is running.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for camfx and all its sub-packages.
// By default camfx produces no log output.
//
// Pass nil to restore the default silent behavior.
//
// Log levels used by camfx:
//   - [slog.LevelDebug]: per-tick diagnostics (dropped ticks, composite timings)
//   - [slog.LevelInfo]: lifecycle events (source attached, filter registered, resize)
//   - [slog.LevelWarn]: failed ticks, resource release errors
//
// Example:
//
//	camfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by camfx.
// Sub-packages (filter/, gpu/, source/) call this to share the same
// configuration without introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by filters that keep their own logger,
// typically GPU-backed filters wrapping a rendering backend.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes l to f if it accepts a logger.
func propagateLogger(f Filter, l *slog.Logger) {
	if ls, ok := f.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
