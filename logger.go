package drawq

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/drawq/internal/gpu"
)

// nopHandler drops every record; Enabled is always false.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr holds the package logger. It is the only state in drawq that
// may be touched from several goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for drawq and its GPU layer.
// By default, drawq produces no log output. Pass nil to restore the
// silent default.
//
// Log levels used by drawq:
//   - [slog.LevelDebug]: per-frame diagnostics, skipped cached-text handles
//   - [slog.LevelInfo]: lifecycle events (surface configured, renderer created)
//   - [slog.LevelWarn]: skipped frames
//
// Example:
//
//	drawq.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger used by drawq.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
