package gapi

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards every record.
// Enabled reports false so callers skip formatting altogether.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for gapi and its sub-packages.
// By default nothing is logged. Pass nil to restore the silent default.
//
// Log levels used by gapi:
//   - [slog.LevelDebug]: validation detail (stream capacity, pipeline cache misses)
//   - [slog.LevelInfo]: device lifecycle (adapter selected, device lost, device reset)
//   - [slog.LevelWarn]: rejected commands, failed parameter bindings, effect compile errors
//
// Example:
//
//	gapi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Backends and the renderer call it
// so that a single SetLogger call configures the whole module.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
