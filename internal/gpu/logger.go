package gpu

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record; engines stay quiet until a host installs a logger.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// loggerPtr is read on every dispatch and submission, so swaps are lock-free.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// slogger is the logger every file in this package writes to.
func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger swaps the logger used by the GPU engines. A nil logger mutes
// them again. The public ifft package forwards its own SetLogger here.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}
