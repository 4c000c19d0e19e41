package ifft

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/ifft/internal/gpu"
)

// nopHandler backs the default logger, so an embedding program sees no output
// from ifft unless it asks for it.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger routes pipeline and engine logs to l. Nil mutes them.
//
// Debug records trace each batch (stage dispatches, submissions, staging
// copies). Info records mark adapter selection and pipeline construction.
// Warn records report a fence wait that failed or a buffer that could not
// be released.
//
// To see everything on stderr:
//
//	ifft.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the logger installed by SetLogger, or the muted default.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
