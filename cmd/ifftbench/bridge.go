package main

import (
	"log/slog"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// libraryLogger sends the ifft package's slog records to l. Debug records
// pass only in verbose mode.
func libraryLogger(l *zerolog.Logger, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slogzerolog.Option{Level: level, Logger: l}.NewZerologHandler())
}
