package cmd

import (
	"io"
	"log/slog"
)

// newLogger returns the diagnostics logger. User-facing output goes through
// fatih/color; this is only for --verbose tracing.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
