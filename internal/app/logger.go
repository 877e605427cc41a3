package app

import (
	"io"
	"log/slog"
)

// newLogger builds the run logger from the validated level and format
// strings. Every record carries the ifgrid version so result manifests and
// logs from different builds can be told apart. The logger is not installed
// as the slog default.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if level != "" {
		// Config.LogLevel is restricted to slog's own level names.
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = slog.LevelInfo
		}
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("ifgrid_version", Version)
}
