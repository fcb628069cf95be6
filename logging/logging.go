// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a level name to a slog.Level. Unknown names map to
// info.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewStructuredLogger returns a JSON logger writing to w, tagged with the
// service name and version.
func NewStructuredLogger(w io.Writer, name, version, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: ParseLevel(level) <= slog.LevelDebug,
	})
	return slog.New(handler).With(
		slog.String("service", name),
		slog.String("version", version),
	)
}

// SetDefaultStructuredLogger installs a JSON logger on stderr as the slog
// default.
func SetDefaultStructuredLogger(name, version, level string) {
	slog.SetDefault(NewStructuredLogger(os.Stderr, name, version, level))
}
