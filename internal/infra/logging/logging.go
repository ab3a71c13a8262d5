package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewJSON builds a JSON logger writing to w. Every record carries the "app" attribute.
func NewJSON(w io.Writer, level slog.Level, app string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(h).With(slog.String("app", app))
}

// SetupJSON sets slog's default logger to JSON on stdout at the given level.
func SetupJSON(level slog.Level, app string) {
	slog.SetDefault(NewJSON(os.Stdout, level, app))
}
