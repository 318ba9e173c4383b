package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger writing to w and tagged with the service name.
// Debug mode lowers the level to debug and adds the source location to every record.
func New(w io.Writer, service string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	return slog.New(handler).With(slog.String("service", service))
}

// InitJSONLogger installs a stdout JSON logger as the slog default.
func InitJSONLogger(service string, debug bool) {
	slog.SetDefault(New(os.Stdout, service, debug))
}
