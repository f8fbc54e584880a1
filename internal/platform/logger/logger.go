package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. LOG_LEVEL selects the threshold; JSON
// output goes to stdout for the collector to pick up.
func New() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
