// Package logger builds the application's slog.Logger from configuration.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a logger writing to stdout: a JSON handler in production,
// a text handler everywhere else. The returned logger is also installed
// as the slog default so package-level slog calls share the same handler.
func New(env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLevel maps a config string to a slog level, defaulting to Info on
// anything it does not recognize.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
