// ABOUTME: Structured logging configuration using log/slog.
// ABOUTME: Configures the default logger from LOG_LEVEL/LOG_FORMAT, to stderr or a debug file.

package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Init configures the default slog logger writing to w.
// LOG_LEVEL: debug, info, warn, error (default: warn for the CLI)
// LOG_FORMAT: text, json (default: text)
func Init(w io.Writer) *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(os.Getenv("LOG_FORMAT"))

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// InitFile points the default logger at <dir>/debug.log so log lines do not
// interfere with a full-screen terminal UI. The returned closer must be
// called on exit. If dir is empty logging is discarded.
func InitFile(dir string) (io.Closer, error) {
	if dir == "" {
		Init(io.Discard)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		Init(io.Discard)
		return io.NopCloser(nil), err
	}

	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		Init(io.Discard)
		return io.NopCloser(nil), err
	}

	Init(f)
	return f, nil
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
