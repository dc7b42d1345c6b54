package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Options selects where and how the wrapper logs.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // append to this file; empty means stdout
}

// Open creates the process logger described by opts.
// The returned closer releases the log file, if any; it is always non-nil.
//
// Logs go to stdout by default so they interleave with the scheduler output
// the wrapper passes through.
func Open(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.File == "" {
		return NewLogger(ParseLevel(opts.Level), opts.Format, os.Stdout), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewLogger(ParseLevel(opts.Level), opts.Format, f), f, nil
}

// NewLogger creates a logger writing to w.
//
// format: "text" (human-readable) or "json" (structured)
func NewLogger(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// WithRun tags logger with a short random run_id so that several wrappers
// appending to one log file can be told apart.
func WithRun(logger *slog.Logger) *slog.Logger {
	return logger.With("run_id", uuid.New().String()[:8])
}

// ParseLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
