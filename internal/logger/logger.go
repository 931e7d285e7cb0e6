package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"

	// RunIDField is the field attached to every line logged during a reconciliation run.
	RunIDField = "run_id"
)

// New creates a console logger writing to stderr at info level.
func New() zerolog.Logger {
	return NewWithLevel(consoleWriter(os.Stderr), "info")
}

// NewWithWriter creates a new structured logger with a custom writer
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// NewWithLevel creates a logger writing to w that drops events below level.
// An unknown or empty level falls back to info.
func NewWithLevel(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return NewWithWriter(w).Level(lvl)
}

// NewConsole creates a human readable logger on stderr at the given level.
func NewConsole(level string) zerolog.Logger {
	return NewWithLevel(consoleWriter(os.Stderr), level)
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// WithFields adds structured fields to a logger
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}

// WithRun tags the logger with the run identifier.
func WithRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str(RunIDField, runID).Logger()
}
