package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// loggerKey is used to store the logger in context
type loggerKey struct{}

// NewStructuredLogger creates a new structured logger with JSON output
func NewStructuredLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}

// NewLogger creates a logger in the requested format. "text" selects the
// human readable handler used on a terminal, anything else falls back to JSON.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return NewStructuredLogger(w, level)
}

// ParseLevel maps a configuration string onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return parsed, nil
}

// LogError logs an error with structured context
func LogError(logger *slog.Logger, message string, err error, attrs ...slog.Attr) {
	if logger == nil {
		return
	}

	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.String("error", err.Error()))

	for _, attr := range attrs {
		args = append(args, attr)
	}

	logger.Error(message, args...)
}

// LogOperation logs an operation with structured context
func LogOperation(logger *slog.Logger, operation string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}

	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		// Skip zero-value durations
		if attr.Key == "duration" && attr.Value.Duration() == 0 {
			continue
		}
		args = append(args, attr)
	}

	logger.Info(operation, args...)
}

// LogCounts logs the size of a data set, one attribute per entity kind, in
// stable key order.
func LogCounts(logger *slog.Logger, operation string, counts map[string]int, attrs ...slog.Attr) {
	if logger == nil {
		return
	}

	keys := slices.Sorted(maps.Keys(counts))
	all := make([]slog.Attr, 0, len(attrs)+len(keys))
	all = append(all, attrs...)
	for _, key := range keys {
		all = append(all, slog.Int(key, counts[key]))
	}
	LogOperation(logger, operation, all...)
}

// LogHTTPRequest logs HTTP request details
func LogHTTPRequest(logger *slog.Logger, method, path string, status int, durationMs float64, attrs ...slog.Attr) {
	if logger == nil {
		return
	}

	args := make([]any, 0, len(attrs)+4)
	args = append(args,
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("duration_ms", durationMs),
	)

	for _, attr := range attrs {
		args = append(args, attr)
	}

	logger.Info("http_request", args...)
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves a logger from the context, or returns a default logger
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return slog.Default()
}

// ReplaceLogFatal replaces log.Fatal calls with error logging and returns an error
func ReplaceLogFatal(logger *slog.Logger, message string, err error) error {
	wrappedErr := fmt.Errorf("%s: %w", message, err)

	if logger != nil {
		LogError(logger, message, err)
	}

	return wrappedErr
}
