package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	t.Run("creates JSON logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		logger.Info("feed written", slog.String("component", "gtfswriter"), slog.Int("stops", 42))

		output := buf.String()
		assert.Contains(t, output, `"level":"INFO"`)
		assert.Contains(t, output, `"msg":"feed written"`)
		assert.Contains(t, output, `"component":"gtfswriter"`)
		assert.Contains(t, output, `"stops":42`)
		assert.Contains(t, output, `"time":`)
	})

	t.Run("respects log level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelWarn)

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warning message")

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "warning message")
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, slog.LevelInfo, "text")

		logger.Info("merge done", slog.Int("associations", 3))

		output := buf.String()
		assert.Contains(t, output, "level=INFO")
		assert.Contains(t, output, `msg="merge done"`)
		assert.Contains(t, output, "associations=3")
	})

	t.Run("unknown format falls back to JSON", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, slog.LevelInfo, "").Info("hello")
		assert.True(t, strings.HasPrefix(buf.String(), "{"))
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, level)
		})
	}
}

func TestLoggerHelpers(t *testing.T) {
	t.Run("LogError", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogError(logger, "failed to fetch relation", assert.AnError,
			slog.String("url", "https://api.openstreetmap.org/api/0.6/relation/1/full.json"))

		output := buf.String()
		assert.Contains(t, output, `"level":"ERROR"`)
		assert.Contains(t, output, `"msg":"failed to fetch relation"`)
		assert.Contains(t, output, `"error":"assert.AnError general error for testing"`)
		assert.Contains(t, output, `"url":"https://api.openstreetmap.org/api/0.6/relation/1/full.json"`)
	})

	t.Run("LogOperation skips zero duration", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogOperation(logger, "operator_extracted",
			slog.Int("stops_count", 150),
			slog.Duration("duration", 0))

		output := buf.String()
		assert.Contains(t, output, `"msg":"operator_extracted"`)
		assert.Contains(t, output, `"stops_count":150`)
		assert.NotContains(t, output, `"duration"`)
	})

	t.Run("LogOperation keeps non-zero duration", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogOperation(logger, "merge_finished", slog.Duration("duration", time.Second))

		assert.Contains(t, buf.String(), `"duration":1000000000`)
	})

	t.Run("LogCounts", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogCounts(logger, "feed_built", map[string]int{"trips": 2, "stops": 5}, slog.String("source", "operator"))

		output := buf.String()
		assert.Contains(t, output, `"source":"operator","stops":5,"trips":2`)
	})

	t.Run("LogHTTPRequest", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogHTTPRequest(logger, "GET", "/gtfs.zip", 200, 1.5, slog.String("user_agent", "test-client"))

		output := buf.String()
		assert.Contains(t, output, `"msg":"http_request"`)
		assert.Contains(t, output, `"method":"GET"`)
		assert.Contains(t, output, `"path":"/gtfs.zip"`)
		assert.Contains(t, output, `"status":200`)
		assert.Contains(t, output, `"duration_ms":1.5`)
		assert.Contains(t, output, `"user_agent":"test-client"`)
	})

	t.Run("nil logger is ignored", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogError(nil, "x", assert.AnError)
			LogOperation(nil, "x")
			LogCounts(nil, "x", nil)
			LogHTTPRequest(nil, "GET", "/", 200, 0)
		})
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("stores and retrieves logger from context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		ctx := WithLogger(context.Background(), logger)
		FromContext(ctx).Info("test from context")

		assert.Contains(t, buf.String(), "test from context")
	})

	t.Run("returns default logger when not in context", func(t *testing.T) {
		logger := FromContext(context.Background())
		require.NotNil(t, logger)
	})
}

func TestReplaceLogFatal(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelError)

	result := ReplaceLogFatal(logger, "unable to load config", assert.AnError)

	require.Error(t, result)
	assert.ErrorIs(t, result, assert.AnError)
	assert.Contains(t, result.Error(), "unable to load config")
	assert.Contains(t, buf.String(), `"msg":"unable to load config"`)
}
