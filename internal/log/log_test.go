package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Level: level, Component: ComponentWorker, JSON: true, Output: buf})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestNew_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, slog.LevelInfo)

	logger.Info("hello", FieldCount, 2)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "hello", recs[0]["msg"])
	assert.Equal(t, ComponentWorker, recs[0][FieldComponent])
	assert.EqualValues(t, 2, recs[0][FieldCount])
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, slog.LevelWarn)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "kept", recs[0]["msg"])
}

func TestNew_DefaultsComponent(t *testing.T) {
	logger := New(Config{Output: &bytes.Buffer{}})
	assert.Equal(t, ComponentApp, logger.Component())
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, slog.LevelInfo).WithComponent(ComponentStorage)

	logger.Info("migrated")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, ComponentStorage, recs[0][FieldComponent])
	assert.Equal(t, ComponentStorage, logger.Component())
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(Config{Component: ComponentCLI, Output: &bytes.Buffer{}})
	ctx := WithContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestStructuredLogger_LogMaterialization(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(jsonLogger(&buf, slog.LevelInfo))

	sl.LogMaterialization(context.Background(), "2025-01-31", 3, nil)
	sl.LogMaterialization(context.Background(), "2025-02-01", 0, errors.New("store down"))

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)

	assert.Equal(t, "INFO", recs[0]["level"])
	assert.Equal(t, ComponentRecurring, recs[0][FieldComponent])
	assert.Equal(t, "2025-01-31", recs[0][FieldAsOf])
	assert.EqualValues(t, 3, recs[0][FieldCount])
	assert.NotContains(t, recs[0], FieldError)

	assert.Equal(t, "ERROR", recs[1]["level"])
	assert.Equal(t, "store down", recs[1][FieldError])
}

func TestStructuredLogger_LogSnapshot(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(jsonLogger(&buf, slog.LevelInfo))

	sl.LogSnapshot(context.Background(), "2025-03", 72, "Good", true)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, ComponentDashboard, recs[0][FieldComponent])
	assert.Equal(t, "2025-03", recs[0][FieldMonth])
	assert.EqualValues(t, 72, recs[0][FieldHealthScore])
	assert.Equal(t, "Good", recs[0][FieldHealthLabel])
	assert.Equal(t, true, recs[0][FieldRefreshed])
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentAMQP).
		WithOperation(OpPublish).
		WithTemplate(7, 1250).
		WithError(nil)

	assert.Equal(t, ComponentAMQP, fields[FieldComponent])
	assert.Equal(t, OpPublish, fields[FieldOperation])
	assert.Equal(t, int64(7), fields[FieldTemplateID])
	assert.Equal(t, int64(1250), fields[FieldAmountCents])
	assert.NotContains(t, fields, FieldError)
	assert.Len(t, fields.ToSlice(), 8)
}
