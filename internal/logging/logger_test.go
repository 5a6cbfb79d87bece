package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "json", Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "hidden debug")
	logger.Info(ctx, "hidden info")
	logger.Warn(ctx, nil, "shown warn")
	logger.Error(ctx, errors.New("boom"), "shown error")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "shown warn", records[0]["msg"])
	assert.Equal(t, "shown error", records[1]["msg"])
	assert.Equal(t, "boom", records[1]["error"])
}

func TestWithFieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger := base.WithComponent("cast").With("container", "div", 42, "ignored-key")
	logger.Info(context.Background(), "rendered", "parts", 3)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "cast", records[0]["component"])
	assert.Equal(t, "div", records[0]["container"])
	assert.Equal(t, float64(3), records[0]["parts"])
	assert.NotContains(t, records[0], "42")
}

func TestWithDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	_ = base.With("child", true)
	base.Info(context.Background(), "parent")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.NotContains(t, records[0], "child")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), errors.New("x"), "discarded")
	})
}

func TestStartOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	op := StartOperation(logger, "replay")
	op.End(context.Background(), "frames", 2)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "replay", records[0]["operation"])
	assert.Equal(t, float64(2), records[0]["frames"])
	assert.Contains(t, records[0], "duration")
}
