package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logWriter
	logWriter = &buf
	t.Cleanup(func() { logWriter = prev })
	return &buf
}

func TestLevel(t *testing.T) {
	for _, tc := range []struct {
		verbosity int
		level     zapcore.Level
	}{
		{-1, zapcore.ErrorLevel},
		{0, zapcore.ErrorLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{5, zapcore.DebugLevel},
	} {
		require.Equal(t, tc.level, Level(tc.verbosity), "verbosity %d", tc.verbosity)
	}
}

func TestNewFiltersByVerbosity(t *testing.T) {
	buf := captureOutput(t)
	logger, err := New(1, ConsoleEncoder)
	require.NoError(t, err)

	logger.Debug("hidden")
	require.Zero(t, buf.Len())
	logger.Info("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestNewJSON(t *testing.T) {
	buf := captureOutput(t)
	logger, err := New(0, JSONEncoder)
	require.NoError(t, err)

	logger.Info("hidden")
	require.Zero(t, buf.Len())
	logger.Error("failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "failed", entry["msg"])
	require.Equal(t, "error", entry["level"])
	require.NotContains(t, entry, "caller")
}

func TestNewWithCaller(t *testing.T) {
	buf := captureOutput(t)
	logger, err := New(3, JSONEncoder)
	require.NoError(t, err)
	logger.Debug("debug")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Contains(t, entry, "caller")
}

func TestUnknownEncoder(t *testing.T) {
	_, err := New(1, "xml")
	require.ErrorIs(t, err, ErrUnknownEncoder)
}
