package cmd

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := parseLevel("warn")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)

	_, err = parseLevel("verbose")
	require.ErrorIs(t, err, ErrInvalidLogLevel)
}

func TestNewLogHandler(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(newLogHandler(buf, false, slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("shown", "id", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "shown", entry["msg"])
	require.InDelta(t, 7, entry["id"], 0)
	require.NotContains(t, entry, slog.SourceKey)
}
