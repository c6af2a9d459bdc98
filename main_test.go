package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWarningsUseJSONLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")

	var buf bytes.Buffer
	var level slog.LevelVar
	slog.SetDefault(newLogger(&buf, &level))

	cfg := loadConfig(&level)
	assert.Equal(t, slog.LevelError, cfg.LogLevel)
	assert.Equal(t, slog.LevelError, level.Level())

	scanner := bufio.NewScanner(&buf)
	require.True(t, scanner.Scan(), "expected config warnings in the log")
	var record map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Contains(t, record["msg"], "GEMINI_API_KEY")

	// the configured level now filters later records
	buf.Reset()
	slog.Warn("dropped")
	assert.Zero(t, buf.Len())
}
