package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestInitWritesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "logs", "bot.log")

	require.NoError(t, Init(Config{Level: "info", File: file}))
	t.Cleanup(InitNop)

	Info("hello %s", "world")
	Debug("not written at info level")
	Sync()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello world")
	assert.NotContains(t, string(b), "not written")
}

func TestUninitialisedLoggerDoesNotPanic(t *testing.T) {
	old := InfoLogger
	InfoLogger = nil
	t.Cleanup(func() { InfoLogger = old })

	assert.NotPanics(t, func() {
		Info("x")
		Error("y")
	})
}
