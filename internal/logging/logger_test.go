package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")

	logger, err := NewLogger(Config{Level: INFO, OutputFile: logFile, JSONFormat: true})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("hello", "key", "value")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "value")
}

func TestLoggerRotatesWhenOverSize(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")
	require.NoError(t, os.WriteFile(logFile, make([]byte, 100), 0644))

	logger, err := NewLogger(Config{Level: INFO, OutputFile: logFile, MaxSize: 10, MaxBackups: 2})
	require.NoError(t, err)
	defer logger.Close()

	_, err = os.Stat(logFile + ".1")
	assert.NoError(t, err)
}

func TestWithAddsContext(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")

	logger, err := NewLogger(Config{Level: INFO, OutputFile: logFile, JSONFormat: true})
	require.NoError(t, err)
	defer logger.Close()

	scoped := logger.With("component", "encoder")
	scoped.Info("started")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "encoder")
}

func TestDefaultConfigVariesByDebugMode(t *testing.T) {
	debug := DefaultConfig(true)
	assert.Equal(t, DEBUG, debug.Level)
	assert.False(t, debug.JSONFormat)
	assert.True(t, debug.AddSource)

	prod := DefaultConfig(false)
	assert.Equal(t, INFO, prod.Level)
	assert.True(t, prod.JSONFormat)
	assert.False(t, prod.AddSource)
}

func TestLogFileInfoReportsSize(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")

	logger, err := NewLogger(Config{Level: INFO, OutputFile: logFile})
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, Initialize(Config{Level: INFO, OutputFile: logFile}))
	path, size, err := LogFileInfo()
	require.NoError(t, err)
	assert.Equal(t, logFile, path)
	assert.GreaterOrEqual(t, size, int64(0))
}
