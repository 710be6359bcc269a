package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWriter_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "warn")

	logger.Info("[auth] hidden %d", 1)
	logger.Warn("[auth] refresh failed: %s", "timeout")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] [auth] refresh failed: timeout")
}

func TestLogger_AttrsAreRendered(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "debug")

	logger.Slog().With("host", "admin.example.com").Info("resolved", "api", "https://api.example.com")

	out := buf.String()
	assert.Contains(t, out, "host=admin.example.com")
	assert.Contains(t, out, "api=https://api.example.com")
}

func TestNew_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "info", Dir: dir, Filename: "bizdash.log", NoColor: true})
	require.NoError(t, err)

	logger.Info("[store] driver %s ready", "memory")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "bizdash.log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"[store] driver memory ready"`), string(data))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
}
