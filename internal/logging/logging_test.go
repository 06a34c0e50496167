package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTeesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.log")

	logger, cleanup, err := New("debug", path)
	require.NoError(t, err)

	logger.Debug("started", "component", "test")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"started"`)
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestNewRejectsUnwritableLogFile(t *testing.T) {
	_, _, err := New("info", filepath.Join(t.TempDir(), "missing", "gallery.log"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
