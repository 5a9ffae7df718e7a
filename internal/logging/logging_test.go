package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:         "debug",
		FilePath:      filepath.Join(dir, "pensieve.log"),
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Info("document registered", slog.String("doc_id", "abc123"))
	cleanup()

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.SplitN(string(data), "\n", 2)[0]), &entry))
	assert.Equal(t, "document registered", entry["msg"])
	assert.Equal(t, "abc123", entry["doc_id"])
}

func TestSetup_RespectsLevel(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:         "warn",
		FilePath:      filepath.Join(dir, "pensieve.log"),
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Debug("should be dropped")
	logger.Warn("should be kept")
	cleanup()

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be dropped")
	assert.Contains(t, string(data), "should be kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestRotatingWriter_RotatesAtMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pensieve.log")

	// 1MB max; write past it in two chunks.
	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)

	big := strings.Repeat("x", 600*1024)
	_, err = w.Write([]byte(big))
	require.NoError(t, err)
	_, err = w.Write([]byte(big))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated file should exist")
}
