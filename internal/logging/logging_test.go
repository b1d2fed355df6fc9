package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/notebook/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestNewFansOutToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "notebook.log")
	var terminal bytes.Buffer
	logger, closer, err := New(config.LogConfig{Level: "info", File: path}, &terminal)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("cell finished", "cell", "abc", "index", 3)
	require.NoError(t, closer.Close())

	require.Contains(t, terminal.String(), "cell finished")
	require.NotContains(t, terminal.String(), "hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	require.Equal(t, "cell finished", record["msg"])
	require.Equal(t, "abc", record["cell"])
}
