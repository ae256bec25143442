package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", "production", &buf)

	log.WithField("component", "test").Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "test", entry["component"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", "development", &buf)

	log.Info("dropped")
	log.Debugf("dropped %d", 1)
	assert.Empty(t, buf.String())

	log.Warnf("kept %s", "warning")
	assert.Contains(t, buf.String(), "kept warning")
}

func TestNewWithWriter_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("nonsense", "development", &buf)

	log.Debug("hidden")
	log.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", "production", &buf).WithFields(map[string]interface{}{
		"station": "72202",
		"batch":   "abc",
	})

	log.Error("boom")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "72202", entry["station"])
	assert.Equal(t, "abc", entry["batch"])
	assert.Equal(t, "error", entry["level"])
}

func TestNewWithFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	log, closer, err := NewWithFile("info", "production", dir, now)
	require.NoError(t, err)

	log.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "weather_parsing_20240305_140709.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
