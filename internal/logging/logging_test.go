package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestComponentJSON(t *testing.T) {
	prev := Logger
	defer func() {
		if prev != nil {
			InitWithHandler(prev.Handler())
		}
	}()

	var buf bytes.Buffer
	InitWithHandler(NewHandler(&buf, slog.LevelInfo, true))

	log := Component("index")
	log.Debug("dropped")
	log.Info("opened", "path", "gfl.db")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "opened", rec["msg"])
	assert.Equal(t, "index", rec["component"])
	assert.Equal(t, "gfl.db", rec["path"])
	assert.NotContains(t, rec, "source")
}

func TestNewHandler_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, slog.LevelDebug, false)).Debug("hello")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "source=")
}
