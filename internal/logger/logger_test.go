package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: LevelDebug, Format: "json", Output: &buf})
	defer Configure(Options{Level: LevelWarn, Format: "text"})

	Board().WithField("task", "t1").WithError(errors.New("boom")).Error("move failed")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "board", payload["component"])
	assert.Equal(t, "t1", payload["task"])
	assert.Equal(t, "boom", payload["error"])
	assert.Equal(t, "move failed", payload["msg"])
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: LevelWarn, Format: "text", Output: &buf})

	Info("hidden")
	assert.Empty(t, buf.String())

	Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	SetVerbosity(false, true)
	Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")

	Configure(Options{Level: LevelWarn})
}
