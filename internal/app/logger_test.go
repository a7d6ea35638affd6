package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "staging", LogFormat: "json", LogLevel: "warn"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "user_id", "7")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "odyssey-hr", entry["service"])
	assert.Equal(t, "staging", entry["env"])
	assert.Equal(t, "7", entry["user_id"])
}

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]string{"": "INFO", "DEBUG": "DEBUG", "warning": "WARN", "error": "ERROR"} {
		level, err := parseLevel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, level.String())
	}
	_, err := parseLevel("verbose")
	assert.Error(t, err)
}
