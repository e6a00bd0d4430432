package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootmon/bootmon/pkg/logbuf"
)

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Format: FormatText, Output: &buf})

	log.Info("server started", "port", 8080)

	out := buf.String()
	assert.Contains(t, out, "server started")
	assert.Contains(t, out, "port=8080")
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	log.Info("server started", "port", 8080)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "server started", entry["msg"])
	assert.Equal(t, 8080.0, entry["port"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Format: FormatText, Output: &buf})

	log.Info("ignored")
	log.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "kept")
}

func TestCaptureTee(t *testing.T) {
	var buf bytes.Buffer
	sink := logbuf.New()
	log := New(Config{Level: LevelInfo, Output: &buf, Capture: sink})

	log.Info("captured message")

	assert.Contains(t, buf.String(), "captured message")

	content, _, _, err := sink.Slice("bytes=0-")
	require.NoError(t, err)
	assert.Contains(t, string(content), "captured message")
	assert.Equal(t, buf.String(), string(content))
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Error("nobody hears this")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "input %q", tt.in)
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat(strings.ToLower("whatever")))
}
