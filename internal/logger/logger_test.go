package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf, false)

	l.Debug("Test", "hidden %d", 1)
	l.Info("Test", "hidden %d", 2)
	l.Warn("Test", "shown %d", 3)
	l.Error("", "bare")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] [Test] shown 3")
	assert.Contains(t, out, "[ERROR] bare")

	buf.Reset()
	l.SetLevel(SILENT)
	l.Error("Test", "muted")
	assert.Empty(t, buf.String())
}

func TestColorPrefix(t *testing.T) {
	var buf bytes.Buffer
	New(DEBUG, &buf, true).Info("Server", "up")
	assert.Contains(t, buf.String(), "\033[32m[INFO]\033[0m [Server] up")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug": DEBUG, "INFO": INFO, "Warning": WARN, "error": ERROR, "none": SILENT, "": INFO,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "UNKNOWN", LogLevel(17).String())
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodface.log")
	var console bytes.Buffer

	l := NewWithFile(INFO, &console, true, FileOptions{Path: path})
	l.Info("Pipeline", "frame %d", 7)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close is a no-op")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] [Pipeline] frame 7")
	assert.NotContains(t, string(data), "\033[")
	assert.Contains(t, console.String(), "\033[32m[INFO]\033[0m [Pipeline] frame 7", "console keeps colour")
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(DEBUG, &buf, false)
	t.Cleanup(func() { Init(INFO, os.Stderr, false) })

	Debug("Global", "one")
	SetLevel(ERROR)
	Warn("Global", "two")
	Error("Global", "three")

	assert.Equal(t, ERROR, GetLevel())
	assert.Contains(t, buf.String(), "one")
	assert.NotContains(t, buf.String(), "two")
	assert.Contains(t, buf.String(), "three")
	assert.NoError(t, Close())
}
