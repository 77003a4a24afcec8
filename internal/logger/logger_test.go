package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" WARNING "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("nope"))
}

func TestLoggerFiltersByLevelAndWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: WARN, Output: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.WithFields(F("scope", "notes:1")).Warn("cache write failed", F("error", "disk full"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "logger_test.go")
	assert.Contains(t, out, "cache write failed | scope=notes:1 error=disk full")
}

func TestLoggerRotatesBySize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ironnote.log")
	l, err := New(Config{Level: DEBUG, FilePath: path, MaxSize: 64, MaxBackups: 2})
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 5; i++ {
		l.Info(strings.Repeat("x", 40))
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWithoutInitDropsEntries(t *testing.T) {
	globalLogger = nil
	l := With(F("request_id", "abc"))
	assert.Nil(t, l)
	assert.NotPanics(t, func() { l.Error("nobody listens") })
}
