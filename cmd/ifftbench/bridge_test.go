package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m), "log line %q", buf.String())
	buf.Reset()
	return m
}

func TestLibraryLogger(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := libraryLogger(&zl, false)

	logger.Info("fft: engine created", "n", 512, "role", "B")
	m := decodeLine(t, &buf)
	assert.Equal(t, "info", m["level"])
	assert.Equal(t, "fft: engine created", m["message"])
	assert.EqualValues(t, 512, m["n"])
	assert.Equal(t, "B", m["role"])

	logger.With("label", "ifft").Warn("transfer: wait failed")
	m = decodeLine(t, &buf)
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "ifft", m["label"])

	logger.Debug("dropped")
	assert.Zero(t, buf.Len())
}

func TestLibraryLoggerVerbose(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := libraryLogger(&zl, true)

	logger.Debug("fft: stage dispatched", "index", 3)
	m := decodeLine(t, &buf)
	assert.Equal(t, "debug", m["level"])
	assert.EqualValues(t, 3, m["index"])
}
