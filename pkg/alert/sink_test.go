package alert

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logfile.log")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new one\n"), 0o644))

	sink := NewFileSink(path)
	require.NoError(t, sink.Write([]string{"first alert", "second alert"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first alert\nsecond alert\n", string(data))
}

func TestFileSinkNoAlertsRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logfile.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	sink := NewFileSink(path)
	require.NoError(t, sink.Write(nil))
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// nothing to remove is fine and still creates nothing
	require.NoError(t, sink.Write(nil))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileSinkOpenError(t *testing.T) {
	sink := NewFileSink(filepath.Join(t.TempDir(), "missing", "logfile.log"))
	assert.Error(t, sink.Write([]string{"x"}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriterSink{W: &buf}.Write([]string{"a", "b"}))
	assert.Equal(t, "a\nb\n", buf.String())

	assert.ErrorContains(t, WriterSink{W: failingWriter{}}.Write([]string{"a"}), "disk full")
}
