package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "spans.txt")

	shutdown, err := Init("task-assigner", "test", fname)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "task.accept", map[string]string{"task.id": "1"})
	span.SetAttribute("actor.role", "manager")
	EndSpan(span, nil)

	_, span = StartSpan(context.Background(), "task.decline", nil)
	EndSpan(span, errors.New("forbidden"))

	// a second Init must not create or truncate another file
	other := filepath.Join(t.TempDir(), "other.txt")
	again, err := Init("task-assigner", "test", other)
	require.NoError(t, err)
	assert.NoFileExists(t, other)
	assert.NotNil(t, again)

	require.NoError(t, shutdown(context.Background()))
	_, err = output.(*os.File).Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "task.accept")
	assert.Contains(t, string(data), "task.decline")
}

func TestNilSpanIsSafe(t *testing.T) {
	var s *Span
	s.SetAttribute("k", "v")
	EndSpan(s, nil)
}
