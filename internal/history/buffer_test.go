package history

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type disk struct {
	content string
	fail    error
}

func (d *disk) restore(s string) error {
	if d.fail != nil {
		return d.fail
	}
	d.content = s
	return nil
}

func TestUndoRedoRestoresExactSnapshots(t *testing.T) {
	b := New(DefaultSize)
	d := &disk{}
	for _, s := range []string{"v1", "v2", "v3"} {
		b.Record(s)
		d.content = s
	}

	ok, err := b.Undo(d.restore)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", d.content)
	assert.Equal(t, 1, b.Index())

	ok, err = b.Redo(d.restore)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v3", d.content)
	assert.Equal(t, 0, b.Index())
	assert.False(t, b.CanRedo())
}

func TestUndoStopsAtOldest(t *testing.T) {
	b := New(DefaultSize)
	d := &disk{}
	b.Record("v1")
	b.Record("v2")

	ok, err := b.Undo(d.restore)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Undo(d.restore)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "v1", d.content)
	assert.Equal(t, 1, b.Index())
}

func TestRecordAfterUndoTruncatesRedoBranch(t *testing.T) {
	b := New(DefaultSize)
	d := &disk{}
	for _, s := range []string{"v1", "v2", "v3"} {
		b.Record(s)
	}
	_, err := b.Undo(d.restore) // at v2
	require.NoError(t, err)

	b.Record("v2b")
	assert.Equal(t, 0, b.Index())
	assert.False(t, b.CanRedo(), "redo branch is gone")
	assert.Equal(t, 3, b.Len())

	// history is now v2b, v2, v1
	var seen []string
	for b.CanUndo() {
		_, err := b.Undo(d.restore)
		require.NoError(t, err)
		seen = append(seen, d.content)
	}
	assert.Equal(t, []string{"v2", "v1"}, seen)
}

func TestCapacity(t *testing.T) {
	b := New(3)
	for i := 1; i <= 5; i++ {
		b.Record(fmt.Sprintf("v%d", i))
	}
	assert.Equal(t, 3, b.Len())

	d := &disk{}
	for b.CanUndo() {
		_, err := b.Undo(d.restore)
		require.NoError(t, err)
	}
	assert.Equal(t, "v3", d.content, "oldest snapshots are dropped")
	assert.Equal(t, 2, b.Index())
}

func TestRestoreFailureKeepsCursor(t *testing.T) {
	b := New(DefaultSize)
	b.Record("v1")
	b.Record("v2")
	boom := errors.New("disk full")

	ok, err := b.Undo((&disk{fail: boom}).restore)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, b.Index())
}

func TestResetAndEmptySnapshots(t *testing.T) {
	b := New(0)
	assert.Equal(t, DefaultSize, b.Size())

	b.Record("")
	assert.Zero(t, b.Len())

	b.Record("v1")
	b.Record("v2")
	b.Reset()
	assert.Zero(t, b.Len())
	assert.False(t, b.CanUndo())
	assert.False(t, b.CanRedo())
}

func TestDump(t *testing.T) {
	b := New(DefaultSize)
	b.Record("abc")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b.Dump(logger)

	out := buf.String()
	assert.Equal(t, DefaultSize, strings.Count(out, "\n"))
	assert.Contains(t, out, "![0] 3 bytes")
	assert.Contains(t, out, " [9] empty")
}
