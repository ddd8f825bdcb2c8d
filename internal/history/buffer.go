// Package history keeps a bounded log of serialized store snapshots for
// undo and redo.
//
// Slot 0 is the newest snapshot. Undo moves the cursor towards older slots,
// redo back towards 0. Recording while the cursor is not at 0 discards the
// redo branch. Restoring a slot is delegated to the caller, which writes the
// snapshot back to disk and reloads from it.
package history

import (
	"fmt"
	"log/slog"
)

// DefaultSize is the number of snapshots kept when no size is configured.
const DefaultSize = 10

// Buffer is a fixed-capacity, branch-truncating snapshot log. The zero value
// is not usable; call New. Buffer is not safe for concurrent use.
type Buffer struct {
	slots  []string
	cursor int
}

// New returns an empty buffer holding at most size snapshots.
func New(size int) *Buffer {
	if size < 1 {
		size = DefaultSize
	}
	return &Buffer{slots: make([]string, size)}
}

// Reset clears every slot and moves the cursor to 0.
func (b *Buffer) Reset() {
	for i := range b.slots {
		b.slots[i] = ""
	}
	b.cursor = 0
}

// Record stores snapshot as the newest slot. Empty snapshots are ignored.
func (b *Buffer) Record(snapshot string) {
	if snapshot == "" {
		return
	}
	next := make([]string, len(b.slots))
	next[0] = snapshot

	// slots before the cursor form the redo branch and are dropped
	i, n := b.cursor, 1
	for i < len(b.slots) && n < len(next) {
		next[n] = b.slots[i]
		n++
		i++
	}
	b.slots = next
	b.cursor = 0
}

// Undo restores the next older snapshot. It reports false without calling
// restore when there is none. The cursor only moves if restore succeeds.
func (b *Buffer) Undo(restore func(snapshot string) error) (bool, error) {
	return b.move(b.cursor+1, restore)
}

// Redo restores the next newer snapshot. Same contract as Undo.
func (b *Buffer) Redo(restore func(snapshot string) error) (bool, error) {
	return b.move(b.cursor-1, restore)
}

func (b *Buffer) move(target int, restore func(string) error) (bool, error) {
	if !b.available(target) {
		return false, nil
	}
	if err := restore(b.slots[target]); err != nil {
		return false, fmt.Errorf("restore history slot %d: %w", target, err)
	}
	b.cursor = target
	return true, nil
}

func (b *Buffer) available(i int) bool {
	return i >= 0 && i < len(b.slots) && b.slots[i] != ""
}

// CanUndo reports whether an older snapshot exists.
func (b *Buffer) CanUndo() bool { return b.available(b.cursor + 1) }

// CanRedo reports whether a newer snapshot exists.
func (b *Buffer) CanRedo() bool { return b.available(b.cursor - 1) }

// Index returns the cursor; 0 is the newest snapshot.
func (b *Buffer) Index() int { return b.cursor }

// Size returns the capacity.
func (b *Buffer) Size() int { return len(b.slots) }

// Len returns the number of occupied slots.
func (b *Buffer) Len() int {
	n := 0
	for _, s := range b.slots {
		if s != "" {
			n++
		}
	}
	return n
}

// Dump logs one line per slot at debug level.
func (b *Buffer) Dump(logger *slog.Logger) {
	if logger == nil {
		return
	}
	width := len(fmt.Sprint(len(b.slots) - 1))
	for i, s := range b.slots {
		mark := " "
		if i == b.cursor {
			mark = "!"
		}
		size := "empty"
		if s != "" {
			size = fmt.Sprintf("%d bytes", len(s))
		}
		logger.Debug(fmt.Sprintf("%s[%0*d] %s", mark, width, i, size))
	}
}
