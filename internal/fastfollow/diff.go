package fastfollow

import (
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/profile"
)

// Change is a grid cell the game wrote a new result into.
type Change struct {
	Condition   game.Condition
	Record      *ghost.Record
	FromDefault bool
}

// Ticket reports whether the change belongs to the ticket dimension.
func (c Change) Ticket() bool { return c.Record != nil && c.Record.HasTicket() }

// Profile names the profile kind the change came from.
func (c Change) Profile() string {
	if c.FromDefault {
		return "default"
	}
	return "active"
}

// Diff compares two grids of the same profile. A cell is changed when it
// was empty before and is occupied after, or when both hold a record and
// the times differ. Cells that became empty are ignored. A nil grid counts
// as empty.
func Diff(before, after *profile.Grid, fromDefault bool) []Change {
	if after == nil {
		return nil
	}
	var out []Change
	after.Each(func(m, t, w int, rec *ghost.Record) {
		if rec == nil {
			return
		}
		var old *ghost.Record
		if before != nil {
			old = before.At(m, t, w)
		}
		if old != nil && old.Time() == rec.Time() {
			return
		}
		out = append(out, Change{
			Condition:   rec.Condition(),
			Record:      rec,
			FromDefault: fromDefault,
		})
	})
	return out
}
