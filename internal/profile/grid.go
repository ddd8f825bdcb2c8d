package profile

import (
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
)

// Grid is a read-only [mode][track][weather] projection of a profile holding
// at most one record per cell.
type Grid struct {
	catalog *game.Catalog
	cells   [][][]*ghost.Record
}

func newGrid(c *game.Catalog) *Grid {
	cells := make([][][]*ghost.Record, len(c.Modes))
	for m := range cells {
		cells[m] = make([][]*ghost.Record, len(c.Tracks))
		for t := range cells[m] {
			cells[m][t] = make([]*ghost.Record, len(c.Weathers))
		}
	}
	return &Grid{catalog: c, cells: cells}
}

// Catalog returns the catalog the grid is dimensioned by.
func (g *Grid) Catalog() *game.Catalog { return g.catalog }

// At returns the record at grid coordinates, or nil.
func (g *Grid) At(m, t, w int) *ghost.Record { return g.cells[m][t][w] }

// Get returns the record stored for cond, or nil.
func (g *Grid) Get(cond game.Condition) *ghost.Record {
	m, t, w, ok := g.catalog.Cell(cond)
	if !ok {
		return nil
	}
	return g.cells[m][t][w]
}

// Each calls fn for every cell in canonical order, empty cells included.
func (g *Grid) Each(fn func(m, t, w int, r *ghost.Record)) {
	for m := range g.cells {
		for t := range g.cells[m] {
			for w := range g.cells[m][t] {
				fn(m, t, w, g.cells[m][t][w])
			}
		}
	}
}

// Len returns the number of occupied cells.
func (g *Grid) Len() int {
	n := 0
	g.Each(func(_, _, _ int, r *ghost.Record) {
		if r != nil {
			n++
		}
	})
	return n
}

// Equal reports whether two grids hold the same serialized records
// cell-for-cell.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if len(g.cells) != len(o.cells) {
		return false
	}
	equal := true
	g.Each(func(m, t, w int, r *ghost.Record) {
		if !equal {
			return
		}
		if t >= len(o.cells[m]) || w >= len(o.cells[m][t]) {
			equal = false
			return
		}
		other := o.cells[m][t][w]
		switch {
		case r == nil && other == nil:
		case r == nil || other == nil:
			equal = false
		default:
			equal = r.ToSerialized() == other.ToSerialized()
		}
	})
	return equal
}

// List is like Grid but keeps every record per cell in insertion order.
type List struct {
	catalog *game.Catalog
	cells   [][][][]*ghost.Record
}

func newList(c *game.Catalog) *List {
	cells := make([][][][]*ghost.Record, len(c.Modes))
	for m := range cells {
		cells[m] = make([][][]*ghost.Record, len(c.Tracks))
		for t := range cells[m] {
			cells[m][t] = make([][]*ghost.Record, len(c.Weathers))
		}
	}
	return &List{catalog: c, cells: cells}
}

// At returns the records at grid coordinates.
func (l *List) At(m, t, w int) []*ghost.Record { return l.cells[m][t][w] }

// Get returns the records stored for cond.
func (l *List) Get(cond game.Condition) []*ghost.Record {
	m, t, w, ok := l.catalog.Cell(cond)
	if !ok {
		return nil
	}
	return l.cells[m][t][w]
}

// Each calls fn for every cell in canonical order, empty cells included.
func (l *List) Each(fn func(m, t, w int, rs []*ghost.Record)) {
	for m := range l.cells {
		for t := range l.cells[m] {
			for w := range l.cells[m][t] {
				fn(m, t, w, l.cells[m][t][w])
			}
		}
	}
}
