package profile

import (
	"sort"

	"github.com/five82/ghostkeeper/internal/ghost"
)

// Resort rewrites the active profile in canonical grid order.
//
// In the special profile every record is kept and each cell is ordered by
// time. Elsewhere a cell holding more than one record makes Resort return
// needsConfirm without changing anything, unless dropDuplicates is set, in
// which case only the first occupant of each cell is kept. Records whose
// condition the catalog does not know are appended in their original order.
func (s *Store) Resort(dropDuplicates bool) (needsConfirm bool, err error) {
	if err := s.requireLoaded(); err != nil {
		return false, err
	}

	var ordered []*ghost.Record
	if s.IsSpecialProfile() {
		s.GhostList().Each(func(_, _, _ int, rs []*ghost.Record) {
			cell := append([]*ghost.Record(nil), rs...)
			sort.SliceStable(cell, func(i, j int) bool { return cell[i].Time() < cell[j].Time() })
			ordered = append(ordered, cell...)
		})
	} else {
		grid, ok := s.AllGhosts(!dropDuplicates)
		if !ok {
			return true, nil
		}
		grid.Each(func(_, _, _ int, r *ghost.Record) {
			if r != nil {
				ordered = append(ordered, r)
			}
		})
	}

	for _, g := range s.ghosts {
		if _, _, _, known := s.catalog.Cell(g.Condition()); !known {
			ordered = append(ordered, g)
		}
	}
	return false, s.Replace(ordered)
}
