package profile

import (
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
)

// ImportResult describes the outcome of Import.
type ImportResult struct {
	// Imported is the number of records appended.
	Imported int
	// Rejected is set when the batch would replace existing ghosts and
	// force was not given. Nothing was changed.
	Rejected bool
	// Highlight lists the rows the caller should select afterwards.
	Highlight []int
}

// Conflicts reports whether any record in batch would replace a ghost of the
// active profile.
func (s *Store) Conflicts(batch []*ghost.Record) bool {
	if s.IsSpecialProfile() {
		return false
	}
	for _, r := range batch {
		if len(s.FindByCondition(r.Condition())) > 0 {
			return true
		}
	}
	return false
}

// Import merges batch into the active profile.
//
// Outside the special profile, a batch touching an occupied condition is
// rejected as a whole unless force is set, and after each append every older
// occupant of the record's condition is deleted. Within one batch the last
// record per condition therefore survives.
func (s *Store) Import(batch []*ghost.Record, force bool) (ImportResult, error) {
	var res ImportResult
	if err := s.requireLoaded(); err != nil {
		return res, err
	}
	if len(batch) == 0 {
		return res, nil
	}

	dedupe := !s.IsSpecialProfile()
	if !force && s.Conflicts(batch) {
		res.Rejected = true
		return res, nil
	}

	for _, r := range batch {
		if _, err := s.AddGhost(r); err != nil {
			return res, err
		}
		res.Imported++
		if !dedupe {
			continue
		}
		idx := s.FindByCondition(r.Condition())
		for h := len(idx) - 2; h >= 0; h-- {
			if err := s.DeleteGhost(idx[h]); err != nil {
				return res, err
			}
		}
	}

	if !dedupe {
		for i := s.GhostCount() - len(batch); i < s.GhostCount(); i++ {
			res.Highlight = append(res.Highlight, i)
		}
		return res, nil
	}

	conds := make([]game.Condition, 0, len(batch))
	for _, r := range batch {
		conds = append(conds, r.Condition())
	}
	for i, g := range s.ghosts {
		for _, c := range conds {
			if g.Condition().Equal(c) {
				res.Highlight = append(res.Highlight, i)
				break
			}
		}
	}
	return res, nil
}
