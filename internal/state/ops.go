package state

import (
	"sort"
	"strconv"

	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/prefs"
	"github.com/five82/ghostkeeper/internal/profile"
)

// SelectProfile activates profile index and remembers it as the last
// profile.
func (s *Session) SelectProfile(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()

	if err := s.store.SelectProfile(index); err != nil {
		return err
	}
	last := index + 1
	switch {
	case s.store.IsDefaultProfile():
		last = prefs.LastProfileDefault
	case s.store.IsSpecialProfile():
		last = prefs.LastProfileSpecial
	}
	if err := s.prefs.Set(prefs.KeyLastProfile, strconv.Itoa(last)); err != nil {
		s.log.Warn("remember last profile failed", "error", err)
	}
	return nil
}

// SelectLastProfile activates the profile remembered by SelectProfile,
// falling back to profile 0.
func (s *Session) SelectLastProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()

	idx := 0
	switch last := s.prefs.Int(prefs.KeyLastProfile, prefs.LastProfileNone); {
	case last == prefs.LastProfileDefault:
		if d := s.store.DefaultProfileIndex(); d >= 0 {
			idx = d
		}
	case last == prefs.LastProfileSpecial:
		if i := s.store.ProfileByNick(profile.SpecialNickname); i >= 0 {
			idx = i
		}
	case last > 0:
		idx = last - 1
	}
	return s.selectClampedLocked(idx)
}

// Import merges batch into the active profile. The always-replace
// preference acts as force. A rejected batch leaves everything unchanged.
func (s *Session) Import(batch []*ghost.Record, force bool) (profile.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()

	if !force && s.prefs.Bool(prefs.KeyAlwaysReplace) {
		force = true
	}
	res, err := s.store.Import(batch, force)
	if err != nil {
		return res, err
	}
	if res.Rejected {
		s.log.Info("import needs confirmation", "records", len(batch))
		return res, nil
	}
	s.log.Info("ghosts imported", "records", res.Imported, "force", force)
	return res, s.autosaveLocked()
}

// DeleteGhosts removes the ghosts at indices from the active profile.
func (s *Session) DeleteGhosts(indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()

	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	prev := -1
	for _, i := range sorted {
		if i == prev {
			continue
		}
		prev = i
		if err := s.store.DeleteGhost(i); err != nil {
			return err
		}
	}
	s.log.Info("ghosts deleted", "count", len(indices))
	return s.autosaveLocked()
}

// Resort rewrites the active profile in canonical order. When a
// non-special profile holds more than one ghost for a condition, confirm is
// asked whether to drop the extra ones; declining leaves the profile
// untouched and Resort reports false.
func (s *Session) Resort(confirm func() bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()

	needsConfirm, err := s.store.Resort(false)
	if err != nil {
		return false, err
	}
	if needsConfirm {
		if confirm == nil || !confirm() {
			s.log.Info("resort declined")
			return false, nil
		}
		if _, err := s.store.Resort(true); err != nil {
			return false, err
		}
	}
	s.log.Info("profile resorted", "ghosts", s.store.GhostCount())
	return true, s.autosaveLocked()
}

// Export renders the ghosts at indices in import format.
func (s *Session) Export(indices []int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Export(indices)
}

// SetToken stores the scoreboard token of the active profile.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()
	if err := s.store.SetToken(token); err != nil {
		return err
	}
	return s.autosaveLocked()
}

// ClearToken removes the scoreboard token of the active profile.
func (s *Session) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()
	if err := s.store.ClearToken(); err != nil {
		return err
	}
	return s.autosaveLocked()
}

// AddProfile creates a profile. Profile edits clear the undo history.
func (s *Session) AddProfile(nick string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()

	if err := s.store.ValidateNickname(nick, -1); err != nil {
		return -1, err
	}
	s.history.Reset()
	idx, err := s.store.AddProfile(nick)
	if err != nil {
		return -1, err
	}
	s.log.Info("profile added", "nickname", nick, "index", idx)
	return idx, s.autosaveLocked()
}

// RenameProfile renames the active profile.
func (s *Session) RenameProfile(nick string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()

	if err := s.store.ValidateNickname(nick, s.store.Active()); err != nil {
		return err
	}
	s.history.Reset()
	if err := s.store.RenameProfile(nick); err != nil {
		return err
	}
	s.log.Info("profile renamed", "nickname", nick)
	return s.autosaveLocked()
}

// DeleteProfile removes profile index.
func (s *Session) DeleteProfile(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()

	s.history.Reset()
	if err := s.store.DeleteProfile(index); err != nil {
		return err
	}
	s.log.Info("profile deleted", "index", index)
	return s.autosaveLocked()
}
