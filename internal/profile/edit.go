package profile

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/ghost"
)

// ValidateNickname checks nick against the nickname rules and the existing
// profiles. except is a profile index whose nickname may be reused (-1 for
// none).
func (s *Store) ValidateNickname(nick string, except int) error {
	if !nicknamePattern.MatchString(nick) {
		return errs.InvalidNickname(nick, "must be 3 to 13 letters, digits or underscores")
	}
	if strings.EqualFold(nick, SpecialNickname) || strings.EqualFold(nick, DefaultNickname) {
		return errs.InvalidNickname(nick, "is reserved")
	}
	if i := s.ProfileByNick(nick); i >= 0 && i != except {
		return errs.InvalidNickname(nick, "is already in use")
	}
	return nil
}

// AddProfile inserts a new, empty profile in front of the default profile
// and returns its index. The selection moves to profile 0.
func (s *Store) AddProfile(nick string) (int, error) {
	if err := s.requireLoaded(); err != nil {
		return -1, err
	}
	if err := s.ValidateNickname(nick, -1); err != nil {
		return -1, err
	}

	el := etree.NewElement(TagProfile)
	el.CreateElement(TagNick).SetText(nick)
	el.CreateElement(TagGhosts)

	switch {
	case s.def != nil && s.def.Parent() != nil:
		parent := s.def.Parent()
		parent.InsertChildAt(s.def.Index(), el)
	case len(s.profiles) > 0 && s.profiles[len(s.profiles)-1].Parent() != nil:
		last := s.profiles[len(s.profiles)-1]
		parent := last.Parent()
		parent.InsertChildAt(last.Index()+1, el)
	default:
		return -1, errs.ProfileTopology("cannot locate profile container")
	}

	s.profiles = append(s.profiles, el)
	s.dirty = true
	if err := s.SelectProfile(0); err != nil {
		return -1, err
	}
	return len(s.profiles) - 1, nil
}

// RenameProfile renames the active profile. The default and special
// profiles cannot be renamed.
func (s *Store) RenameProfile(nick string) error {
	if err := s.requireEditable(s.active); err != nil {
		return err
	}
	cur, err := s.Nickname()
	if err != nil {
		return err
	}
	if cur == nick {
		return nil
	}
	if err := s.ValidateNickname(nick, s.active); err != nil {
		return err
	}
	s.current.SelectElement(TagNick).SetText(nick)
	s.dirty = true
	return nil
}

// DeleteProfile removes profile index and selects profile 0. The default
// and special profiles cannot be deleted.
func (s *Store) DeleteProfile(index int) error {
	if err := s.requireEditable(index); err != nil {
		return err
	}
	if len(s.profiles) < 2 && s.def == nil {
		return errs.ProfileTopology("cannot delete the last profile")
	}
	el := s.profiles[index]
	if parent := el.Parent(); parent != nil {
		parent.RemoveChild(el)
	}
	s.profiles = append(s.profiles[:index], s.profiles[index+1:]...)
	s.dirty = true
	return s.SelectProfile(0)
}

func (s *Store) requireEditable(index int) error {
	if _, err := s.profileElement(index); err != nil {
		return err
	}
	if index == s.DefaultProfileIndex() {
		return errs.ProfileTopology("the default profile cannot be edited")
	}
	if s.IsSpecialIndex(index) {
		return errs.ProfileTopology("the %s profile cannot be edited", SpecialNickname)
	}
	return nil
}

// Replace rewrites the active profile's ghosts as records, in order.
func (s *Store) Replace(records []*ghost.Record) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	for i := s.GhostCount() - 1; i >= 0; i-- {
		if err := s.DeleteGhost(i); err != nil {
			return err
		}
	}
	for _, r := range records {
		if _, err := s.AddGhost(r); err != nil {
			return err
		}
	}
	return nil
}
