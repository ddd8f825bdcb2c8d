package profile

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
)

// Element names of the profiles document.
const (
	TagProfile = "OfflineProfile"
	TagDefault = "DefaultProfile"
	TagGhosts  = "TrainingGhosts"
	TagNick    = "Nickname"
	TagToken   = "Token"
)

// Reserved nicknames.
const (
	SpecialNickname = "SpecialProfile"
	DefaultNickname = "DefaultUser"
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,13}$`)

// Store owns one parsed profiles document. It is not safe for concurrent
// use; callers serialize access (see state.Session).
type Store struct {
	path    string
	catalog *game.Catalog

	doc      *etree.Document
	profiles []*etree.Element
	def      *etree.Element

	active   int
	current  *etree.Element
	training *etree.Element
	ghosts   []*ghost.Record
	nodes    []*etree.Element

	dirty bool
}

// Open loads the document at path.
func Open(path string, catalog *game.Catalog) (*Store, error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}
	s := &Store{path: path, catalog: catalogOrDefault(catalog)}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse loads a document from text. The resulting store has no backing file.
func Parse(text string, catalog *game.Catalog) (*Store, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, errs.Parse("invalid profiles document").WithCause(err)
	}
	s := &Store{catalog: catalogOrDefault(catalog)}
	if err := s.load(doc); err != nil {
		return nil, err
	}
	return s, nil
}

func catalogOrDefault(c *game.Catalog) *game.Catalog {
	if c == nil {
		return game.DefaultCatalog()
	}
	return c
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("profiles file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("profiles file %s is not a regular file", path)
	}
	return nil
}

// Path returns the backing file, or "" for stores built with Parse.
func (s *Store) Path() string { return s.path }

// Catalog returns the catalog grids are built from.
func (s *Store) Catalog() *game.Catalog { return s.catalog }

// Reload re-reads the backing file and selects profile 0. On failure the
// store is left empty.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("store has no backing file")
	}
	s.reset()
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(s.path); err != nil {
		return errs.Parse("invalid profiles document %s", s.path).WithCause(err)
	}
	if err := s.load(doc); err != nil {
		s.reset()
		return err
	}
	return nil
}

func (s *Store) reset() {
	s.doc = nil
	s.profiles = nil
	s.def = nil
	s.active = 0
	s.current = nil
	s.training = nil
	s.ghosts = nil
	s.nodes = nil
	s.dirty = false
}

func (s *Store) load(doc *etree.Document) error {
	profiles := doc.FindElements("//" + TagProfile)
	defaults := doc.FindElements("//" + TagDefault)

	switch {
	case len(profiles) == 0 && len(defaults) == 0:
		return errs.Parse("missing <%s> and <%s> tags", TagProfile, TagDefault)
	case len(defaults) > 1:
		return errs.Parse("too many <%s> tags", TagDefault)
	}

	s.doc = doc
	s.profiles = profiles
	s.def = nil
	if len(defaults) == 1 {
		s.def = defaults[0]
	}
	s.dirty = false
	return s.SelectProfile(0)
}

// Loaded reports whether a document is present.
func (s *Store) Loaded() bool { return s.doc != nil }

func (s *Store) requireLoaded() error {
	if s.doc == nil {
		return errs.ErrNotLoaded
	}
	return nil
}

// ProfileCount returns the number of profiles, the default profile included.
func (s *Store) ProfileCount() int {
	n := len(s.profiles)
	if s.def != nil {
		n++
	}
	return n
}

// DefaultProfileIndex returns the index of the default profile, or -1.
func (s *Store) DefaultProfileIndex() int {
	if s.def == nil {
		return -1
	}
	return s.ProfileCount() - 1
}

func (s *Store) profileElement(index int) (*etree.Element, error) {
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if index < 0 || index >= s.ProfileCount() {
		return nil, errs.IndexOutOfRange("profile", index, s.ProfileCount())
	}
	if index == s.DefaultProfileIndex() {
		return s.def, nil
	}
	return s.profiles[index], nil
}

// Profiles returns the nickname of every profile in index order.
func (s *Store) Profiles() ([]string, error) {
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	out := make([]string, s.ProfileCount())
	for i := range out {
		nick, err := s.nicknameAt(i)
		if err != nil {
			return nil, err
		}
		out[i] = nick
	}
	return out, nil
}

func (s *Store) nicknameAt(index int) (string, error) {
	el, err := s.profileElement(index)
	if err != nil {
		return "", err
	}
	nick := el.SelectElement(TagNick)
	if nick == nil {
		return "", errs.MissingNickname(index)
	}
	return nick.Text(), nil
}

// Nickname returns the nickname of the active profile.
func (s *Store) Nickname() (string, error) {
	return s.nicknameAt(s.active)
}

// ProfileByNick returns the index of the profile with nick
// (case-insensitive), or -1.
func (s *Store) ProfileByNick(nick string) int {
	for i := 0; i < s.ProfileCount(); i++ {
		n, err := s.nicknameAt(i)
		if err == nil && strings.EqualFold(n, nick) {
			return i
		}
	}
	return -1
}

// IsSpecialIndex reports whether profile index carries the special nickname.
func (s *Store) IsSpecialIndex(index int) bool {
	nick, err := s.nicknameAt(index)
	return err == nil && strings.EqualFold(nick, SpecialNickname)
}

// IsSpecialProfile reports whether the active profile is the special profile.
func (s *Store) IsSpecialProfile() bool { return s.IsSpecialIndex(s.active) }

// IsDefaultProfile reports whether the active profile is the default profile.
func (s *Store) IsDefaultProfile() bool {
	return s.doc != nil && s.active == s.DefaultProfileIndex()
}

// Active returns the active profile index.
func (s *Store) Active() int { return s.active }

// SelectProfile makes index the active profile and re-parses its ghosts.
// On failure the previous selection is kept.
func (s *Store) SelectProfile(index int) error {
	el, err := s.profileElement(index)
	if err != nil {
		return err
	}

	training := el.SelectElement(TagGhosts)
	var (
		ghosts []*ghost.Record
		nodes  []*etree.Element
	)
	if training != nil {
		nodes = training.SelectElements(ghost.Tag)
		ghosts = make([]*ghost.Record, 0, len(nodes))
		for i, n := range nodes {
			r, err := ghost.FromElement(n)
			if err != nil {
				return fmt.Errorf("profile #%d ghost #%d: %w", index, i, err)
			}
			ghosts = append(ghosts, r)
		}
	}

	s.active = index
	s.current = el
	s.training = training
	s.ghosts = ghosts
	s.nodes = nodes
	return nil
}

// GhostCount returns the number of ghosts in the active profile.
func (s *Store) GhostCount() int { return len(s.ghosts) }

// Ghost returns the ghost at index i of the active profile.
func (s *Store) Ghost(i int) (*ghost.Record, error) {
	if i < 0 || i >= len(s.ghosts) {
		return nil, errs.IndexOutOfRange("ghost", i, len(s.ghosts))
	}
	return s.ghosts[i], nil
}

// Ghosts returns the ghosts of the active profile in document order.
func (s *Store) Ghosts() []*ghost.Record {
	return append([]*ghost.Record(nil), s.ghosts...)
}

// FindByCondition returns the indices of every ghost recorded under cond,
// in insertion order.
func (s *Store) FindByCondition(cond game.Condition) []int {
	var out []int
	for i, g := range s.ghosts {
		if g.Condition().Equal(cond) {
			out = append(out, i)
		}
	}
	return out
}

// AllGhosts projects the active profile onto a grid. When a cell has more
// than one occupant, the first one wins unless warn is set, in which case
// ok is false and no grid is returned.
func (s *Store) AllGhosts(warn bool) (grid *Grid, ok bool) {
	grid = newGrid(s.catalog)
	for _, g := range s.ghosts {
		m, t, w, known := s.catalog.Cell(g.Condition())
		if !known {
			continue
		}
		if grid.cells[m][t][w] != nil {
			if warn {
				return nil, false
			}
			continue
		}
		grid.cells[m][t][w] = g
	}
	return grid, true
}

// GhostList projects the active profile onto a grid keeping every record.
func (s *Store) GhostList() *List {
	list := newList(s.catalog)
	for _, g := range s.ghosts {
		m, t, w, known := s.catalog.Cell(g.Condition())
		if !known {
			continue
		}
		list.cells[m][t][w] = append(list.cells[m][t][w], g)
	}
	return list
}

// ProfileGrid builds the grid of profile index and restores the previous
// selection afterwards.
func (s *Store) ProfileGrid(index int) (*Grid, error) {
	prev := s.active
	if index == prev {
		g, _ := s.AllGhosts(false)
		return g, nil
	}
	if err := s.SelectProfile(index); err != nil {
		return nil, err
	}
	g, _ := s.AllGhosts(false)
	if err := s.SelectProfile(prev); err != nil {
		return nil, err
	}
	return g, nil
}

// AddGhost appends r to the active profile and returns its index.
func (s *Store) AddGhost(r *ghost.Record) (int, error) {
	if err := s.requireLoaded(); err != nil {
		return -1, err
	}
	if r == nil {
		return -1, errs.MalformedRecord("record", "is nil")
	}
	s.dirty = true
	if s.training == nil {
		s.training = s.current.CreateElement(TagGhosts)
	}
	node := r.Element()
	s.training.AddChild(node)

	added, err := ghost.FromElement(node)
	if err != nil {
		return -1, err
	}
	s.ghosts = append(s.ghosts, added)
	s.nodes = append(s.nodes, node)

	if err := s.checkConsistency(); err != nil {
		return -1, err
	}
	return len(s.ghosts) - 1, nil
}

// DeleteGhost removes the ghost at index i of the active profile.
func (s *Store) DeleteGhost(i int) error {
	if i < 0 || i >= len(s.ghosts) {
		return errs.IndexOutOfRange("ghost", i, len(s.ghosts))
	}
	s.dirty = true
	node := s.nodes[i]
	if parent := node.Parent(); parent != nil {
		parent.RemoveChild(node)
	}
	s.ghosts = append(s.ghosts[:i], s.ghosts[i+1:]...)
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
	return s.checkConsistency()
}

func (s *Store) checkConsistency() error {
	inDoc := 0
	if s.training != nil {
		inDoc = len(s.training.SelectElements(ghost.Tag))
	}
	if inDoc != len(s.ghosts) {
		return errs.Consistency(len(s.ghosts), inDoc)
	}
	return nil
}

// Token returns the token of the active profile.
func (s *Store) Token() (string, bool) {
	if s.current == nil {
		return "", false
	}
	el := s.current.SelectElement(TagToken)
	if el == nil {
		return "", false
	}
	return el.Text(), true
}

// SetToken stores token on the active profile.
func (s *Store) SetToken(token string) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if cur, ok := s.Token(); ok && cur == token {
		return nil
	}
	s.removeToken()
	s.current.CreateElement(TagToken).SetText(token)
	s.dirty = true
	return nil
}

// ClearToken removes the token from the active profile.
func (s *Store) ClearToken() error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if s.removeToken() {
		s.dirty = true
	}
	return nil
}

func (s *Store) removeToken() bool {
	removed := false
	for _, el := range s.current.SelectElements(TagToken) {
		s.current.RemoveChild(el)
		removed = true
	}
	return removed
}

// Serialize strips whitespace-only text, re-indents the document with tabs
// and returns it with CRLF line endings.
func (s *Store) Serialize() (string, error) {
	if err := s.requireLoaded(); err != nil {
		return "", err
	}
	s.doc.IndentTabs()
	text, err := s.doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serialize profiles: %w", err)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", "\r\n"), nil
}

// IsDirty reports whether the store changed since the last MarkSaved.
func (s *Store) IsDirty() bool { return s.dirty }

// MarkSaved clears the dirty flag after a successful write.
func (s *Store) MarkSaved() { s.dirty = false }
