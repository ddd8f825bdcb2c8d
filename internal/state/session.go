package state

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/history"
	"github.com/five82/ghostkeeper/internal/logger"
	"github.com/five82/ghostkeeper/internal/metrics"
	"github.com/five82/ghostkeeper/internal/prefs"
	"github.com/five82/ghostkeeper/internal/profile"
	"github.com/five82/ghostkeeper/internal/watch"
)

// Options configure a Session.
type Options struct {
	Path        string
	Catalog     *game.Catalog
	HistorySize int
	Autosave    bool
	Prefs       *prefs.Store
	Logger      *slog.Logger
	Metrics     *metrics.Manager
}

// Snapshot is a copy of the session state for rendering. Ghost records are
// immutable and shared.
type Snapshot struct {
	Path         string
	Catalog      *game.Catalog
	Profiles     []string
	Active       int
	DefaultIndex int
	Special      bool
	Ghosts       []*ghost.Record
	HasToken     bool
	Dirty        bool
	CanUndo      bool
	CanRedo      bool
	HistoryIndex int
	WatchState   watch.State
	LastError    error
	LastUpdated  time.Time
	Version      uint64
}

// Session is the single owner of a profiles file: the profile store, its
// undo history and the preferences that go with it. Every method takes the
// session lock, so the interactive flow and fast-follow never touch the
// store at the same time.
type Session struct {
	mu       sync.Mutex
	store    *profile.Store
	history  *history.Buffer
	prefs    *prefs.Store
	autosave bool
	log      *slog.Logger
	metrics  *metrics.Manager

	watchState watch.State
	loadedAt   time.Time
	lastErr    error
	updated    time.Time
	version    uint64

	ownWrite atomic.Int64
}

// Open loads the profiles file at opts.Path and records it as the first
// history entry. The file itself is not rewritten.
func Open(opts Options) (*Session, error) {
	log := logger.OrDiscard(opts.Logger).With("component", "session")
	loadedAt, _ := modTime(opts.Path)
	store, err := profile.Open(opts.Path, opts.Catalog)
	if err != nil {
		return nil, err
	}
	p := opts.Prefs
	if p == nil {
		p = prefs.Memory()
	}
	s := &Session{
		store:    store,
		history:  history.New(opts.HistorySize),
		prefs:    p,
		autosave: opts.Autosave,
		log:      log,
		metrics:  opts.Metrics,
		loadedAt: loadedAt,
	}
	if err := s.recordLocked(); err != nil {
		return nil, err
	}
	s.touchLocked()
	log.Info("profiles loaded", "path", opts.Path, "profiles", store.ProfileCount())
	return s, nil
}

// Tx gives code running under Exclusive direct access to the store and the
// lock-free variants of the session's persistence operations.
type Tx struct {
	s *Session
}

// Store returns the locked profile store.
func (tx *Tx) Store() *profile.Store { return tx.s.store }

// Save writes the store to disk if it is dirty or force is set.
func (tx *Tx) Save(force bool) (bool, error) { return tx.s.saveLocked(force) }

// Reload re-reads the file, discarding unsaved changes, and keeps the active
// profile where possible.
func (tx *Tx) Reload() error { return tx.s.reloadLocked() }

// LoadedAt returns the modification time of the file content the store
// holds.
func (tx *Tx) LoadedAt() time.Time { return tx.s.loadedAt }

// Prefs returns the preference store.
func (tx *Tx) Prefs() *prefs.Store { return tx.s.prefs }

// Exclusive runs fn while holding the session lock.
func (s *Session) Exclusive(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(&Tx{s: s})
	s.touchLocked()
	return err
}

// Prefs returns the preference store.
func (s *Session) Prefs() *prefs.Store { return s.prefs }

// Catalog returns the catalog of the loaded store.
func (s *Session) Catalog() *game.Catalog { return s.store.Catalog() }

// Path returns the profiles file path.
func (s *Session) Path() string { return s.store.Path() }

// Save writes the store to disk if it is dirty or force is set. It reports
// whether anything was written.
func (s *Session) Save(force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, err := s.saveLocked(force)
	s.touchLocked()
	return saved, err
}

func (s *Session) saveLocked(force bool) (bool, error) {
	if !s.store.Loaded() {
		return false, errs.ErrNotLoaded
	}
	if !force && !s.store.IsDirty() {
		s.log.Debug("nothing to save")
		return false, nil
	}
	text, err := s.store.Serialize()
	if err != nil {
		return false, err
	}
	if err := s.writeLocked(text); err != nil {
		return false, err
	}
	s.history.Record(text)
	s.store.MarkSaved()
	s.metrics.Save()
	s.history.Dump(s.log)
	s.log.Info("profiles saved", "path", s.store.Path(), "bytes", len(text))
	return true, nil
}

// writeLocked replaces the profiles file through a temp file and rename so
// the game never reads a half-written document.
func (s *Session) writeLocked(text string) error {
	path := s.store.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write profiles %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace profiles %s: %w", path, err)
	}
	if mt, err := modTime(path); err == nil {
		s.ownWrite.Store(mt.UnixNano())
		s.loadedAt = mt
	}
	return nil
}

// LoadedAt returns the modification time of the file content the store
// holds, taken before it was read. A write after that time is a change the
// store has not seen.
func (s *Session) LoadedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedAt
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *Session) recordLocked() error {
	text, err := s.store.Serialize()
	if err != nil {
		return err
	}
	s.history.Record(text)
	s.history.Dump(s.log)
	return nil
}

// OwnWrite reports whether mt is the modification time left by the
// session's latest write. It does not take the session lock.
func (s *Session) OwnWrite(mt time.Time) bool {
	last := s.ownWrite.Load()
	return last != 0 && mt.UnixNano() == last
}

// autosaveLocked saves after a mutation when autosave is enabled.
func (s *Session) autosaveLocked() error {
	if !s.autosave {
		return nil
	}
	s.log.Debug("autosave triggered")
	_, err := s.saveLocked(false)
	return err
}

// Reload re-reads the file from disk. Unsaved changes make it fail with
// errs.ErrUnsavedChanges unless force is set.
func (s *Session) Reload(force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()
	if !force && s.store.IsDirty() {
		return errs.ErrUnsavedChanges
	}
	return s.reloadLocked()
}

func (s *Session) reloadLocked() error {
	idx := s.store.Active()
	s.log.Debug("reloading profiles", "path", s.store.Path())
	if mt, err := modTime(s.store.Path()); err == nil {
		s.loadedAt = mt
	}
	if err := s.store.Reload(); err != nil {
		return err
	}
	return s.selectClampedLocked(idx)
}

func (s *Session) selectClampedLocked(idx int) error {
	if idx < 0 || idx >= s.store.ProfileCount() {
		idx = 0
	}
	return s.store.SelectProfile(idx)
}

// Undo restores the previous history entry. It reports false when there is
// nothing to undo.
func (s *Session) Undo() (bool, error) {
	return s.restore("undo", s.history.Undo)
}

// Redo restores the next history entry. It reports false when there is
// nothing to redo.
func (s *Session) Redo() (bool, error) {
	return s.restore("redo", s.history.Redo)
}

func (s *Session) restore(direction string, move func(func(string) error) (bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.touchLocked()

	if s.store.IsDirty() {
		return false, errs.ErrUnsavedChanges
	}
	ok, err := move(func(text string) error {
		if err := s.writeLocked(text); err != nil {
			return err
		}
		return s.reloadLocked()
	})
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Debug("history restore impossible", "direction", direction, "index", s.history.Index())
		return false, nil
	}
	s.metrics.HistoryRestore(direction)
	s.history.Dump(s.log)
	s.log.Info("history restored", "direction", direction, "index", s.history.Index())
	return true, nil
}

// SetWatchState records the fast-follow watcher state for display.
func (s *Session) SetWatchState(st watch.State) {
	s.metrics.WatchState(int(st))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchState = st
	s.touchLocked()
}

// RecordError stores err as the last error shown to the user. A nil err
// clears it.
func (s *Session) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.updated = time.Now()
	s.version++
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Path:         s.store.Path(),
		Catalog:      s.store.Catalog(),
		Active:       s.store.Active(),
		DefaultIndex: s.store.DefaultProfileIndex(),
		Special:      s.store.IsSpecialProfile(),
		Ghosts:       s.store.Ghosts(),
		Dirty:        s.store.IsDirty(),
		CanUndo:      s.history.CanUndo(),
		CanRedo:      s.history.CanRedo(),
		HistoryIndex: s.history.Index(),
		WatchState:   s.watchState,
		LastUpdated:  s.updated,
		Version:      s.version,
	}
	if names, err := s.store.Profiles(); err == nil {
		snap.Profiles = names
	}
	_, snap.HasToken = s.store.Token()
	if s.lastErr != nil {
		snap.LastError = fmt.Errorf("%w", s.lastErr)
	}
	return snap
}
