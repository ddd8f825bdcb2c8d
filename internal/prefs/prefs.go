// Package prefs handles ghostkeeper user preferences persistence.
// Preferences are stored in ~/.config/ghostkeeper/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Keys remembered by the core.
const (
	KeyLastProfile   = "last-profile"
	KeyNeverDownload = "never-download"
	KeyAlwaysApply   = "always-apply"
	KeyAlwaysReplace = "always-replace"
)

// Values stored under KeyLastProfile besides index+1.
const (
	LastProfileNone    = 0
	LastProfileDefault = -1
	LastProfileSpecial = -2
)

// Prefs holds user preferences. Values is the opaque key/value store; use
// Store for concurrent access and persistence.
type Prefs struct {
	Theme  string            `toml:"theme"`
	Values map[string]string `toml:"values"`
}

const (
	defaultPrefsPath = "~/.config/ghostkeeper/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	prefs := Prefs{Theme: defaultTheme, Values: map[string]string{}}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: defaultTheme, Values: map[string]string{}}, nil // Graceful degradation
	}

	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	if prefs.Values == nil {
		prefs.Values = map[string]string{}
	}

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

// Store is a concurrency-safe key/value view over Prefs that writes through
// to disk on every change. An empty path keeps everything in memory.
type Store struct {
	mu    sync.Mutex
	path  string
	prefs Prefs
}

// Open loads the preferences at path into a Store.
func Open(path string) *Store {
	p, _ := Load(path)
	return &Store{path: path, prefs: p}
}

// Memory returns a Store that never touches disk.
func Memory() *Store {
	return &Store{prefs: Prefs{Theme: defaultTheme, Values: map[string]string{}}}
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.prefs.Values[key]
	return v, ok
}

// Bool reports whether key holds a true value.
func (s *Store) Bool(key string) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Int returns key parsed as an integer, or def.
func (s *Store) Int(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Set stores value under key and persists.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.prefs.Values[key]; ok && cur == value {
		return nil
	}
	s.prefs.Values[key] = value
	return s.saveLocked()
}

// Delete removes key and persists.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefs.Values[key]; !ok {
		return nil
	}
	delete(s.prefs.Values, key)
	return s.saveLocked()
}

// Theme returns the stored theme name.
func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Theme
}

// SetTheme stores the theme name and persists.
func (s *Store) SetTheme(theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.Theme = theme
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	return Save(s.path, s.prefs)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
