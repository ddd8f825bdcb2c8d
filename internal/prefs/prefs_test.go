package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaultTheme, p.Theme)
	assert.NotNil(t, p.Values)
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "ghostkeeper")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	body := "theme = \"Glacier\"\n\n[values]\nlast-profile = \"2\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prefs.toml"), []byte(body), 0o644))

	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Glacier", p.Theme)
	assert.Equal(t, "2", p.Values[KeyLastProfile])
}

func TestLoad_DegradesGracefully(t *testing.T) {
	tests := map[string]string{
		"empty theme":  "theme = \"\"\n",
		"invalid toml": "not valid toml {{{\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			p, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, defaultTheme, p.Theme)
			assert.NotNil(t, p.Values)
		})
	}
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	require.NoError(t, Save(path, Prefs{Theme: "Glacier", Values: map[string]string{KeyAlwaysApply: "true"}}))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Glacier", loaded.Theme)
	assert.Equal(t, "true", loaded.Values[KeyAlwaysApply])
}

func TestStore_WritesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	s := Open(path)

	_, ok := s.Get(KeyLastProfile)
	assert.False(t, ok)
	assert.Equal(t, 7, s.Int(KeyLastProfile, 7))

	require.NoError(t, s.Set(KeyLastProfile, "-2"))
	require.NoError(t, s.Set(KeyNeverDownload, "true"))
	require.NoError(t, s.SetTheme("Nord"))

	reopened := Open(path)
	assert.Equal(t, LastProfileSpecial, reopened.Int(KeyLastProfile, 0))
	assert.True(t, reopened.Bool(KeyNeverDownload))
	assert.Equal(t, "Nord", reopened.Theme())

	require.NoError(t, reopened.Delete(KeyNeverDownload))
	assert.False(t, Open(path).Bool(KeyNeverDownload))
}

func TestMemoryStore(t *testing.T) {
	s := Memory()
	require.NoError(t, s.Set(KeyAlwaysReplace, "yes"))
	assert.False(t, s.Bool(KeyAlwaysReplace), "only strconv booleans count")
	require.NoError(t, s.Set(KeyAlwaysReplace, "true"))
	assert.True(t, s.Bool(KeyAlwaysReplace))
}
