package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/prefs"
	"github.com/five82/ghostkeeper/internal/state"
)

func openImportSession(t *testing.T, p *prefs.Store) *state.Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "OfflineProfiles.xml")
	require.NoError(t, os.WriteFile(path, []byte(profilesXML("tok", ghostXML(0, "Alpine", 0, 4000))), 0o644))
	session, err := state.Open(state.Options{Path: path, Catalog: game.DefaultCatalog(), Autosave: true, Prefs: p})
	require.NoError(t, err)
	return session
}

func writeBatch(t *testing.T, ghosts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.xml")
	body := "<Ghosts>\n"
	for _, g := range ghosts {
		body += g + "\n"
	}
	body += "</Ghosts>\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestImportFile(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("new condition is imported", func(t *testing.T) {
		session := openImportSession(t, prefs.Memory())
		err := importFile(session, writeBatch(t, ghostXML(0, "Forest", 0, 5000)), log)
		require.NoError(t, err)
		assert.Len(t, session.Snapshot().Ghosts, 2)
	})

	t.Run("occupied condition fails", func(t *testing.T) {
		session := openImportSession(t, prefs.Memory())
		err := importFile(session, writeBatch(t, ghostXML(0, "Alpine", 0, 3000)), log)
		require.Error(t, err)
		assert.Contains(t, err.Error(), prefs.KeyAlwaysReplace)
		assert.Len(t, session.Snapshot().Ghosts, 1, "rejected batch must leave the profile alone")
	})

	t.Run("always-replace preference overrides", func(t *testing.T) {
		p := prefs.Memory()
		require.NoError(t, p.Set(prefs.KeyAlwaysReplace, "true"))
		session := openImportSession(t, p)
		err := importFile(session, writeBatch(t, ghostXML(0, "Alpine", 0, 3000)), log)
		require.NoError(t, err)
		ghosts := session.Snapshot().Ghosts
		require.Len(t, ghosts, 1)
		assert.Equal(t, int64(3000), ghosts[0].Time())
	})

	t.Run("missing file", func(t *testing.T) {
		session := openImportSession(t, prefs.Memory())
		err := importFile(session, filepath.Join(t.TempDir(), "nope.xml"), log)
		assert.Error(t, err)
	})
}
