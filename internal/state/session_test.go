package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/prefs"
)

func ghostXML(mode int, track string, weather int, time int64) string {
	return fmt.Sprintf(`<GhostDataPair GameMode="%d" Track="%s" Weather="%d" Time="%d" Nickname="alice" Ski="1" Ticket="false">AAAA</GhostDataPair>`,
		mode, track, weather, time)
}

func profilesXML(ghosts ...string) string {
	body := ""
	for _, g := range ghosts {
		body += "      " + g + "\n"
	}
	return "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<ArrayOfOfflineProfile>\n" +
		"  <OfflineProfile>\n" +
		"    <Nickname>alice</Nickname>\n" +
		"    <Token>tok</Token>\n" +
		"    <TrainingGhosts>\n" + body +
		"    </TrainingGhosts>\n" +
		"  </OfflineProfile>\n" +
		"  <OfflineProfile>\n" +
		"    <Nickname>SpecialProfile</Nickname>\n" +
		"    <TrainingGhosts/>\n" +
		"  </OfflineProfile>\n" +
		"  <DefaultProfile>\n" +
		"    <Nickname>DefaultUser</Nickname>\n" +
		"    <TrainingGhosts/>\n" +
		"  </DefaultProfile>\n" +
		"</ArrayOfOfflineProfile>\n"
}

func writeProfiles(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "OfflineProfiles.xml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func openSession(t *testing.T, autosave bool, p *prefs.Store) (*Session, string) {
	t.Helper()
	path := writeProfiles(t, profilesXML(ghostXML(0, "Alpine", 1, 5200)))
	s, err := Open(Options{Path: path, Catalog: game.DefaultCatalog(), Autosave: autosave, Prefs: p})
	require.NoError(t, err)
	return s, path
}

func record(t *testing.T, mode int, track string, weather int, time int64) *ghost.Record {
	t.Helper()
	r, err := ghost.Parse(ghostXML(mode, track, weather, time))
	require.NoError(t, err)
	return r
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestOpen_RecordsInitialSnapshotWithoutWriting(t *testing.T) {
	s, path := openSession(t, true, nil)
	original := profilesXML(ghostXML(0, "Alpine", 1, 5200))

	assert.Equal(t, original, readFile(t, path))
	snap := s.Snapshot()
	assert.False(t, snap.CanUndo)
	assert.False(t, snap.CanRedo)
	assert.Equal(t, []string{"alice", "SpecialProfile", "DefaultUser"}, snap.Profiles)
	assert.Equal(t, 2, snap.DefaultIndex)
	assert.Len(t, snap.Ghosts, 1)
	assert.True(t, snap.HasToken)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(Options{Path: filepath.Join(t.TempDir(), "nope.xml")})
	assert.Error(t, err)
}

func TestImport_AutosaveAndUndoRedo(t *testing.T) {
	s, path := openSession(t, true, nil)

	res, err := s.Import([]*ghost.Record{record(t, 1, "Glacier", 0, 61000)}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.False(t, s.Snapshot().Dirty)

	saved := readFile(t, path)
	assert.Contains(t, saved, `Track="Glacier"`)
	assert.Contains(t, saved, "\r\n")
	assert.True(t, s.Snapshot().CanUndo)

	ok, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotContains(t, readFile(t, path), `Track="Glacier"`)
	assert.Len(t, s.Snapshot().Ghosts, 1)
	assert.True(t, s.Snapshot().CanRedo)

	ok, err = s.Redo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, saved, readFile(t, path))
	assert.Len(t, s.Snapshot().Ghosts, 2)

	ok, err = s.Redo()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndo_NewEditTruncatesRedoBranch(t *testing.T) {
	s, _ := openSession(t, true, nil)

	_, err := s.Import([]*ghost.Record{record(t, 1, "Glacier", 0, 61000)}, false)
	require.NoError(t, err)
	_, err = s.Import([]*ghost.Record{record(t, 2, "Forest", 3, 70000)}, false)
	require.NoError(t, err)

	ok, err := s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, s.Snapshot().CanRedo)

	_, err = s.Import([]*ghost.Record{record(t, 0, "Summit", 2, 9000)}, false)
	require.NoError(t, err)
	assert.False(t, s.Snapshot().CanRedo)
	assert.True(t, s.Snapshot().CanUndo)
}

func TestUndo_RefusesUnsavedChanges(t *testing.T) {
	s, _ := openSession(t, false, nil)

	_, err := s.Import([]*ghost.Record{record(t, 1, "Glacier", 0, 61000)}, false)
	require.NoError(t, err)
	require.True(t, s.Snapshot().Dirty)

	_, err = s.Undo()
	assert.True(t, errors.Is(err, errs.ErrUnsavedChanges))

	saved, err := s.Save(false)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = s.Save(false)
	require.NoError(t, err)
	assert.False(t, saved, "nothing to save")
}

func TestImport_RejectedAndAlwaysReplace(t *testing.T) {
	p := prefs.Memory()
	s, path := openSession(t, true, p)
	before := readFile(t, path)

	res, err := s.Import([]*ghost.Record{record(t, 0, "Alpine", 1, 4800)}, false)
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	assert.Equal(t, before, readFile(t, path))

	require.NoError(t, p.Set(prefs.KeyAlwaysReplace, "true"))
	res, err = s.Import([]*ghost.Record{record(t, 0, "Alpine", 1, 4800)}, false)
	require.NoError(t, err)
	assert.False(t, res.Rejected)
	ghosts := s.Snapshot().Ghosts
	require.Len(t, ghosts, 1)
	assert.Equal(t, int64(4800), ghosts[0].Time())
}

func TestSelectLastProfile(t *testing.T) {
	p := prefs.Memory()
	s, path := openSession(t, false, p)

	require.NoError(t, s.SelectProfile(2))
	v, _ := p.Get(prefs.KeyLastProfile)
	assert.Equal(t, "-1", v)

	require.NoError(t, s.SelectProfile(1))
	v, _ = p.Get(prefs.KeyLastProfile)
	assert.Equal(t, "-2", v)

	reopened, err := Open(Options{Path: path, Prefs: p})
	require.NoError(t, err)
	require.NoError(t, reopened.SelectLastProfile())
	assert.Equal(t, 1, reopened.Snapshot().Active)

	require.NoError(t, p.Set(prefs.KeyLastProfile, "42"))
	require.NoError(t, reopened.SelectLastProfile())
	assert.Equal(t, 0, reopened.Snapshot().Active)

	assert.True(t, errors.Is(s.SelectProfile(3), errs.ErrIndexOutOfRange))
}

func TestReload_KeepsActiveProfile(t *testing.T) {
	s, path := openSession(t, false, nil)
	require.NoError(t, s.SelectProfile(2))

	require.NoError(t, s.Reload(false))
	assert.Equal(t, 2, s.Snapshot().Active)

	require.NoError(t, s.SetToken("fresh"))
	assert.True(t, errors.Is(s.Reload(false), errs.ErrUnsavedChanges))
	require.NoError(t, s.Reload(true))
	assert.False(t, s.Snapshot().Dirty)

	// The file shrinks to a single profile; the selection falls back to 0.
	single := "<ArrayOfOfflineProfile><OfflineProfile><Nickname>alice</Nickname></OfflineProfile></ArrayOfOfflineProfile>"
	require.NoError(t, os.WriteFile(path, []byte(single), 0o644))
	require.NoError(t, s.Reload(false))
	assert.Equal(t, 0, s.Snapshot().Active)
}

func TestOwnWrite(t *testing.T) {
	s, path := openSession(t, false, nil)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, s.OwnWrite(info.ModTime()))

	_, err = s.Save(true)
	require.NoError(t, err)
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.True(t, s.OwnWrite(info.ModTime()))
}

func TestResort_DeclineKeepsProfile(t *testing.T) {
	path := writeProfiles(t, profilesXML(
		ghostXML(1, "Glacier", 0, 61000),
		ghostXML(0, "Alpine", 1, 5200),
		ghostXML(0, "Alpine", 1, 5100),
	))
	s, err := Open(Options{Path: path, Autosave: true})
	require.NoError(t, err)

	done, err := s.Resort(func() bool { return false })
	require.NoError(t, err)
	assert.False(t, done)
	assert.Len(t, s.Snapshot().Ghosts, 3)

	done, err = s.Resort(func() bool { return true })
	require.NoError(t, err)
	assert.True(t, done)
	ghosts := s.Snapshot().Ghosts
	require.Len(t, ghosts, 2)
	assert.Equal(t, "Alpine", ghosts[0].Track())
	assert.Equal(t, int64(5200), ghosts[0].Time())
	assert.Equal(t, "Glacier", ghosts[1].Track())
}

func TestProfileEditsResetHistory(t *testing.T) {
	s, _ := openSession(t, true, nil)
	_, err := s.Import([]*ghost.Record{record(t, 1, "Glacier", 0, 61000)}, false)
	require.NoError(t, err)
	require.True(t, s.Snapshot().CanUndo)

	idx, err := s.AddProfile("carol")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	snap := s.Snapshot()
	assert.False(t, snap.CanUndo)
	assert.Equal(t, []string{"alice", "SpecialProfile", "carol", "DefaultUser"}, snap.Profiles)

	_, err = s.AddProfile("DefaultUser")
	assert.True(t, errors.Is(err, errs.ErrInvalidNickname))

	require.NoError(t, s.SelectProfile(2))
	require.NoError(t, s.RenameProfile("dave"))
	require.NoError(t, s.DeleteProfile(2))
	assert.Equal(t, []string{"alice", "SpecialProfile", "DefaultUser"}, s.Snapshot().Profiles)
}

func TestDeleteGhostsAndExport(t *testing.T) {
	path := writeProfiles(t, profilesXML(
		ghostXML(0, "Alpine", 1, 5200),
		ghostXML(1, "Glacier", 0, 61000),
		ghostXML(2, "Forest", 3, 70000),
	))
	s, err := Open(Options{Path: path, Autosave: true})
	require.NoError(t, err)

	out, err := s.Export([]int{1})
	require.NoError(t, err)
	batch, err := ghost.ParseBatch(out)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "Glacier", batch[0].Track())

	require.NoError(t, s.DeleteGhosts([]int{0, 2, 2}))
	ghosts := s.Snapshot().Ghosts
	require.Len(t, ghosts, 1)
	assert.Equal(t, "Glacier", ghosts[0].Track())
}

func TestExclusive(t *testing.T) {
	s, _ := openSession(t, false, nil)
	err := s.Exclusive(func(tx *Tx) error {
		st := tx.Store()
		assert.Equal(t, 1, st.GhostCount())
		require.NoError(t, st.ClearToken())
		_, err := tx.Save(false)
		return err
	})
	require.NoError(t, err)
	assert.False(t, s.Snapshot().HasToken)

	sentinel := errors.New("stop")
	assert.ErrorIs(t, s.Exclusive(func(*Tx) error { return sentinel }), sentinel)
}

func TestRecordError(t *testing.T) {
	s, _ := openSession(t, false, nil)
	v := s.Snapshot().Version

	s.RecordError(errs.ErrService)
	snap := s.Snapshot()
	assert.True(t, errors.Is(snap.LastError, errs.ErrService))
	assert.Greater(t, snap.Version, v)

	s.RecordError(nil)
	assert.NoError(t, s.Snapshot().LastError)
}

func TestSave_ReplacesFileThroughRename(t *testing.T) {
	s, path := openSession(t, false, nil)
	require.NoError(t, s.SetToken("fresh"))

	saved, err := s.Save(false)
	require.NoError(t, err)
	require.True(t, saved)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not be left behind")
	assert.Contains(t, readFile(t, path), "<Token>fresh</Token>")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, s.OwnWrite(info.ModTime()))
	assert.Equal(t, info.ModTime(), s.LoadedAt())
}

func TestLoadedAt_FollowsReload(t *testing.T) {
	s, path := openSession(t, false, nil)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), s.LoadedAt())

	require.NoError(t, os.WriteFile(path, []byte(profilesXML()), 0o644))
	stamp := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	require.NoError(t, s.Reload(false))
	assert.True(t, stamp.Equal(s.LoadedAt()))
	assert.False(t, s.OwnWrite(stamp))
}
