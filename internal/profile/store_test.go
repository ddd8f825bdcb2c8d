package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
)

func ghostXML(mode int, track string, weather int, time int64, nick string) string {
	return fmt.Sprintf(`<GhostDataPair GameMode="%d" Track="%s" Weather="%d" Time="%d" Nickname="%s" Ski="1" Ticket="false">AAAA</GhostDataPair>`,
		mode, track, weather, time, nick)
}

func testDocument() string {
	return "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<ArrayOfOfflineProfile>\n" +
		"  <OfflineProfile>\n" +
		"    <Nickname>alice</Nickname>\n" +
		"    <Token>tok-alice</Token>\n" +
		"    <TrainingGhosts>\n" +
		"      " + ghostXML(0, "Alpine", 1, 5200, "alice") + "\n" +
		"      " + ghostXML(1, "Glacier", 0, 61000, "alice") + "\n" +
		"    </TrainingGhosts>\n" +
		"  </OfflineProfile>\n" +
		"  <OfflineProfile>\n" +
		"    <Nickname>SpecialProfile</Nickname>\n" +
		"    <TrainingGhosts/>\n" +
		"  </OfflineProfile>\n" +
		"  <OfflineProfile>\n" +
		"    <Nickname>bob</Nickname>\n" +
		"  </OfflineProfile>\n" +
		"  <DefaultProfile>\n" +
		"    <Nickname>DefaultUser</Nickname>\n" +
		"    <TrainingGhosts>\n" +
		"      " + ghostXML(0, "Forest", 2, 7000, "DefaultUser") + "\n" +
		"    </TrainingGhosts>\n" +
		"  </DefaultProfile>\n" +
		"</ArrayOfOfflineProfile>\n"
}

func mustParse(t *testing.T, text string) *Store {
	t.Helper()
	s, err := Parse(text, game.DefaultCatalog())
	require.NoError(t, err)
	return s
}

func mustRecord(t *testing.T, mode int, track string, weather int, time int64) *ghost.Record {
	t.Helper()
	r, err := ghost.Parse(ghostXML(mode, track, weather, time, "alice"))
	require.NoError(t, err)
	return r
}

func TestParseTopology(t *testing.T) {
	s := mustParse(t, testDocument())

	assert.Equal(t, 4, s.ProfileCount())
	assert.Equal(t, 3, s.DefaultProfileIndex())
	assert.Equal(t, 0, s.Active())
	assert.Equal(t, 2, s.GhostCount())
	assert.False(t, s.IsDirty())

	nicks, err := s.Profiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "SpecialProfile", "bob", "DefaultUser"}, nicks)

	assert.True(t, s.IsSpecialIndex(1))
	assert.False(t, s.IsSpecialProfile())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no profiles", "<ArrayOfOfflineProfile/>"},
		{"two defaults", "<A><DefaultProfile><Nickname>x</Nickname></DefaultProfile><DefaultProfile><Nickname>y</Nickname></DefaultProfile></A>"},
		{"not xml", "<A><OfflineProfile x=1>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.doc, nil)
			assert.True(t, errors.Is(err, errs.ErrParse), "got %v", err)
		})
	}
}

func TestOnlyDefaultProfile(t *testing.T) {
	s := mustParse(t, "<A><DefaultProfile><Nickname>DefaultUser</Nickname></DefaultProfile></A>")

	assert.Equal(t, 1, s.ProfileCount())
	assert.Equal(t, 0, s.DefaultProfileIndex())
	assert.True(t, s.IsDefaultProfile())
	assert.Equal(t, 0, s.GhostCount())
}

func TestMissingNickname(t *testing.T) {
	s := mustParse(t, "<A><OfflineProfile><Nickname>a1b</Nickname></OfflineProfile><OfflineProfile/></A>")

	_, err := s.Profiles()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMissingNickname))

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	idx, _ := e.Detail("index")
	assert.Equal(t, 1, idx)
}

func TestSelectProfile(t *testing.T) {
	s := mustParse(t, testDocument())

	require.NoError(t, s.SelectProfile(3))
	assert.True(t, s.IsDefaultProfile())
	assert.Equal(t, 1, s.GhostCount())

	require.NoError(t, s.SelectProfile(2))
	assert.Equal(t, 0, s.GhostCount())

	err := s.SelectProfile(s.ProfileCount())
	assert.True(t, errors.Is(err, errs.ErrIndexOutOfRange))
	assert.Equal(t, 2, s.Active(), "failed selection keeps the previous profile")

	assert.True(t, errors.Is(s.SelectProfile(-1), errs.ErrIndexOutOfRange))
}

func TestSelectProfileMalformedGhostKeepsSelection(t *testing.T) {
	doc := "<A><OfflineProfile><Nickname>alice</Nickname></OfflineProfile>" +
		"<OfflineProfile><Nickname>broken</Nickname><TrainingGhosts><GhostDataPair GameMode=\"0\" Track=\"Alpine\" Weather=\"1\" Time=\"x\"/></TrainingGhosts></OfflineProfile></A>"
	s := mustParse(t, doc)

	err := s.SelectProfile(1)
	assert.True(t, errors.Is(err, errs.ErrMalformedRecord))
	assert.Equal(t, 0, s.Active())
}

func TestGhostAccess(t *testing.T) {
	s := mustParse(t, testDocument())

	g, err := s.Ghost(1)
	require.NoError(t, err)
	assert.Equal(t, "Glacier", g.Track())

	_, err = s.Ghost(2)
	assert.True(t, errors.Is(err, errs.ErrIndexOutOfRange))

	assert.Equal(t, []int{0}, s.FindByCondition(game.Condition{Mode: 0, Track: "ALPINE", Weather: 1}))
	assert.Empty(t, s.FindByCondition(game.Condition{Mode: 0, Track: "Alpine", Weather: 2}))
}

func TestAddAndDeleteGhost(t *testing.T) {
	s := mustParse(t, testDocument())

	idx, err := s.AddGhost(mustRecord(t, 2, "Valley", 3, 9000))
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.True(t, s.IsDirty())
	assert.Equal(t, 3, s.GhostCount())

	s.MarkSaved()
	require.NoError(t, s.DeleteGhost(0))
	assert.True(t, s.IsDirty())
	assert.Equal(t, 2, s.GhostCount())

	first, err := s.Ghost(0)
	require.NoError(t, err)
	assert.Equal(t, "Glacier", first.Track())

	assert.True(t, errors.Is(s.DeleteGhost(5), errs.ErrIndexOutOfRange))
}

func TestAddGhostCreatesContainer(t *testing.T) {
	s := mustParse(t, testDocument())
	require.NoError(t, s.SelectProfile(2))

	_, err := s.AddGhost(mustRecord(t, 0, "Alpine", 1, 5000))
	require.NoError(t, err)

	text, err := s.Serialize()
	require.NoError(t, err)
	reloaded := mustParse(t, text)
	require.NoError(t, reloaded.SelectProfile(2))
	assert.Equal(t, 1, reloaded.GhostCount())
}

func TestConsistencyCheck(t *testing.T) {
	s := mustParse(t, testDocument())

	// simulate a node vanishing behind the store's back
	s.training.RemoveChild(s.nodes[0])

	_, err := s.AddGhost(mustRecord(t, 2, "Valley", 3, 9000))
	assert.True(t, errors.Is(err, errs.ErrConsistency))
}

func TestToken(t *testing.T) {
	s := mustParse(t, testDocument())

	tok, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "tok-alice", tok)

	require.NoError(t, s.SetToken("tok-alice"))
	assert.False(t, s.IsDirty(), "same value is not a change")

	require.NoError(t, s.SetToken("tok-2"))
	assert.True(t, s.IsDirty())
	tok, _ = s.Token()
	assert.Equal(t, "tok-2", tok)

	s.MarkSaved()
	require.NoError(t, s.ClearToken())
	assert.True(t, s.IsDirty())
	_, ok = s.Token()
	assert.False(t, ok)

	s.MarkSaved()
	require.NoError(t, s.ClearToken())
	assert.False(t, s.IsDirty())
}

func TestAllGhosts(t *testing.T) {
	s := mustParse(t, testDocument())

	grid, ok := s.AllGhosts(true)
	require.True(t, ok)
	assert.Equal(t, 2, grid.Len())
	assert.Equal(t, int64(5200), grid.Get(game.Condition{Mode: 0, Track: "alpine", Weather: 1}).Time())

	// force a duplicate
	_, err := s.AddGhost(mustRecord(t, 0, "Alpine", 1, 5100))
	require.NoError(t, err)

	_, ok = s.AllGhosts(true)
	assert.False(t, ok)

	grid, ok = s.AllGhosts(false)
	require.True(t, ok)
	assert.Equal(t, int64(5200), grid.Get(game.Condition{Mode: 0, Track: "Alpine", Weather: 1}).Time(), "first occupant wins")

	list := s.GhostList()
	assert.Len(t, list.Get(game.Condition{Mode: 0, Track: "Alpine", Weather: 1}), 2)
}

func TestProfileGridRestoresSelection(t *testing.T) {
	s := mustParse(t, testDocument())

	grid, err := s.ProfileGrid(3)
	require.NoError(t, err)
	assert.Equal(t, 1, grid.Len())
	assert.Equal(t, 0, s.Active())
	assert.Equal(t, 2, s.GhostCount())
}

func TestSerializeRoundTrip(t *testing.T) {
	s := mustParse(t, testDocument())

	text, err := s.Serialize()
	require.NoError(t, err)
	assert.Contains(t, text, "\r\n")
	assert.NotContains(t, strings.ReplaceAll(text, "\r\n", ""), "\n")
	assert.NotContains(t, text, "  <", "whitespace indentation is replaced by tabs")

	reloaded := mustParse(t, text)
	require.Equal(t, s.ProfileCount(), reloaded.ProfileCount())
	for i := 0; i < s.ProfileCount(); i++ {
		a, err := s.ProfileGrid(i)
		require.NoError(t, err)
		b, err := reloaded.ProfileGrid(i)
		require.NoError(t, err)
		assert.True(t, a.Equal(b), "profile %d", i)
	}

	again, err := reloaded.Serialize()
	require.NoError(t, err)
	assert.Equal(t, text, again)
}

func TestOpenAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "OfflineProfiles.xml")
	require.NoError(t, os.WriteFile(path, []byte(testDocument()), 0o644))

	s, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	require.NoError(t, s.SelectProfile(2))
	require.NoError(t, s.Reload())
	assert.Equal(t, 0, s.Active(), "reload selects profile 0")

	require.NoError(t, os.WriteFile(path, []byte("<broken x=1>"), 0o644))
	err = s.Reload()
	assert.True(t, errors.Is(err, errs.ErrParse))
	assert.False(t, s.Loaded())
	assert.Equal(t, 0, s.ProfileCount())

	_, err = Open(filepath.Join(t.TempDir(), "missing.xml"), nil)
	assert.Error(t, err)

	parsed := mustParse(t, testDocument())
	assert.Error(t, parsed.Reload())
}
