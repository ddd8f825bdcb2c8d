package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/fastfollow"
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/prefs"
	"github.com/five82/ghostkeeper/internal/state"
	"github.com/five82/ghostkeeper/internal/watch"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // 32s capped
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateBackoff(tt.failures, baseInterval))
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	for failures := 0; failures <= 64; failures++ {
		assert.LessOrEqual(t, calculateBackoff(failures, 2*time.Second), maxBackoff)
	}
}

func profilesXML(token string, ghosts ...string) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<ArrayOfOfflineProfile>\n")
	b.WriteString("  <OfflineProfile>\n    <Nickname>alice</Nickname>\n")
	if token != "" {
		b.WriteString("    <Token>" + token + "</Token>\n")
	}
	b.WriteString("    <TrainingGhosts>\n")
	for _, g := range ghosts {
		b.WriteString("      " + g + "\n")
	}
	b.WriteString("    </TrainingGhosts>\n  </OfflineProfile>\n")
	b.WriteString("  <DefaultProfile>\n    <Nickname>DefaultUser</Nickname>\n    <TrainingGhosts/>\n  </DefaultProfile>\n")
	b.WriteString("</ArrayOfOfflineProfile>\n")
	return b.String()
}

func ghostXML(mode int, track string, weather int, time int64) string {
	return fmt.Sprintf(`<GhostDataPair GameMode="%d" Track="%s" Weather="%d" Time="%d" Nickname="alice">AAAA</GhostDataPair>`,
		mode, track, weather, time)
}

type stubBoard struct {
	mu        sync.Mutex
	submitErr error
	submitted []*ghost.Record
}

func (b *stubBoard) BestTime(context.Context, game.Condition, bool) (int64, bool, error) {
	return 0, false, nil
}

func (b *stubBoard) Submit(_ context.Context, _ string, rec *ghost.Record, _ bool) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return 0, b.submitErr
	}
	b.submitted = append(b.submitted, rec)
	return int64(len(b.submitted)), nil
}

func (b *stubBoard) ApplyBest(context.Context, string, int64) (bool, error) { return true, nil }

func (b *stubBoard) FetchBest(context.Context, game.Condition, bool) (*ghost.Record, error) {
	return nil, errs.Service("not offered")
}

func (b *stubBoard) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.submitted)
}

type followFixture struct {
	path     string
	session  *state.Session
	board    *stubBoard
	follower *Follower
	reports  chan error
	writes   int
}

func newFollowFixture(t *testing.T, token string) *followFixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "OfflineProfiles.xml")
	require.NoError(t, os.WriteFile(path, []byte(profilesXML(token)), 0o644))
	session, err := state.Open(state.Options{Path: path, Catalog: game.DefaultCatalog(), Autosave: true, Prefs: prefs.Memory()})
	require.NoError(t, err)

	f := &followFixture{path: path, session: session, board: &stubBoard{}, reports: make(chan error, 8)}
	f.follower = NewFollower(FollowerOptions{
		Session:    session,
		Scoreboard: f.board,
		Interval:   10 * time.Millisecond,
		Backend:    watch.BackendPoll,
		OnReport: func(_ fastfollow.Report, err error) {
			f.reports <- err
		},
	})
	return f
}

// gameWrites replaces the file in one step with a modification time the
// watcher cannot mistake for the previous one.
func (f *followFixture) gameWrites(t *testing.T, content string) {
	t.Helper()
	f.writes++
	tmp := f.path + ".game"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	stamp := time.Now().Add(time.Duration(f.writes) * time.Minute)
	require.NoError(t, os.Chtimes(tmp, stamp, stamp))
	require.NoError(t, os.Rename(tmp, f.path))
}

func (f *followFixture) nextReport(t *testing.T) error {
	t.Helper()
	select {
	case err := <-f.reports:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("no fast-follow cycle finished")
		return nil
	}
}

func TestFollower_UploadsAndRearms(t *testing.T) {
	f := newFollowFixture(t, "tok")
	require.NoError(t, f.follower.Start(context.Background(), false, nil))
	t.Cleanup(f.follower.Stop)
	assert.True(t, f.follower.Active())

	f.gameWrites(t, profilesXML("tok", ghostXML(0, "Alpine", 0, 5000)))
	require.NoError(t, f.nextReport(t))
	assert.Equal(t, 1, f.board.count())

	f.gameWrites(t, profilesXML("tok", ghostXML(0, "Alpine", 0, 4000), ghostXML(1, "Forest", 2, 7000)))
	require.NoError(t, f.nextReport(t))
	assert.Equal(t, 3, f.board.count())

	f.follower.Stop()
	assert.False(t, f.follower.Active())
	assert.Equal(t, watch.Idle, f.session.Snapshot().WatchState)
}

// untilCycleSucceeds drains failed cycles caused by an unreadable file and
// returns once a cycle finishes cleanly.
func (f *followFixture) untilCycleSucceeds(t *testing.T) {
	t.Helper()
	for {
		err := f.nextReport(t)
		if err == nil {
			return
		}
		var reloadErr *fastfollow.ReloadError
		require.ErrorAs(t, err, &reloadErr)
	}
}

func TestFollower_WriteRightAfterStartIsDetected(t *testing.T) {
	f := newFollowFixture(t, "tok")
	require.NoError(t, f.follower.Start(context.Background(), false, nil))
	t.Cleanup(f.follower.Stop)
	f.gameWrites(t, profilesXML("tok", ghostXML(0, "Alpine", 0, 5000)))

	require.NoError(t, f.nextReport(t))
	assert.Equal(t, 1, f.board.count())
}

func TestFollower_RecoversFromUnreadableWrites(t *testing.T) {
	malformed := `<GhostDataPair GameMode="0" Track="Alpine" Weather="0" Time="" Nickname="alice">AAAA</GhostDataPair>`
	tests := []struct {
		name       string
		unreadable string
	}{
		{"truncated document", profilesXML("tok", ghostXML(0, "Alpine", 0, 5000))[:90]},
		{"malformed ghost", profilesXML("tok", malformed)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFollowFixture(t, "tok")
			require.NoError(t, f.follower.Start(context.Background(), false, nil))
			t.Cleanup(f.follower.Stop)

			f.gameWrites(t, tt.unreadable)
			var reloadErr *fastfollow.ReloadError
			require.ErrorAs(t, f.nextReport(t), &reloadErr)
			assert.True(t, f.follower.Active(), "an unreadable write must not stop fast-follow")

			f.gameWrites(t, profilesXML("tok", ghostXML(0, "Alpine", 0, 5000)))
			f.untilCycleSucceeds(t)

			assert.Equal(t, 1, f.board.count(), "the result written after the failure is uploaded")
			assert.True(t, f.follower.Active())
			snap := f.session.Snapshot()
			assert.Equal(t, 0, snap.Active)
			assert.Len(t, snap.Ghosts, 1)
			assert.True(t, snap.HasToken)
		})
	}
}

func TestFollower_StartRefusesWithoutToken(t *testing.T) {
	f := newFollowFixture(t, "")
	err := f.follower.Start(context.Background(), false, nil)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
	assert.False(t, f.follower.Active())
}

func TestFollower_StartTwice(t *testing.T) {
	f := newFollowFixture(t, "tok")
	require.NoError(t, f.follower.Start(context.Background(), false, nil))
	t.Cleanup(f.follower.Stop)
	assert.ErrorIs(t, f.follower.Start(context.Background(), false, nil), ErrFollowActive)
}

func TestFollower_InvalidTokenStopsLoop(t *testing.T) {
	f := newFollowFixture(t, "tok")
	f.board.submitErr = errs.ErrInvalidToken
	require.NoError(t, f.follower.Start(context.Background(), false, nil))

	f.gameWrites(t, profilesXML("tok", ghostXML(0, "Alpine", 0, 5000)))
	require.ErrorIs(t, f.nextReport(t), errs.ErrInvalidToken)

	f.follower.Wait()
	assert.False(t, f.follower.Active())
	snap := f.session.Snapshot()
	assert.False(t, snap.HasToken)
	assert.ErrorIs(t, snap.LastError, errs.ErrInvalidToken)
}

func TestFollower_ContextCancelDisarms(t *testing.T) {
	f := newFollowFixture(t, "tok")
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.follower.Start(ctx, false, nil))
	cancel()
	f.follower.Wait()
	assert.False(t, f.follower.Active())
}

func TestTerminal(t *testing.T) {
	assert.True(t, terminal(errs.UnsupportedChange("x")))
	assert.True(t, terminal(errs.ErrInvalidToken))
	assert.True(t, terminal(errs.ErrUnsavedChanges))
	assert.False(t, terminal(errs.Service("down")))
	assert.False(t, terminal(errs.Parse("truncated")))
}
