package fastfollow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/logger"
	"github.com/five82/ghostkeeper/internal/metrics"
	"github.com/five82/ghostkeeper/internal/prefs"
	"github.com/five82/ghostkeeper/internal/profile"
	"github.com/five82/ghostkeeper/internal/scoreboard"
	"github.com/five82/ghostkeeper/internal/state"
)

// DownloadAnswer is the reply to a follow-up download offer.
type DownloadAnswer int

// Download answers. DownloadNever also stops future offers.
const (
	DownloadNo DownloadAnswer = iota
	DownloadYes
	DownloadNever
)

// Prompter asks the user the questions a cycle may raise. Implementations
// may block; they are called without the session lock.
type Prompter interface {
	// ConfirmApply asks whether a competitive upload becomes the player's
	// scoreboard best.
	ConfirmApply(ctx context.Context, ch Change) bool
	// OfferDownload offers to replace the ghost for ch's condition with the
	// scoreboard's best. current is the ghost the active profile holds for
	// that condition, or nil.
	OfferDownload(ctx context.Context, ch Change, current *ghost.Record) DownloadAnswer
}

// StaticPrompter answers every question the same way.
type StaticPrompter struct {
	Apply    bool
	Download DownloadAnswer
}

// ConfirmApply implements Prompter.
func (p StaticPrompter) ConfirmApply(context.Context, Change) bool { return p.Apply }

// OfferDownload implements Prompter.
func (p StaticPrompter) OfferDownload(context.Context, Change, *ghost.Record) DownloadAnswer {
	return p.Download
}

// Options configure a Runner.
type Options struct {
	Session    *state.Session
	Scoreboard scoreboard.Service
	Prompter   Prompter
	// Force uploads results that do not beat the scoreboard as
	// non-competitive.
	Force bool
	// UserConfigPath is the game's settings file, consulted for the
	// multi-ghost flag on every cycle.
	UserConfigPath string
	Logger         *slog.Logger
	Metrics        *metrics.Manager
}

// Uploaded is the outcome of one changed record.
type Uploaded struct {
	Change   Change
	Decision Decision
	Best     int64
	HasBest  bool
	RemoteID int64
	Applied  bool
	Err      error
}

// Report summarizes a cycle.
type Report struct {
	CycleID      string
	Changes      []Change
	Uploads      []Uploaded
	Downloaded   *ghost.Record
	TokenCleared bool
}

// Competitive returns the uploads that went through as competitive.
func (r Report) Competitive() []Uploaded {
	var out []Uploaded
	for _, u := range r.Uploads {
		if u.Decision == Upload && u.Err == nil {
			out = append(out, u)
		}
	}
	return out
}

// Runner executes fast-follow cycles against a session.
type Runner struct {
	session  *state.Session
	sb       scoreboard.Service
	prompter Prompter
	force    bool
	userCfg  string
	log      *slog.Logger
	metrics  *metrics.Manager

	// pending survives a failed reload; see ReloadError.
	pending *baseline
}

// NewRunner builds a Runner.
func NewRunner(opts Options) *Runner {
	p := opts.Prompter
	if p == nil {
		p = StaticPrompter{}
	}
	return &Runner{
		session:  opts.Session,
		sb:       opts.Scoreboard,
		prompter: p,
		force:    opts.Force,
		userCfg:  opts.UserConfigPath,
		log:      logger.OrDiscard(opts.Logger).With("component", "fastfollow"),
		metrics:  opts.Metrics,
	}
}

// Check reports whether fast-follow may be armed for the active profile.
func (r *Runner) Check() error {
	return r.session.Exclusive(func(tx *state.Tx) error {
		return check(tx.Store())
	})
}

func check(st *profile.Store) error {
	if !st.Loaded() {
		return errs.ErrNotLoaded
	}
	if st.IsDefaultProfile() {
		return errs.ProfileTopology("fast-follow needs a player profile, not the default profile")
	}
	if st.IsSpecialProfile() {
		return errs.ProfileTopology("fast-follow is not available for the %s profile", profile.SpecialNickname)
	}
	if st.IsDirty() {
		return errs.ErrUnsavedChanges
	}
	if token, ok := st.Token(); !ok || token == "" {
		return errs.ErrInvalidToken.WithDetails("reason", "missing")
	}
	return nil
}

type capture struct {
	token   string
	catalog *game.Catalog
	active  *profile.Grid
	changes []Change
}

// Cycle processes one detected modification of the profiles file: it
// reloads the file, diffs the active and default profiles, uploads what
// qualifies and offers the follow-up download.
func (r *Runner) Cycle(ctx context.Context) (Report, error) {
	rep := Report{CycleID: uuid.NewString()}
	log := r.log.With("cycle", rep.CycleID)

	snap, err := r.capture()
	if err != nil {
		r.metrics.Cycle(outcomeOf(err))
		log.Warn("fast-follow cycle aborted", "error", err)
		return rep, err
	}
	rep.Changes = snap.changes
	if len(snap.changes) == 0 {
		r.metrics.Cycle("no_change")
		log.Info("no changed results")
		return rep, nil
	}
	for _, ch := range snap.changes {
		r.metrics.Changes(ch.Profile(), 1)
	}
	log.Info("changed results detected", "count", len(snap.changes))

	if err := r.upload(ctx, log, snap, &rep); err != nil {
		if errors.Is(err, errs.ErrInvalidToken) {
			rep.TokenCleared = r.clearToken(log)
		}
		r.metrics.Cycle(outcomeOf(err))
		return rep, err
	}

	if err := r.followUp(ctx, log, snap, &rep); err != nil {
		r.metrics.Cycle("error")
		return rep, err
	}
	r.metrics.Cycle("uploaded")
	return rep, nil
}

// ReloadError reports that the profiles file could not be read back during a
// cycle. The Runner keeps the grids captured before the failed read, so
// retrying Cycle diffs the next readable file against them and no result
// in the unreadable write is lost.
type ReloadError struct {
	Err error
}

func (e *ReloadError) Error() string { return "reload profiles: " + e.Err.Error() }

func (e *ReloadError) Unwrap() error { return e.Err }

// baseline is the state of the store before a cycle's reload.
type baseline struct {
	token   string
	count   int
	defIdx  int
	active  int
	grid    *profile.Grid
	defGrid *profile.Grid
}

func takeBaseline(st *profile.Store) (*baseline, error) {
	if err := check(st); err != nil {
		return nil, err
	}
	b := &baseline{
		count:  st.ProfileCount(),
		defIdx: st.DefaultProfileIndex(),
		active: st.Active(),
	}
	b.token, _ = st.Token()
	b.grid, _ = st.AllGhosts(false)
	if b.defIdx >= 0 {
		g, err := st.ProfileGrid(b.defIdx)
		if err != nil {
			return nil, err
		}
		b.defGrid = g
	}
	return b, nil
}

// Recovering reports whether the last cycle failed to read the file back
// and the next one will diff against the grids taken before that.
func (r *Runner) Recovering() bool { return r.pending != nil }

func (r *Runner) capture() (capture, error) {
	var c capture
	err := r.session.Exclusive(func(tx *state.Tx) error {
		st := tx.Store()
		before := r.pending
		if before == nil {
			b, err := takeBaseline(st)
			if err != nil {
				return err
			}
			before = b
		}
		c.token = before.token
		c.catalog = st.Catalog()

		if err := tx.Reload(); err != nil {
			r.pending = before
			return &ReloadError{Err: err}
		}
		r.pending = nil
		if st.ProfileCount() != before.count || (st.DefaultProfileIndex() >= 0) != (before.defIdx >= 0) {
			return errs.UnsupportedChange("profile topology changed while fast-follow was armed").
				WithDetails("profiles_before", before.count, "profiles_after", st.ProfileCount())
		}
		if st.Active() != before.active {
			if err := st.SelectProfile(before.active); err != nil {
				return err
			}
		}

		activeAfter, _ := st.AllGhosts(false)
		c.active = activeAfter
		c.changes = Diff(before.grid, activeAfter, false)
		if before.defIdx >= 0 {
			defAfter, err := st.ProfileGrid(before.defIdx)
			if err != nil {
				return err
			}
			c.changes = append(c.changes, Diff(before.defGrid, defAfter, true)...)
		}
		return nil
	})
	return c, err
}

func (r *Runner) upload(ctx context.Context, log *slog.Logger, c capture, rep *Report) error {
	for _, ch := range c.changes {
		u := Uploaded{Change: ch}
		best, ok, err := r.sb.BestTime(ctx, ch.Condition, ch.Ticket())
		if err != nil {
			if errors.Is(err, errs.ErrInvalidToken) || ctx.Err() != nil {
				return err
			}
			u.Err = err
			rep.Uploads = append(rep.Uploads, u)
			log.Warn("best time lookup failed", "condition", ch.Condition.String(), "error", err)
			continue
		}
		u.Best, u.HasBest = best, ok
		u.Decision = Decide(c.catalog, ch.Condition.Mode, ch.Record.Time(), best, ok, r.force)
		r.metrics.Upload(u.Decision.String())
		if u.Decision == Skip {
			log.Info("result does not beat the scoreboard",
				"condition", ch.Condition.String(), "result", ch.Record.Time(), "best", best)
			rep.Uploads = append(rep.Uploads, u)
			continue
		}

		competitive := u.Decision == Upload
		id, err := r.sb.Submit(ctx, c.token, ch.Record, competitive)
		if err != nil {
			if errors.Is(err, errs.ErrInvalidToken) || ctx.Err() != nil {
				return err
			}
			u.Err = err
			rep.Uploads = append(rep.Uploads, u)
			log.Warn("upload failed", "condition", ch.Condition.String(), "error", err)
			continue
		}
		u.RemoteID = id
		log.Info("ghost uploaded", "condition", ch.Condition.String(), "id", id, "competitive", competitive)

		if competitive && (r.session.Prefs().Bool(prefs.KeyAlwaysApply) || r.prompter.ConfirmApply(ctx, ch)) {
			applied, err := r.sb.ApplyBest(ctx, c.token, id)
			if err != nil {
				if errors.Is(err, errs.ErrInvalidToken) {
					return err
				}
				u.Err = err
				log.Warn("apply failed", "id", id, "error", err)
			}
			u.Applied = applied
		}
		rep.Uploads = append(rep.Uploads, u)
	}
	return nil
}

func (r *Runner) followUp(ctx context.Context, log *slog.Logger, c capture, rep *Report) error {
	competitive := rep.Competitive()
	if len(competitive) != 1 {
		return nil
	}
	uc, err := game.ReadUserConfig(r.userCfg)
	if err != nil {
		log.Warn("read game settings failed", "error", err)
	}
	if uc.MultiGhost {
		return nil
	}
	p := r.session.Prefs()
	if p.Bool(prefs.KeyNeverDownload) {
		log.Debug("follow-up download disabled")
		return nil
	}

	ch := competitive[0].Change
	var current *ghost.Record
	if c.active != nil {
		current = c.active.Get(ch.Condition)
	}
	switch r.prompter.OfferDownload(ctx, ch, current) {
	case DownloadNever:
		if err := p.Set(prefs.KeyNeverDownload, "true"); err != nil {
			log.Warn("store download preference failed", "error", err)
		}
		return nil
	case DownloadNo:
		return nil
	}

	rec, err := r.sb.FetchBest(ctx, ch.Condition, ch.Ticket())
	if err != nil {
		return fmt.Errorf("download best ghost: %w", err)
	}
	err = r.session.Exclusive(func(tx *state.Tx) error {
		if _, err := tx.Store().Import([]*ghost.Record{rec}, true); err != nil {
			return err
		}
		_, err := tx.Save(false)
		return err
	})
	if err != nil {
		return err
	}
	rep.Downloaded = rec
	log.Info("replacement ghost downloaded", "condition", ch.Condition.String(), "nickname", rec.Nickname())
	return nil
}

func (r *Runner) clearToken(log *slog.Logger) bool {
	err := r.session.Exclusive(func(tx *state.Tx) error {
		if err := tx.Store().ClearToken(); err != nil {
			return err
		}
		_, err := tx.Save(false)
		return err
	})
	if err != nil {
		log.Error("clear invalid token failed", "error", err)
		return false
	}
	log.Warn("scoreboard rejected the token; it was removed from the profile")
	return true
}

func outcomeOf(err error) string {
	switch errs.CodeOf(err) {
	case errs.CodeUnsupportedChange:
		return "unsupported"
	case errs.CodeInvalidToken:
		return "invalid_token"
	case errs.CodeUnsavedChanges, errs.CodeProfileTopology:
		return "refused"
	}
	var re *ReloadError
	if errors.As(err, &re) {
		return "unreadable"
	}
	return "error"
}
