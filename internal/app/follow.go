package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/fastfollow"
	"github.com/five82/ghostkeeper/internal/logger"
	"github.com/five82/ghostkeeper/internal/metrics"
	"github.com/five82/ghostkeeper/internal/scoreboard"
	"github.com/five82/ghostkeeper/internal/state"
	"github.com/five82/ghostkeeper/internal/watch"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// ErrFollowActive is returned by Start while a loop is already running.
var ErrFollowActive = errors.New("fast-follow is already active")

// FollowerOptions configure a Follower.
type FollowerOptions struct {
	Session        *state.Session
	Scoreboard     scoreboard.Service
	UserConfigPath string
	Interval       time.Duration
	Settle         time.Duration
	Backend        string
	Logger         *slog.Logger
	Metrics        *metrics.Manager
	// OnReport observes every finished cycle.
	OnReport func(fastfollow.Report, error)
}

// Follower keeps fast-follow armed: it waits for the game to rewrite the
// profiles file, runs a cycle, and arms again until stopped or until a
// cycle fails in a way retrying cannot fix.
type Follower struct {
	opts FollowerOptions
	log  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFollower builds an idle Follower.
func NewFollower(opts FollowerOptions) *Follower {
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	return &Follower{
		opts: opts,
		log:  logger.OrDiscard(opts.Logger).With("component", "follow"),
	}
}

// Start checks the preconditions and launches the loop in the background.
func (f *Follower) Start(ctx context.Context, force bool, prompter fastfollow.Prompter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done != nil {
		return ErrFollowActive
	}

	runner := fastfollow.NewRunner(fastfollow.Options{
		Session:        f.opts.Session,
		Scoreboard:     f.opts.Scoreboard,
		Prompter:       prompter,
		Force:          force,
		UserConfigPath: f.opts.UserConfigPath,
		Logger:         f.opts.Logger,
		Metrics:        f.opts.Metrics,
	})
	if err := runner.Check(); err != nil {
		return err
	}

	// Taken before returning: a write made right after Start returns is
	// newer than the loaded content and is detected.
	baseline := f.opts.Session.LoadedAt()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel, f.done = cancel, done
	f.log.Info("fast-follow armed", "path", f.opts.Session.Path(), "force", force)
	go func() {
		defer close(done)
		defer f.release(done)
		f.loop(loopCtx, runner, baseline)
	}()
	return nil
}

// Stop disarms the loop and waits for it to exit.
func (f *Follower) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Active reports whether the loop is running.
func (f *Follower) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done != nil
}

// Wait blocks until the current loop exits.
func (f *Follower) Wait() {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (f *Follower) release(done chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done == done {
		f.cancel()
		f.cancel, f.done = nil, nil
	}
	f.opts.Session.SetWatchState(watch.Idle)
	f.log.Info("fast-follow disarmed")
}

func (f *Follower) loop(ctx context.Context, runner *fastfollow.Runner, baseline time.Time) {
	session := f.opts.Session
	w := watch.New(f.opts.Logger, watch.Options{
		Interval: f.opts.Interval,
		Settle:   f.opts.Settle,
		Backend:  f.opts.Backend,
		Ignore:   session.OwnWrite,
		OnState:  session.SetWatchState,
	})
	defer w.Stop()

	failures := 0
	for {
		if !runner.Recovering() {
			if !f.await(ctx, w, baseline) {
				return
			}
		}

		rep, err := runner.Cycle(ctx)
		if f.opts.OnReport != nil {
			f.opts.OnReport(rep, err)
		}
		// The next arm starts from the content this cycle read, so writes
		// made while it talked to the scoreboard are still detected.
		baseline = session.LoadedAt()
		if err == nil {
			failures = 0
			session.RecordError(nil)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		session.RecordError(err)

		var reloadErr *fastfollow.ReloadError
		if errors.As(err, &reloadErr) {
			delay := calculateBackoff(failures, f.opts.Interval)
			failures++
			f.log.Warn("profiles file unreadable; retrying", "error", err, "backoff", delay, "failures", failures)
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}
		if terminal(err) {
			f.log.Warn("fast-follow stopped", "error", err)
			return
		}

		delay := calculateBackoff(failures, f.opts.Interval)
		failures++
		f.log.Warn("fast-follow cycle failed; retrying", "error", err, "backoff", delay, "failures", failures)
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

// await arms the watcher from baseline and blocks until it reports a
// change. It reports false when the loop should end.
func (f *Follower) await(ctx context.Context, w *watch.Watcher, baseline time.Time) bool {
	session := f.opts.Session
	results, err := w.StartFrom(ctx, session.Path(), baseline)
	if err != nil {
		session.RecordError(err)
		return false
	}
	var res watch.Result
	var ok bool
	select {
	case <-ctx.Done():
		return false
	case res, ok = <-results:
	}
	if !ok || ctx.Err() != nil {
		return false
	}
	if res.Err != nil {
		f.log.Error("profiles file unreadable", "error", res.Err)
		session.RecordError(res.Err)
		return false
	}
	return true
}

func terminal(err error) bool {
	switch errs.CodeOf(err) {
	case errs.CodeUnsupportedChange, errs.CodeInvalidToken, errs.CodeProfileTopology,
		errs.CodeUnsavedChanges, errs.CodeNotLoaded:
		return true
	}
	return false
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
