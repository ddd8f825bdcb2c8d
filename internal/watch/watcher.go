package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/ghostkeeper/internal/logger"
)

// State is the watcher's lifecycle state.
type State int

// Watcher states.
const (
	Idle State = iota
	Watching
	Detected
)

func (s State) String() string {
	switch s {
	case Watching:
		return "watching"
	case Detected:
		return "detected"
	default:
		return "idle"
	}
}

// Backends.
const (
	BackendPoll   = "poll"
	BackendNotify = "notify"
)

const (
	defaultInterval = 5 * time.Second
	// DefaultSettle is the settle delay used by the application.
	DefaultSettle = time.Second
)

// Options configures a Watcher.
type Options struct {
	// Interval between modification time checks.
	Interval time.Duration
	// Settle is the extra wait after a change before reporting it. Zero
	// reports immediately.
	Settle time.Duration
	// Backend "notify" adds fsnotify wake-ups between polls.
	Backend string
	// Ignore may claim a modification time as our own write.
	Ignore func(modTime time.Time) bool
	// OnState observes every state transition.
	OnState func(State)
}

// Result is delivered once per armed cycle.
type Result struct {
	ModTime time.Time
	Err     error
}

// Watcher polls a file's modification time and reports the first external
// change. It reports once and stops; Start it again to keep watching.
type Watcher struct {
	logger *slog.Logger
	opts   Options

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle watcher.
func New(log *slog.Logger, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if opts.Backend == "" {
		opts.Backend = BackendPoll
	}
	return &Watcher{
		logger: logger.OrDiscard(log).With("component", "watch"),
		opts:   opts,
	}
}

// State returns the current state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	if w.opts.OnState != nil {
		w.opts.OnState(s)
	}
}

// Start arms the watcher on path, taking the file's current modification
// time as the baseline. The returned channel yields one Result when a change
// is detected or an I/O error ends the loop, and is closed without a value
// when the watcher is stopped.
func (w *Watcher) Start(ctx context.Context, path string) (<-chan Result, error) {
	return w.StartFrom(ctx, path, time.Time{})
}

// StartFrom is Start with an explicit baseline: any modification time other
// than baseline counts as a change, including one written before the call.
// A zero baseline reads the current modification time.
func (w *Watcher) StartFrom(ctx context.Context, path string, baseline time.Time) (<-chan Result, error) {
	w.mu.Lock()
	if w.state == Watching {
		w.mu.Unlock()
		return nil, errors.New("watcher already running")
	}
	w.mu.Unlock()

	if baseline.IsZero() {
		mt, err := modTime(path)
		if err != nil {
			return nil, err
		}
		baseline = mt
	} else if _, err := modTime(path); err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()
	w.setState(Watching)

	wake := w.notifications(loopCtx, path)
	out := make(chan Result, 1)
	go func() {
		defer close(done)
		defer close(out)
		defer cancel()
		w.loop(loopCtx, path, baseline, wake, out)
	}()
	return out, nil
}

// Stop cancels a running loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) loop(ctx context.Context, path string, baseline time.Time, wake <-chan struct{}, out chan<- Result) {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	w.logger.Debug("watching", "path", path, "interval", w.opts.Interval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watch cancelled")
			w.setState(Idle)
			return
		case <-ticker.C:
		case <-wake:
		}

		current, err := modTime(path)
		if err != nil {
			w.logger.Warn("watch stopped", "error", err)
			w.setState(Idle)
			out <- Result{Err: err}
			return
		}
		if current.Equal(baseline) {
			continue
		}
		if w.opts.Ignore != nil && w.opts.Ignore(current) {
			w.logger.Debug("ignoring own write", "mtime", current)
			baseline = current
			continue
		}

		w.logger.Info("change detected", "path", path, "mtime", current)
		if w.opts.Settle > 0 {
			timer := time.NewTimer(w.opts.Settle)
			select {
			case <-ctx.Done():
				timer.Stop()
				w.setState(Idle)
				return
			case <-timer.C:
			}
		}
		if settled, err := modTime(path); err == nil {
			current = settled
		}
		w.setState(Detected)
		out <- Result{ModTime: current}
		return
	}
}

// notifications returns a channel that fires when fsnotify reports activity
// on path. It returns nil for the poll backend or when fsnotify is
// unavailable, leaving the ticker as the only trigger.
func (w *Watcher) notifications(ctx context.Context, path string) <-chan struct{} {
	if w.opts.Backend != BackendNotify {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, polling only", "error", err)
		return nil
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		w.logger.Warn("fsnotify watch failed, polling only", "error", err)
		_ = fw.Close()
		return nil
	}

	target := filepath.Clean(path)
	wake := make(chan struct{}, 1)
	go func() {
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger.Debug("fsnotify error", "error", err)
			}
		}
	}()
	return wake
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}
