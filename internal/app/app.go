package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/five82/ghostkeeper/internal/config"
	"github.com/five82/ghostkeeper/internal/fastfollow"
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/logger"
	"github.com/five82/ghostkeeper/internal/metrics"
	"github.com/five82/ghostkeeper/internal/prefs"
	"github.com/five82/ghostkeeper/internal/scoreboard"
	"github.com/five82/ghostkeeper/internal/state"
	"github.com/five82/ghostkeeper/internal/ui"
)

// Version is reported in the scoreboard User-Agent.
var Version = "dev"

// Options configure the ghostkeeper application.
type Options struct {
	ConfigPath   string
	ProfilesPath string // overrides profiles_path
	ImportPath   string // ghosts to import before starting
	Force        bool   // upload slower results as non-competitive
	Headless     bool
	PollEvery    int // seconds; zero uses poll_interval
}

// Run boots ghostkeeper until the context is cancelled or the UI exits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.ProfilesPath != "" {
		path, err := config.ResolvePath(opts.ProfilesPath)
		if err != nil {
			return fmt.Errorf("resolve profiles path: %w", err)
		}
		cfg.ProfilesPath = path
	}
	if cfg.ProfilesPath == "" {
		return errors.New("no profiles file: set profiles_path or pass -file")
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	log, closeLog, err := openLogger(cfg, opts.Headless)
	if err != nil {
		return err
	}
	defer closeLog()

	m := metrics.NewManager()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error("metrics listener failed", "error", err)
			}
		}()
	}

	userPrefs := prefs.Open(cfg.PrefsPath)
	session, err := state.Open(state.Options{
		Path:        cfg.ProfilesPath,
		Catalog:     game.NewCatalog(cfg.Tracks, cfg.ReverseModes),
		HistorySize: cfg.HistorySize,
		Autosave:    cfg.Autosave,
		Prefs:       userPrefs,
		Logger:      log,
		Metrics:     m,
	})
	if err != nil {
		return fmt.Errorf("open profiles: %w", err)
	}
	if err := session.SelectLastProfile(); err != nil {
		log.Warn("restore last profile failed", "error", err)
	}

	if opts.ImportPath != "" {
		if err := importFile(session, opts.ImportPath, log); err != nil {
			return err
		}
	}

	var board scoreboard.Service
	if cfg.APIURL != "" {
		client, err := scoreboard.NewClient(cfg.APIURL, scoreboard.Options{
			Timeout:           cfg.RequestTimeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			UserAgent:         "ghostkeeper/" + Version,
		})
		if err != nil {
			return fmt.Errorf("init scoreboard client: %w", err)
		}
		board = client
	}

	reports := make(chan ui.CycleResult, 8)
	follower := NewFollower(FollowerOptions{
		Session:        session,
		Scoreboard:     board,
		UserConfigPath: cfg.UserConfigPath,
		Interval:       cfg.PollInterval,
		Settle:         cfg.SettleDelay,
		Backend:        cfg.WatchBackend,
		Logger:         log,
		Metrics:        m,
		OnReport: func(rep fastfollow.Report, err error) {
			logReport(log, rep, err)
			select {
			case reports <- ui.CycleResult{Report: rep, Err: err}:
			default:
			}
		},
	})

	if opts.Headless {
		if board == nil {
			return errors.New("headless fast-follow needs api_url")
		}
		return runHeadless(ctx, session, follower, opts.Force)
	}

	// A theme set in the config file pins it; otherwise the last one picked
	// in the UI is used.
	theme := userPrefs.Theme()
	if cfg.Theme != "" {
		theme = cfg.Theme
	}
	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   session,
		Follower:  follower,
		CanFollow: board != nil,
		Force:     opts.Force,
		Reports:   reports,
		LogPath:   cfg.LogFile,
		ThemeName: theme,
		Prefs:     userPrefs,
		Logger:    log,
	})
}

func runHeadless(ctx context.Context, session *state.Session, follower *Follower, force bool) error {
	if err := follower.Start(ctx, force, fastfollow.StaticPrompter{Download: fastfollow.DownloadNo}); err != nil {
		return fmt.Errorf("arm fast-follow: %w", err)
	}
	follower.Wait()
	if ctx.Err() != nil {
		return nil
	}
	if err := session.Snapshot().LastError; err != nil {
		return err
	}
	return nil
}

func importFile(session *state.Session, path string, log *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	batch, err := ghost.ParseBatch(string(data))
	if err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}
	res, err := session.Import(batch, false)
	if err != nil {
		return fmt.Errorf("import ghosts: %w", err)
	}
	if res.Rejected {
		return fmt.Errorf("import %s: %d ghost(s) would replace times already in the profile; set %q in the preferences or import from the UI to confirm",
			path, len(batch), prefs.KeyAlwaysReplace)
	}
	log.Info("ghosts imported", "path", path, "imported", res.Imported)
	return nil
}

func logReport(log *slog.Logger, rep fastfollow.Report, err error) {
	attrs := []any{"cycle", rep.CycleID, "changes", len(rep.Changes), "uploads", len(rep.Competitive())}
	if rep.Downloaded != nil {
		attrs = append(attrs, "downloaded", rep.Downloaded.String())
	}
	if rep.TokenCleared {
		attrs = append(attrs, "token_cleared", true)
	}
	if err != nil {
		log.Warn("fast-follow cycle finished with error", append(attrs, "error", err)...)
		return
	}
	log.Info("fast-follow cycle finished", attrs...)
}

func openLogger(cfg config.Config, headless bool) (*slog.Logger, func(), error) {
	level := logger.ParseLevel(cfg.LogLevel)
	if headless {
		return logger.New(logger.Config{Writer: os.Stderr, Format: cfg.LogFormat, Level: level}), func() {}, nil
	}
	if cfg.LogFile == "" {
		return logger.New(logger.Config{Writer: io.Discard}), func() {}, nil
	}
	f, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return logger.New(logger.Config{Writer: f, Format: cfg.LogFormat, Level: level}), func() { _ = f.Close() }, nil
}
