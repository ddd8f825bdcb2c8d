package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Watch backends.
const (
	BackendPoll   = "poll"
	BackendNotify = "notify"
)

const (
	envPrefix         = "GHOSTKEEPER_"
	defaultConfigPath = "~/.config/ghostkeeper/config.toml"
	defaultLogFile    = "~/.local/state/ghostkeeper/ghostkeeper.log"
	defaultPrefsPath  = "~/.config/ghostkeeper/prefs.toml"
)

// Config holds ghostkeeper's settings.
type Config struct {
	ProfilesPath   string `koanf:"profiles_path"`
	UserConfigPath string `koanf:"user_config_path"`
	APIURL         string `koanf:"api_url"`

	PollInterval time.Duration `koanf:"poll_interval"`
	SettleDelay  time.Duration `koanf:"settle_delay"`
	WatchBackend string        `koanf:"watch_backend"`

	HistorySize  int      `koanf:"history_size"`
	Autosave     bool     `koanf:"autosave"`
	ReverseModes []int    `koanf:"reverse_modes"`
	Tracks       []string `koanf:"tracks"`

	LogLevel    string `koanf:"log_level"`
	LogFormat   string `koanf:"log_format"`
	LogFile     string `koanf:"log_file"`
	MetricsAddr string `koanf:"metrics_addr"`

	RequestTimeout    time.Duration `koanf:"request_timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`

	PrefsPath string `koanf:"prefs_path"`
	Theme     string `koanf:"theme"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PollInterval:      5 * time.Second,
		SettleDelay:       time.Second,
		WatchBackend:      BackendPoll,
		HistorySize:       10,
		Autosave:          true,
		LogLevel:          "info",
		LogFormat:         "text",
		LogFile:           defaultLogFile,
		RequestTimeout:    5 * time.Second,
		RequestsPerSecond: 2,
		PrefsPath:         defaultPrefsPath,
	}
}

// Load layers defaults, the TOML file at path (or the default location) and
// GHOSTKEEPER_* environment variables, in that order. A missing file is not
// an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	if _, err := os.Stat(resolved); err == nil {
		if err := k.Load(file.Provider(resolved), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	// GHOSTKEEPER_POLL_INTERVAL -> poll_interval
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.APIURL = strings.TrimSpace(c.APIURL)
	c.WatchBackend = strings.ToLower(strings.TrimSpace(c.WatchBackend))
	for _, p := range []*string{&c.ProfilesPath, &c.UserConfigPath, &c.LogFile, &c.PrefsPath} {
		if strings.TrimSpace(*p) == "" {
			*p = ""
			continue
		}
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.HistorySize < 1:
		return fmt.Errorf("history_size must be at least 1, got %d", c.HistorySize)
	case c.PollInterval <= 0:
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	case c.SettleDelay < 0:
		return fmt.Errorf("settle_delay must not be negative, got %s", c.SettleDelay)
	case c.WatchBackend != BackendPoll && c.WatchBackend != BackendNotify:
		return fmt.Errorf("watch_backend must be %q or %q, got %q", BackendPoll, BackendNotify, c.WatchBackend)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	case c.RequestsPerSecond <= 0:
		return fmt.Errorf("requests_per_second must be positive, got %g", c.RequestsPerSecond)
	}
	return nil
}

// ResolvePath expands a user supplied path the way config values are.
func ResolvePath(path string) (string, error) {
	return expandPath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
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
