// Package config loads ghostkeeper's settings.
//
// # Layering
//
// Load builds a Config from three layers, lowest precedence first:
//
//  1. Built-in defaults (Default)
//  2. The TOML file at the given path, or ~/.config/ghostkeeper/config.toml
//  3. GHOSTKEEPER_* environment variables (GHOSTKEEPER_LOG_LEVEL=debug)
//
// A missing config file is not an error. A file that exists but cannot be
// parsed is.
//
// # TOML Format
//
//	profiles_path = "~/Games/SkiChallenge/OfflineProfiles.xml"
//	user_config_path = "~/Games/SkiChallenge/UserConfig.xml"
//	api_url = "https://scores.example.org"
//	poll_interval = "5s"
//	settle_delay = "1s"
//	watch_backend = "notify"
//	history_size = 10
//	reverse_modes = [3]
//	log_level = "debug"
//
// Durations use Go syntax. Paths starting with ~ are expanded against the
// home directory and made absolute.
//
// # Validation
//
// Load rejects a history size below one, non-positive poll intervals,
// timeouts or request rates, and unknown watch backends.
package config
