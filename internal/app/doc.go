// Package app is ghostkeeper's composition root.
//
// # Overview
//
// Run loads configuration, opens the log file, the preference store and the
// profiles file, builds the scoreboard client and hands everything to the
// TUI. With -headless it skips the UI and keeps fast-follow armed against
// the last used profile until the context is cancelled.
//
// # Components
//
//   - app.go: Run, logger setup, the -import step and headless mode
//   - follow.go: Follower, the re-arming fast-follow loop
//
// # Fast-follow loop
//
//	Start ──> Runner.Check ──> watch.StartFrom ──> Result ──> Runner.Cycle
//	              │                 ^                          │
//	              │                 └──────── re-arm ──────────┤
//	              └─> refused                                  └─> stop on
//	                                                               terminal error
//
// Every arm starts from the modification time of the content the session
// last read or wrote, so a write landing between cycles, or before the loop
// goroutine runs, is still detected. The watcher ignores modification times
// the session wrote itself, so autosaves and follow-up downloads never
// trigger a cycle.
//
// Errors a retry cannot fix stop the loop: an unsupported topology change,
// a rejected token, unsaved changes or a profile fast-follow does not serve.
// Scoreboard failures back off (doubling from the poll interval, capped at
// 30s) and the loop re-arms. A profiles file that cannot be read back is
// retried with the same backoff, without waiting for another write, until
// it parses; the cycle that succeeds uploads what the unreadable write held.
package app
