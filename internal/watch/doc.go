// Package watch detects external modifications of the profiles file.
//
// A Watcher moves Idle -> Watching on Start, polls the file's modification
// time every Interval, and on a change waits Settle for the writer to finish
// before moving to Detected and delivering a single Result. It does not
// re-arm itself; the caller processes the change and calls Start again.
// Stop, or cancelling the context, returns the watcher to Idle without a
// Result.
//
// The notify backend adds fsnotify wake-ups on the parent directory so
// changes are noticed before the next poll. Polling stays in place as the
// fallback.
//
// Options.Ignore lets the owner of the file skip modification times caused
// by its own saves.
package watch
