// Package state owns the open profiles file for the lifetime of a session.
//
// # Overview
//
// A Session bundles the profile.Store, its history.Buffer and the
// preference store behind one mutex. The interactive UI and the fast-follow
// loop both go through the Session, so store access is serialized
// explicitly instead of relying on callers to stay out of each other's way.
//
//	UI (bubbletea)                 fast-follow loop
//	┌──────────────────┐           ┌──────────────────────┐
//	│ session.Import() │           │ session.Exclusive(   │
//	│ session.Undo()   │──(mutex)──│   capture, reload,   │
//	│ session.Snapshot │           │   diff)              │
//	└──────────────────┘           └──────────────────────┘
//
// Network calls of a fast-follow cycle run outside the lock.
//
// # Persistence
//
// Save writes Serialize() to the file, records the text in the history
// buffer and clears the dirty flag. With autosave enabled every mutating
// method saves on success. Undo and Redo write a historic snapshot back to
// the file and reload it, keeping the active profile when it still exists.
//
// Opening a file records its canonical form as the first history entry
// without rewriting the file. Profile edits (add, rename, delete) reset the
// history.
//
// # Own writes
//
// Every write stores the file's resulting modification time. The change
// watcher asks OwnWrite so that the session's saves are not mistaken for
// the game updating the file. OwnWrite is lock free so the watcher never
// waits on a cycle in progress.
//
// # Snapshots
//
// Snapshot returns a copy for rendering. Version increases on every change
// so the UI can skip redraws.
package state
