// Package fastfollow uploads new results as soon as the game writes them.
//
// A cycle starts after the change watcher reports a modification of the
// profiles file:
//
//  1. Under the session lock, grids of the active and default profiles are
//     captured, the file is reloaded and the grids are captured again. A
//     change in the number of profiles aborts the cycle with
//     errs.ErrUnsupportedChange.
//  2. Diff collects the cells that gained a record or whose time changed,
//     active profile first.
//  3. Without the lock, each change is looked up on the scoreboard and
//     Decide picks upload, forced non-competitive upload or skip.
//     Competitive uploads may be applied as the player's best.
//  4. When exactly one competitive upload happened and the game does not
//     run multiple ghosts, the Prompter is offered a download of the
//     scoreboard's best ghost for that condition, which is imported with
//     force and saved.
//
// A file that cannot be read back (half written, or holding a malformed
// ghost) fails the cycle with a *ReloadError. The Runner keeps the grids
// from before that read and the next Cycle diffs against them, restoring
// the same active profile.
//
// A rejected token is removed from the profile before the cycle returns
// errs.ErrInvalidToken. Each cycle carries a uuid for log correlation.
package fastfollow
