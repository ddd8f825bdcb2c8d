// Package ui is ghostkeeper's terminal front-end, built on Bubble Tea.
//
// The Model polls state.Session snapshots on a tick and renders the ghost
// table of the active profile, a tail of ghostkeeper's own log file, and
// modal dialogs. Every mutation runs as a tea.Cmd against the session, so
// file I/O never blocks the update loop.
//
// Fast-follow runs in the background. Its questions (apply a new best,
// download the scoreboard's ghost) reach the UI through Prompter, which
// turns each one into a modal and blocks the asking cycle until the player
// answers. Questions that arrive while another modal is open wait in a
// queue.
package ui
