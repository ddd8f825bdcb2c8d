// Package logtail reads the tail of ghostkeeper's own log file for the log
// pane.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// O(maxLines) however large the file grows. A missing file reads as empty:
// the pane simply shows nothing until the first record is written.
//
// Level understands the three logger formats (text, json and pretty) and
// Filter uses it to hide records below a chosen level.
package logtail
