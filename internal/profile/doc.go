// Package profile implements the ghost/profile store over an
// OfflineProfiles XML document.
//
// The store owns the parsed document, the ordered list of profiles, the
// active profile and its ghosts, and a dirty flag that every mutation sets
// until the persistence layer calls MarkSaved.
//
// # Profiles
//
// Profiles are addressed by index. The DefaultProfile element, when present,
// is always the last index. The profile whose nickname is SpecialNickname is
// the only one allowed to hold several ghosts per condition.
//
// # Grids
//
// AllGhosts and GhostList project the active profile onto a
// [mode][track][weather] table dimensioned by the game catalog. AllGhosts
// keeps one record per cell; called with warn set it reports duplicates
// instead of silently choosing. GhostList keeps them all.
//
// # Import
//
// Import appends a batch of records and, outside the special profile,
// deletes every older occupant of each touched condition. Batches that would
// replace existing ghosts are rejected as a whole unless forced.
package profile
