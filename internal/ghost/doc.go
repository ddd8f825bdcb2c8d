// Package ghost implements the ghost record value type.
//
// A Record is parsed from a GhostDataPair element (or built from fields) and
// keeps a canonical serialized copy of that element so a ghost can be
// written back, exported and re-imported without drift.
package ghost
