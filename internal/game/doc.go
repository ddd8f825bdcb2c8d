// Package game describes the race scenarios ghosts are recorded under.
//
// A Condition is the (mode, track, weather) triple. The Catalog lists every
// known value of each dimension and fixes the order used by condition grids,
// which also makes it the authority on reverse modes where a higher result
// wins. ReadUserConfig inspects the game's own settings file.
package game
