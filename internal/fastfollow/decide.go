package fastfollow

import "github.com/five82/ghostkeeper/internal/game"

// Decision is what happens to a changed record.
type Decision int

// Decisions.
const (
	Skip Decision = iota
	Upload
	ForceNonCompetitive
)

func (d Decision) String() string {
	switch d {
	case Upload:
		return "upload"
	case ForceNonCompetitive:
		return "force"
	default:
		return "skip"
	}
}

// Decide picks the upload decision for result in mode given the
// scoreboard's best. A missing best always uploads. A result that does not
// improve on the best is uploaded as non-competitive only when force is set.
func Decide(c *game.Catalog, mode game.Mode, result int64, best int64, hasBest, force bool) Decision {
	if !hasBest || c.Improves(mode, result, best) {
		return Upload
	}
	if force {
		return ForceNonCompetitive
	}
	return Skip
}
