package profile

import (
	"fmt"
	"strings"
)

// Export renders the ghosts at indices as an import-compatible document,
// each preceded by a descriptive comment.
func (s *Store) Export(indices []int) (string, error) {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\r\n")
	b.WriteString("<" + TagGhosts + ">\r\n")
	for _, i := range indices {
		g, err := s.Ghost(i)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\t<!-- %s @ %s (%s): %s (Ski %d) -->\r\n\t%s\r\n",
			commentText(g.Nickname()),
			commentText(s.catalog.TrackName(g.Track())),
			commentText(s.catalog.WeatherName(g.Weather())),
			commentText(g.Result(s.catalog)),
			g.Ski(),
			g.ToSerialized(),
		)
	}
	b.WriteString("</" + TagGhosts + ">\r\n")
	return b.String(), nil
}

// commentText breaks up "--", which may not appear inside an XML comment.
func commentText(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	return s
}
