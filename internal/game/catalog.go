package game

import (
	"fmt"
	"strings"
)

// ModeInfo describes one game mode.
type ModeInfo struct {
	ID      Mode
	Name    string
	Reverse bool // higher score wins
}

// WeatherInfo describes one normal weather.
type WeatherInfo struct {
	ID   Weather
	Name string
}

// Catalog lists every known mode, track and weather. Grids are dimensioned
// by it, so only conditions it knows about can occupy a grid cell.
type Catalog struct {
	Modes    []ModeInfo
	Tracks   []string
	Weathers []WeatherInfo
}

// DefaultModes are the built-in game modes.
var DefaultModes = []ModeInfo{
	{ID: 0, Name: "Race"},
	{ID: 1, Name: "Slalom"},
	{ID: 2, Name: "Giant Slalom"},
	{ID: 3, Name: "Jump", Reverse: true},
}

// DefaultTracks are the built-in tracks.
var DefaultTracks = []string{"Alpine", "Glacier", "Forest", "Valley", "Summit"}

// DefaultWeathers are the built-in normal weathers.
var DefaultWeathers = []WeatherInfo{
	{ID: 0, Name: "Sunny"},
	{ID: 1, Name: "Cloudy"},
	{ID: 2, Name: "Snowfall"},
	{ID: 3, Name: "Fog"},
}

// DefaultCatalog returns a catalog populated with the built-in lists.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Modes:    append([]ModeInfo(nil), DefaultModes...),
		Tracks:   append([]string(nil), DefaultTracks...),
		Weathers: append([]WeatherInfo(nil), DefaultWeathers...),
	}
}

// NewCatalog builds a catalog from the defaults, optionally replacing the
// track list and the set of reverse modes.
func NewCatalog(tracks []string, reverseModes []int) *Catalog {
	c := DefaultCatalog()
	if len(tracks) > 0 {
		c.Tracks = append([]string(nil), tracks...)
	}
	if reverseModes != nil {
		rev := make(map[Mode]bool, len(reverseModes))
		for _, m := range reverseModes {
			rev[Mode(m)] = true
		}
		for i := range c.Modes {
			c.Modes[i].Reverse = rev[c.Modes[i].ID]
		}
	}
	return c
}

// ModeIndex returns the grid position of mode, or -1.
func (c *Catalog) ModeIndex(m Mode) int {
	for i, info := range c.Modes {
		if info.ID == m {
			return i
		}
	}
	return -1
}

// TrackIndex returns the grid position of track (case-insensitive), or -1.
func (c *Catalog) TrackIndex(track string) int {
	for i, t := range c.Tracks {
		if strings.EqualFold(t, track) {
			return i
		}
	}
	return -1
}

// WeatherIndex returns the grid position of weather, or -1.
func (c *Catalog) WeatherIndex(w Weather) int {
	for i, info := range c.Weathers {
		if info.ID == w {
			return i
		}
	}
	return -1
}

// Cell returns the grid coordinates of cond. ok is false when any dimension
// is unknown to the catalog.
func (c *Catalog) Cell(cond Condition) (m, t, w int, ok bool) {
	m = c.ModeIndex(cond.Mode)
	t = c.TrackIndex(cond.Track)
	w = c.WeatherIndex(cond.Weather)
	return m, t, w, m >= 0 && t >= 0 && w >= 0
}

// ConditionAt returns the condition stored at grid coordinates.
func (c *Catalog) ConditionAt(m, t, w int) Condition {
	return Condition{Mode: c.Modes[m].ID, Track: c.Tracks[t], Weather: c.Weathers[w].ID}
}

// IsReverse reports whether higher results win in mode.
func (c *Catalog) IsReverse(m Mode) bool {
	if i := c.ModeIndex(m); i >= 0 {
		return c.Modes[i].Reverse
	}
	return false
}

// Improves reports whether candidate beats best in mode.
func (c *Catalog) Improves(m Mode, candidate, best int64) bool {
	if c.IsReverse(m) {
		return candidate > best
	}
	return candidate < best
}

// ModeName returns a display name for mode.
func (c *Catalog) ModeName(m Mode) string {
	if i := c.ModeIndex(m); i >= 0 {
		return c.Modes[i].Name
	}
	return fmt.Sprintf("Mode %d", m)
}

// TrackName returns the catalog spelling of track, or track itself.
func (c *Catalog) TrackName(track string) string {
	if i := c.TrackIndex(track); i >= 0 {
		return c.Tracks[i]
	}
	return track
}

// WeatherName returns a display name for weather.
func (c *Catalog) WeatherName(w Weather) string {
	switch w {
	case WeatherRace:
		return "Race"
	case WeatherNone:
		return "-"
	}
	if i := c.WeatherIndex(w); i >= 0 {
		return c.Weathers[i].Name
	}
	return fmt.Sprintf("Weather %d", w)
}

// FormatResult renders a result for mode. Times are milliseconds; reverse
// modes carry points.
func (c *Catalog) FormatResult(m Mode, result int64) string {
	if c.IsReverse(m) {
		return fmt.Sprintf("%d pts", result)
	}
	return FormatTime(result)
}

// FormatTime renders milliseconds as m:ss.mmm.
func FormatTime(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	minutes := ms / 60000
	seconds := (ms / 1000) % 60
	millis := ms % 1000
	return fmt.Sprintf("%s%d:%02d.%03d", sign, minutes, seconds, millis)
}
