package game

import (
	"fmt"
	"strings"
)

// Mode identifies a game mode.
type Mode int

// Weather identifies a weather condition. Non-negative values are normal
// weathers; negative values are synthetic markers.
type Weather int

const (
	// WeatherNone marks an unset weather.
	WeatherNone Weather = -1
	// WeatherRace is the live competition weather, resolved per mode/track.
	WeatherRace Weather = -2
)

// Condition is the (mode, track, weather) triple identifying a race scenario.
type Condition struct {
	Mode    Mode
	Track   string
	Weather Weather
}

// Equal reports whether two conditions match. Tracks compare case-insensitively.
func (c Condition) Equal(o Condition) bool {
	return c.Mode == o.Mode && c.Weather == o.Weather && strings.EqualFold(c.Track, o.Track)
}

// Key returns a normalized map key for the condition.
func (c Condition) Key() string {
	return fmt.Sprintf("%d|%s|%d", c.Mode, strings.ToLower(c.Track), c.Weather)
}

func (c Condition) String() string {
	return fmt.Sprintf("mode=%d track=%s weather=%d", c.Mode, c.Track, c.Weather)
}
