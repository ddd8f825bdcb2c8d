package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionEqualIgnoresTrackCase(t *testing.T) {
	a := Condition{Mode: 0, Track: "Alpine", Weather: 1}
	b := Condition{Mode: 0, Track: "alpine", Weather: 1}

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(Condition{Mode: 0, Track: "alpine", Weather: 2}))
	assert.False(t, a.Equal(Condition{Mode: 1, Track: "alpine", Weather: 1}))
}

func TestCatalogCell(t *testing.T) {
	c := DefaultCatalog()

	m, tr, w, ok := c.Cell(Condition{Mode: 0, Track: "ALPINE", Weather: 1})
	require.True(t, ok)
	assert.Equal(t, 0, m)
	assert.Equal(t, 0, tr)
	assert.Equal(t, 1, w)
	assert.Equal(t, Condition{Mode: 0, Track: "Alpine", Weather: 1}, c.ConditionAt(m, tr, w))

	_, _, _, ok = c.Cell(Condition{Mode: 0, Track: "Nowhere", Weather: 1})
	assert.False(t, ok)
	_, _, _, ok = c.Cell(Condition{Mode: 0, Track: "Alpine", Weather: WeatherRace})
	assert.False(t, ok)
}

func TestNewCatalogOverrides(t *testing.T) {
	c := NewCatalog([]string{"A", "B"}, []int{0})

	assert.Equal(t, []string{"A", "B"}, c.Tracks)
	assert.True(t, c.IsReverse(0))
	assert.False(t, c.IsReverse(3))

	// defaults stay untouched
	assert.True(t, DefaultCatalog().IsReverse(3))
}

func TestImproves(t *testing.T) {
	c := DefaultCatalog()

	assert.True(t, c.Improves(0, 4800, 5000))
	assert.False(t, c.Improves(0, 5000, 5000))
	assert.True(t, c.Improves(3, 120, 100))
	assert.False(t, c.Improves(3, 90, 100))
}

func TestFormatResult(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, "1:02.345", c.FormatResult(0, 62345))
	assert.Equal(t, "0:04.800", c.FormatResult(1, 4800))
	assert.Equal(t, "130 pts", c.FormatResult(3, 130))
}

func TestNames(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, "Jump", c.ModeName(3))
	assert.Equal(t, "Mode 9", c.ModeName(9))
	assert.Equal(t, "Alpine", c.TrackName("alpine"))
	assert.Equal(t, "Race", c.WeatherName(WeatherRace))
	assert.Equal(t, "Cloudy", c.WeatherName(1))
}

func TestReadUserConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := ReadUserConfig(filepath.Join(dir, "missing.xml"))
	require.NoError(t, err)
	assert.False(t, cfg.MultiGhost)

	path := filepath.Join(dir, "UserConfig.xml")
	xml := "<?xml version=\"1.0\"?>\r\n<UserConfig>\r\n\t<Graphics>\r\n\t\t<MultiGhost>True</MultiGhost>\r\n\t</Graphics>\r\n</UserConfig>\r\n"
	require.NoError(t, os.WriteFile(path, []byte(xml), 0o644))

	cfg, err = ReadUserConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.MultiGhost)

	require.NoError(t, os.WriteFile(path, []byte("<UserConfig x=1>"), 0o644))
	_, err = ReadUserConfig(path)
	assert.Error(t, err)
}
