package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/state"
)

type column struct {
	title string
	width int
}

var ghostColumns = []column{
	{"", 2},
	{"#", 4},
	{"Mode", 13},
	{"Track", 12},
	{"Weather", 9},
	{"Result", 11},
	{"Nickname", 14},
	{"Ski", 4},
	{"Ticket", 6},
}

func catalogOf(s *state.Session) *game.Catalog {
	if s == nil {
		return nil
	}
	return s.Catalog()
}

func describeCondition(c *game.Catalog, cond game.Condition) string {
	return fmt.Sprintf("%s on %s (%s)", c.ModeName(cond.Mode), c.TrackName(cond.Track), c.WeatherName(cond.Weather))
}

func describeGhost(c *game.Catalog, r *ghost.Record) string {
	if r == nil {
		return "no ghost"
	}
	return fmt.Sprintf("%s: %s, %s", r.Nickname(), describeCondition(c, r.Condition()), r.Result(c))
}

func ghostCells(c *game.Catalog, i int, r *ghost.Record, marked bool) []string {
	mark := ""
	if marked {
		mark = "*"
	}
	ticket := ""
	if r.HasTicket() {
		ticket = "yes"
	}
	return []string{
		mark,
		fmt.Sprintf("%d", i+1),
		c.ModeName(r.Mode()),
		c.TrackName(r.Track()),
		c.WeatherName(r.Weather()),
		r.Result(c),
		r.Nickname(),
		fmt.Sprintf("%d", r.Ski()),
		ticket,
	}
}

func formatRow(cells []string) string {
	var b strings.Builder
	for i, col := range ghostColumns {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(lipgloss.NewStyle().Width(col.width).MaxWidth(col.width).Render(truncate(cell, col.width-1)))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "~"
}

// tableRows is the number of ghost rows that fit below the column header.
func (m Model) tableRows() int {
	rows := m.bodyHeight() - 1
	if rows < 1 {
		return 1
	}
	return rows
}

func (m *Model) clampSelection() {
	n := len(m.snapshot.Ghosts)
	if m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
	rows := m.tableRows()
	if m.selectedRow < m.offset {
		m.offset = m.selectedRow
	}
	if m.selectedRow >= m.offset+rows {
		m.offset = m.selectedRow - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) renderGhosts() string {
	styles := m.theme.Styles()
	snap := m.snapshot
	height := m.bodyHeight()

	lines := make([]string, 0, height)
	lines = append(lines, styles.AccentText.Bold(true).Render(formatRow(columnTitles())))

	if len(snap.Ghosts) == 0 {
		msg := "No ghosts in this profile. Press i to import."
		if snap.LastError != nil && snap.Profiles == nil {
			msg = "Profiles file could not be loaded. Press R to reload."
		}
		lines = append(lines, styles.MutedText.Render(msg))
	}

	end := m.offset + m.tableRows()
	if end > len(snap.Ghosts) {
		end = len(snap.Ghosts)
	}
	for i := m.offset; i < end; i++ {
		row := formatRow(ghostCells(snap.Catalog, i, snap.Ghosts[i], m.marked[i]))
		switch {
		case i == m.selectedRow:
			row = styles.Selected.Width(m.width).Render(row)
		case m.marked[i]:
			row = styles.Marked.Render(row)
		default:
			row = styles.Text.Render(row)
		}
		lines = append(lines, row)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func columnTitles() []string {
	out := make([]string, len(ghostColumns))
	for i, c := range ghostColumns {
		out[i] = c.title
	}
	return out
}

// selection returns the marked rows, or the selected row when nothing is
// marked.
func (m Model) selection() []int {
	if len(m.marked) > 0 {
		out := make([]int, 0, len(m.marked))
		for i := range m.marked {
			out = append(out, i)
		}
		sort.Ints(out)
		return out
	}
	if len(m.snapshot.Ghosts) == 0 {
		return nil
	}
	return []int{m.selectedRow}
}

func (m Model) handleGhostsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snapshot.Ghosts)
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < n-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = n - 1
	case key.Matches(msg, m.keys.Mark):
		if n > 0 {
			if m.marked[m.selectedRow] {
				delete(m.marked, m.selectedRow)
			} else {
				m.marked[m.selectedRow] = true
			}
			if m.selectedRow < n-1 {
				m.selectedRow++
			}
		}
	case key.Matches(msg, m.keys.PrevProfile):
		return m, m.cycleProfile(-1)
	case key.Matches(msg, m.keys.NextProfile):
		return m, m.cycleProfile(1)
	case key.Matches(msg, m.keys.Delete):
		return m.confirmDeleteGhosts()
	case key.Matches(msg, m.keys.Import):
		return m.promptImport()
	case key.Matches(msg, m.keys.Export):
		return m.promptExport()
	case key.Matches(msg, m.keys.Resort):
		return m, m.resortCmd(false)
	case key.Matches(msg, m.keys.Save):
		return m, m.saveCmd()
	case key.Matches(msg, m.keys.Reload):
		return m.reload()
	case key.Matches(msg, m.keys.Undo):
		return m, m.historyCmd("undo")
	case key.Matches(msg, m.keys.Redo):
		return m, m.historyCmd("redo")
	case key.Matches(msg, m.keys.AddProfile):
		return m.promptAddProfile()
	case key.Matches(msg, m.keys.RenameProfile):
		return m.promptRenameProfile()
	case key.Matches(msg, m.keys.DeleteProfile):
		return m.confirmDeleteProfile()
	case key.Matches(msg, m.keys.Token):
		return m.promptToken()
	case key.Matches(msg, m.keys.FastFollow):
		return m, m.toggleFastFollow(m.force)
	case key.Matches(msg, m.keys.FastFollowForce):
		return m, m.toggleFastFollow(true)
	}
	m.clampSelection()
	return m, nil
}
