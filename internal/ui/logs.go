package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ghostkeeper/internal/logtail"
)

const logBufferLimit = 2000

var logLevels = []string{logtail.LevelDebug, logtail.LevelInfo, logtail.LevelWarn, logtail.LevelError}

// logState holds all log-related state.
type logState struct {
	rawLines []string
	follow   bool
	minLevel string
	err      error
}

type logLinesMsg struct {
	lines []string
	err   error
}

// refreshLogs reads the tail of our own log file.
func (m Model) refreshLogs() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logBufferLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.rawLines = msg.lines
	}
	m.updateLogViewport()
}

func (m *Model) resizeLogViewport() {
	m.logViewport.Width = m.width
	m.logViewport.Height = m.bodyHeight()
	m.updateLogViewport()
}

func (m *Model) updateLogViewport() {
	lines := logtail.Filter(m.logState.rawLines, m.logState.minLevel)
	styles := m.theme.Styles()
	rendered := make([]string, len(lines))
	for i, line := range lines {
		rendered[i] = colorizeLine(styles, line)
	}
	m.logViewport.SetContent(strings.Join(rendered, "\n"))
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func colorizeLine(styles Styles, line string) string {
	switch logtail.Level(line) {
	case logtail.LevelError:
		return styles.DangerText.Render(line)
	case logtail.LevelWarn:
		return styles.WarningText.Render(line)
	case logtail.LevelDebug:
		return styles.FaintText.Render(line)
	case logtail.LevelInfo:
		return styles.Text.Render(line)
	default:
		return styles.MutedText.Render(line)
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, m.refreshLogs()
		}
		return m, nil
	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.minLevel = nextLevel(m.logState.minLevel)
		m.updateLogViewport()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logState.follow = false
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	if !m.logViewport.AtBottom() {
		m.logState.follow = false
	}
	return m, cmd
}

func nextLevel(current string) string {
	for i, lvl := range logLevels {
		if lvl == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[1]
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	if m.logPath == "" {
		return lipgloss.NewStyle().Height(m.bodyHeight()).Render(
			styles.MutedText.Render("Logging to a file is disabled (log_file is empty)."))
	}
	if m.logState.err != nil {
		return lipgloss.NewStyle().Height(m.bodyHeight()).Render(
			styles.DangerText.Render(m.logState.err.Error()))
	}
	return m.logViewport.View()
}
