package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ghostkeeper/internal/fastfollow"
	"github.com/five82/ghostkeeper/internal/profile"
)

const (
	headerLines = 2
	footerLines = 2
)

// renderHeader draws the title bar with state badges and the profile tabs.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	left := styles.Logo.Render("ghostkeeper")
	if snap.Path != "" {
		left += " " + styles.MutedText.Render(snap.Path)
	}

	var badges []string
	ff := "idle"
	if m.follower != nil && m.follower.Active() {
		ff = snap.WatchState.String()
	}
	badges = append(badges, styles.StateStyle(ff).Render("fast-follow "+ff))
	if snap.Dirty {
		badges = append(badges, styles.StateStyle("unsaved").Render("unsaved"))
	} else {
		badges = append(badges, styles.StateStyle("saved").Render("saved"))
	}
	if snap.HasToken {
		badges = append(badges, styles.SuccessText.Render("token"))
	} else {
		badges = append(badges, styles.FaintText.Render("no token"))
	}
	badges = append(badges, styles.MutedText.Render(historyLabel(snap.CanUndo, snap.CanRedo)))
	right := strings.Join(badges, " ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line1 := left + strings.Repeat(" ", gap) + right

	tabs := make([]string, 0, len(snap.Profiles))
	for i, name := range snap.Profiles {
		label := name
		switch {
		case i == snap.DefaultIndex:
			label = "default"
		case name == profile.SpecialNickname:
			label = name + "*"
		}
		if i == snap.Active {
			tabs = append(tabs, styles.Selected.Padding(0, 1).Render(label))
		} else {
			tabs = append(tabs, styles.MutedText.Padding(0, 1).Render(label))
		}
	}
	line2 := strings.Join(tabs, "")
	if ghosts := len(snap.Ghosts); snap.Profiles != nil {
		line2 += "  " + styles.FaintText.Render(fmt.Sprintf("%d ghost(s)", ghosts))
	}

	return line1 + "\n" + line2
}

func historyLabel(canUndo, canRedo bool) string {
	switch {
	case canUndo && canRedo:
		return "undo/redo"
	case canUndo:
		return "undo"
	case canRedo:
		return "redo"
	default:
		return ""
	}
}

// renderStatus shows the last action result, falling back to the last
// session error and then to the last fast-follow cycle.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	switch {
	case m.status.text != "" && m.status.err:
		return styles.DangerText.Render(truncate(m.status.text, m.width))
	case m.status.text != "":
		return styles.InfoText.Render(truncate(m.status.text, m.width))
	case m.snapshot.LastError != nil:
		return styles.DangerText.Render(truncate(m.snapshot.LastError.Error(), m.width))
	case m.lastCycle != "":
		return styles.MutedText.Render(truncate(m.lastCycle, m.width))
	}
	return ""
}

func summarizeCycle(res CycleResult) string {
	rep := res.Report
	parts := []string{fmt.Sprintf("last cycle: %d change(s)", len(rep.Changes))}
	uploaded, skipped, failed := 0, 0, 0
	for _, u := range rep.Uploads {
		switch {
		case u.Err != nil:
			failed++
		case u.Decision == fastfollow.Skip:
			skipped++
		default:
			uploaded++
		}
	}
	if uploaded > 0 {
		parts = append(parts, fmt.Sprintf("%d uploaded", uploaded))
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d slower than the scoreboard", skipped))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	if rep.Downloaded != nil {
		parts = append(parts, "best ghost downloaded")
	}
	if rep.TokenCleared {
		parts = append(parts, "token removed")
	}
	if res.Err != nil {
		parts = append(parts, "error: "+res.Err.Error())
	}
	return strings.Join(parts, ", ")
}
