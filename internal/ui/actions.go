package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/prefs"
	"github.com/five82/ghostkeeper/internal/profile"
)

var errNoSession = errors.New("no profiles file is open")

// do runs fn off the update loop and reports its outcome.
func (m Model) do(action string, fn func() resultMsg) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if session == nil {
			return resultMsg{action: action, err: errNoSession}
		}
		res := fn()
		res.action = action
		return res
	}
}

func (m Model) cycleProfile(step int) tea.Cmd {
	n := len(m.snapshot.Profiles)
	if n == 0 {
		return nil
	}
	next := ((m.snapshot.Active+step)%n + n) % n
	return m.do("select profile", func() resultMsg {
		if err := m.session.SelectProfile(next); err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{text: "Profile " + m.snapshot.Profiles[next], clearMarks: true}
	})
}

func (m Model) confirmDeleteGhosts() (tea.Model, tea.Cmd) {
	indices := m.selection()
	if len(indices) == 0 {
		return m, nil
	}
	body := fmt.Sprintf("Delete %d ghost(s) from %s?", len(indices), m.activeName())
	if len(indices) == 1 {
		body = fmt.Sprintf("Delete %s?", describeGhost(m.snapshot.Catalog, m.snapshot.Ghosts[indices[0]]))
	}
	m.modal = newChoiceModal("Delete ghosts", body, []string{"Delete", "Cancel"}, 1, func(i int) tea.Cmd {
		if i != 0 {
			return nil
		}
		return m.do("delete ghosts", func() resultMsg {
			if err := m.session.DeleteGhosts(indices); err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{text: fmt.Sprintf("Deleted %d ghost(s)", len(indices)), clearMarks: true}
		})
	})
	return m, nil
}

func (m Model) promptImport() (tea.Model, tea.Cmd) {
	session := m.session
	m.modal = newInputModal("Import ghosts", "Path to an exported ghost file", "", false, func(path string) tea.Cmd {
		if path == "" {
			return nil
		}
		return func() tea.Msg {
			if session == nil {
				return resultMsg{action: "import", err: errNoSession}
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return resultMsg{action: "import", err: fmt.Errorf("read %s: %w", path, err)}
			}
			batch, err := ghost.ParseBatch(string(data))
			if err != nil {
				return resultMsg{action: "import", err: err}
			}
			res, err := session.Import(batch, false)
			if err != nil {
				return resultMsg{action: "import", err: err}
			}
			if res.Rejected {
				return importConflictMsg{batch: batch}
			}
			return importedResult(res)
		}
	})
	return m, nil
}

func importedResult(res profile.ImportResult) resultMsg {
	return resultMsg{
		action:     "import",
		text:       fmt.Sprintf("Imported %d ghost(s)", res.Imported),
		highlight:  res.Highlight,
		clearMarks: true,
	}
}

func (m Model) importConflictModal(msg importConflictMsg) Modal {
	return newChoiceModal("Replace ghosts",
		"Some imported ghosts race conditions this profile already holds. Replace the existing ghosts?",
		[]string{"Replace", "Always replace", "Cancel"}, 2,
		func(i int) tea.Cmd {
			switch i {
			case 0:
			case 1:
				if err := m.prefs.Set(prefs.KeyAlwaysReplace, "true"); err != nil {
					m.log.Warn("store replace preference failed", "error", err)
				}
			default:
				return nil
			}
			return m.do("import", func() resultMsg {
				res, err := m.session.Import(msg.batch, true)
				if err != nil {
					return resultMsg{err: err}
				}
				return importedResult(res)
			})
		})
}

func (m Model) promptExport() (tea.Model, tea.Cmd) {
	indices := m.selection()
	if len(indices) == 0 {
		return m, nil
	}
	m.modal = newInputModal(fmt.Sprintf("Export %d ghost(s)", len(indices)), "Destination file", "ghosts.xml", false,
		func(path string) tea.Cmd {
			if path == "" {
				return nil
			}
			return m.do("export", func() resultMsg {
				text, err := m.session.Export(indices)
				if err != nil {
					return resultMsg{err: err}
				}
				if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
					return resultMsg{err: fmt.Errorf("write %s: %w", path, err)}
				}
				return resultMsg{text: fmt.Sprintf("Exported %d ghost(s) to %s", len(indices), path)}
			})
		})
	return m, nil
}

// resortCmd asks first without dropping anything; when duplicates exist the
// UI confirms and runs it again with confirmed set.
func (m Model) resortCmd(confirmed bool) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if session == nil {
			return resultMsg{action: "resort", err: errNoSession}
		}
		asked := false
		done, err := session.Resort(func() bool {
			asked = true
			return confirmed
		})
		switch {
		case err != nil:
			return resultMsg{action: "resort", err: err}
		case asked && !done:
			return resortConfirmMsg{}
		}
		return resultMsg{action: "resort", text: "Profile resorted"}
	}
}

func (m Model) resortConfirmModal() Modal {
	return newChoiceModal("Duplicate ghosts",
		"Some conditions hold more than one ghost. Resorting keeps only the first of each. Continue?",
		[]string{"Resort", "Cancel"}, 1,
		func(i int) tea.Cmd {
			if i != 0 {
				return nil
			}
			return m.resortCmd(true)
		})
}

func (m Model) saveCmd() tea.Cmd {
	return m.do("save", func() resultMsg {
		saved, err := m.session.Save(false)
		if err != nil {
			return resultMsg{err: err}
		}
		if !saved {
			return resultMsg{text: "Nothing to save"}
		}
		return resultMsg{text: "Saved"}
	})
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	run := func(force bool) tea.Cmd {
		return m.do("reload", func() resultMsg {
			if err := m.session.Reload(force); err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{text: "Reloaded " + m.snapshot.Path, clearMarks: true}
		})
	}
	if !m.snapshot.Dirty {
		return m, run(false)
	}
	m.modal = newChoiceModal("Reload", "Discard unsaved changes and reload the file?",
		[]string{"Discard", "Cancel"}, 1,
		func(i int) tea.Cmd {
			if i != 0 {
				return nil
			}
			return run(true)
		})
	return m, nil
}

func (m Model) historyCmd(direction string) tea.Cmd {
	return m.do(direction, func() resultMsg {
		move := m.session.Undo
		if direction == "redo" {
			move = m.session.Redo
		}
		moved, err := move()
		switch {
		case errors.Is(err, errs.ErrUnsavedChanges):
			return resultMsg{err: fmt.Errorf("save or reload before %s: %w", direction, err)}
		case err != nil:
			return resultMsg{err: err}
		case !moved:
			return resultMsg{text: "Nothing to " + direction}
		}
		return resultMsg{text: strings.ToUpper(direction[:1]) + direction[1:] + " done", clearMarks: true}
	})
}

func (m Model) promptAddProfile() (tea.Model, tea.Cmd) {
	m.modal = newInputModal("New profile", "3 to 13 letters, digits or _", "", false, func(nick string) tea.Cmd {
		if nick == "" {
			return nil
		}
		return m.do("add profile", func() resultMsg {
			idx, err := m.session.AddProfile(nick)
			if err != nil {
				return resultMsg{err: err}
			}
			if err := m.session.SelectProfile(idx); err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{text: "Created profile " + nick, clearMarks: true}
		})
	})
	return m, nil
}

func (m Model) promptRenameProfile() (tea.Model, tea.Cmd) {
	if m.snapshot.Active == m.snapshot.DefaultIndex || m.snapshot.Special {
		m.status = status{text: "This profile cannot be renamed", err: true}
		return m, nil
	}
	m.modal = newInputModal("Rename profile", "3 to 13 letters, digits or _", m.activeName(), false, func(nick string) tea.Cmd {
		if nick == "" || nick == m.activeName() {
			return nil
		}
		return m.do("rename profile", func() resultMsg {
			if err := m.session.RenameProfile(nick); err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{text: "Renamed profile to " + nick}
		})
	})
	return m, nil
}

func (m Model) confirmDeleteProfile() (tea.Model, tea.Cmd) {
	if m.snapshot.Active == m.snapshot.DefaultIndex {
		m.status = status{text: "The default profile cannot be deleted", err: true}
		return m, nil
	}
	idx, name := m.snapshot.Active, m.activeName()
	m.modal = newChoiceModal("Delete profile",
		fmt.Sprintf("Delete profile %s and all of its ghosts? This clears undo history.", name),
		[]string{"Delete", "Cancel"}, 1,
		func(i int) tea.Cmd {
			if i != 0 {
				return nil
			}
			return m.do("delete profile", func() resultMsg {
				if err := m.session.DeleteProfile(idx); err != nil {
					return resultMsg{err: err}
				}
				return resultMsg{text: "Deleted profile " + name, clearMarks: true}
			})
		})
	return m, nil
}

func (m Model) promptToken() (tea.Model, tea.Cmd) {
	m.modal = newInputModal("Scoreboard token", "Leave empty to remove the token", "", true, func(token string) tea.Cmd {
		return m.do("token", func() resultMsg {
			if token == "" {
				if err := m.session.ClearToken(); err != nil {
					return resultMsg{err: err}
				}
				return resultMsg{text: "Token removed"}
			}
			if err := m.session.SetToken(token); err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{text: "Token stored"}
		})
	})
	return m, nil
}

func (m Model) toggleFastFollow(force bool) tea.Cmd {
	if !m.canFollow {
		return func() tea.Msg {
			return resultMsg{action: "fast-follow", err: errors.New("fast-follow needs api_url in the config file")}
		}
	}
	f, ctx, p := m.follower, m.ctx, m.prompter
	return func() tea.Msg {
		if f.Active() {
			f.Stop()
			return resultMsg{action: "fast-follow", text: "Fast-follow disarmed"}
		}
		if err := f.Start(ctx, force, p); err != nil {
			return resultMsg{action: "fast-follow", err: err}
		}
		text := "Fast-follow armed"
		if force {
			text += " (force)"
		}
		return resultMsg{action: "fast-follow", text: text}
	}
}

func (m Model) activeName() string {
	if a := m.snapshot.Active; a >= 0 && a < len(m.snapshot.Profiles) {
		return m.snapshot.Profiles[a]
	}
	return ""
}
