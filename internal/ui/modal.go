package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

const modalWidth = 56

// choiceModal asks a question with a fixed set of answers. Esc picks the
// cancel answer.
type choiceModal struct {
	title    string
	body     string
	choices  []string
	cursor   int
	cancel   int
	onChoose func(int) tea.Cmd
}

func newChoiceModal(title, body string, choices []string, cancel int, onChoose func(int) tea.Cmd) *choiceModal {
	return &choiceModal{
		title:    title,
		body:     body,
		choices:  choices,
		cancel:   cancel,
		onChoose: onChoose,
	}
}

func (c *choiceModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(km, keys.Left):
		c.cursor = (c.cursor + len(c.choices) - 1) % len(c.choices)
	case key.Matches(km, keys.Right):
		c.cursor = (c.cursor + 1) % len(c.choices)
	case key.Matches(km, keys.Confirm):
		return c, c.choose(c.cursor), true
	case key.Matches(km, keys.Escape):
		return c, c.choose(c.cancel), true
	default:
		// First letter of a choice selects it.
		for i, choice := range c.choices {
			if strings.EqualFold(km.String(), choice[:1]) {
				return c, c.choose(i), true
			}
		}
	}
	return c, nil, false
}

func (c *choiceModal) choose(i int) tea.Cmd {
	if c.onChoose == nil {
		return nil
	}
	return c.onChoose(i)
}

func (c *choiceModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(c.title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(c.body))
	b.WriteString("\n\n")

	buttons := make([]string, len(c.choices))
	for i, choice := range c.choices {
		style := styles.MutedText.Padding(0, 1)
		if i == c.cursor {
			style = styles.Selected.Padding(0, 1)
		}
		buttons[i] = style.Render(choice)
	}
	b.WriteString(strings.Join(buttons, " "))
	return placeModal(theme, width, height, b.String())
}

// inputModal reads a single line of text.
type inputModal struct {
	title    string
	hint     string
	input    textinput.Model
	onSubmit func(string) tea.Cmd
}

func newInputModal(title, hint, value string, secret bool, onSubmit func(string) tea.Cmd) *inputModal {
	ti := textinput.New()
	ti.SetValue(value)
	ti.CharLimit = 512
	ti.Width = modalWidth - 8
	if secret {
		ti.EchoMode = textinput.EchoPassword
	}
	ti.Focus()
	return &inputModal{title: title, hint: hint, input: ti, onSubmit: onSubmit}
}

func (in *inputModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Confirm):
			return in, in.onSubmit(strings.TrimSpace(in.input.Value())), true
		case key.Matches(km, keys.Escape):
			return in, nil, true
		}
	}
	var cmd tea.Cmd
	in.input, cmd = in.input.Update(msg)
	return in, cmd, false
}

func (in *inputModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(in.title))
	b.WriteString("\n\n")
	b.WriteString(in.input.View())
	if in.hint != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.FaintText.Render(in.hint))
	}
	return placeModal(theme, width, height, b.String())
}

// newPromptModal shows a fast-follow question and sends the answer back to
// the waiting cycle.
func newPromptModal(req promptRequest) Modal {
	return newChoiceModal(req.title, req.body, req.choices, req.cancel, func(i int) tea.Cmd {
		req.reply <- i
		return nil
	})
}

func placeModal(theme Theme, width, height int, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(modalWidth).
		Render(content)
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
