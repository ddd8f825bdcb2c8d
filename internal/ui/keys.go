package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	ToggleLogs key.Binding
	Escape     key.Binding

	// Navigation
	Up          key.Binding
	Down        key.Binding
	Top         key.Binding
	Bottom      key.Binding
	PrevProfile key.Binding
	NextProfile key.Binding

	// Ghost actions
	Mark   key.Binding
	Delete key.Binding
	Import key.Binding
	Export key.Binding
	Resort key.Binding

	// File and history
	Save   key.Binding
	Reload key.Binding
	Undo   key.Binding
	Redo   key.Binding

	// Profiles
	AddProfile    key.Binding
	RenameProfile key.Binding
	DeleteProfile key.Binding
	Token         key.Binding

	// Fast-follow
	FastFollow      key.Binding
	FastFollowForce key.Binding

	// Logs
	ToggleFollow key.Binding
	CycleLevel   key.Binding

	// Modal navigation
	Left    key.Binding
	Right   key.Binding
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		ToggleLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Ghosts/logs"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PrevProfile: key.NewBinding(
			key.WithKeys("[", "shift+tab"),
			key.WithHelp("[", "Previous profile"),
		),
		NextProfile: key.NewBinding(
			key.WithKeys("]", "tab"),
			key.WithHelp("]", "Next profile"),
		),

		Mark: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Mark ghost"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "Delete ghosts"),
		),
		Import: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "Import ghosts"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Export ghosts"),
		),
		Resort: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Resort profile"),
		),

		Save: key.NewBinding(
			key.WithKeys("s", "ctrl+s"),
			key.WithHelp("s", "Save"),
		),
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reload file"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u", "ctrl+z"),
			key.WithHelp("u", "Undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("r", "ctrl+y"),
			key.WithHelp("r", "Redo"),
		),

		AddProfile: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New profile"),
		),
		RenameProfile: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "Rename profile"),
		),
		DeleteProfile: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Delete profile"),
		),
		Token: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Set token"),
		),

		FastFollow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Toggle fast-follow"),
		),
		FastFollowForce: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Fast-follow (force)"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Cycle log level"),
		),

		Left: key.NewBinding(
			key.WithKeys("left", "shift+tab"),
			key.WithHelp("left", "Previous choice"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "tab"),
			key.WithHelp("right", "Next choice"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.FastFollow, k.Import, k.Undo, k.Redo, k.ToggleLogs, k.Help, k.Quit}
}

// FullHelp returns key bindings grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.PrevProfile, k.NextProfile},
		{k.Mark, k.Delete, k.Import, k.Export, k.Resort},
		{k.Save, k.Reload, k.Undo, k.Redo},
		{k.AddProfile, k.RenameProfile, k.DeleteProfile, k.Token},
		{k.FastFollow, k.FastFollowForce},
		{k.ToggleLogs, k.ToggleFollow, k.CycleLevel},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
