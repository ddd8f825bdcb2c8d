package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/ghostkeeper/internal/fastfollow"
	"github.com/five82/ghostkeeper/internal/ghost"
	"github.com/five82/ghostkeeper/internal/logger"
	"github.com/five82/ghostkeeper/internal/prefs"
	"github.com/five82/ghostkeeper/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewGhosts View = iota
	ViewLogs
)

// Follower arms and disarms fast-follow.
type Follower interface {
	Start(ctx context.Context, force bool, prompter fastfollow.Prompter) error
	Stop()
	Active() bool
}

// CycleResult is a finished fast-follow cycle.
type CycleResult struct {
	Report fastfollow.Report
	Err    error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Session   *state.Session
	Follower  Follower
	CanFollow bool // false when no scoreboard is configured
	Force     bool
	Reports   <-chan CycleResult
	LogPath   string
	PollTick  time.Duration
	ThemeName string
	Prefs     *prefs.Store
	Logger    *slog.Logger
}

type status struct {
	text string
	err  bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	session   *state.Session
	follower  Follower
	canFollow bool
	force     bool
	prompter  *Prompter
	reports   <-chan CycleResult
	prefs     *prefs.Store
	logPath   string
	pollTick  time.Duration
	log       *slog.Logger

	keys        keyMap
	help        help.Model
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	snapshot    state.Snapshot
	selectedRow int
	offset      int
	marked      map[int]bool
	status      status
	lastCycle   string

	modal   Modal
	pending []promptRequest

	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}
	p := opts.Prefs
	if p == nil {
		p = prefs.Memory()
	}

	m := Model{
		ctx:         ctx,
		session:     opts.Session,
		follower:    opts.Follower,
		canFollow:   opts.CanFollow && opts.Follower != nil,
		force:       opts.Force,
		prompter:    NewPrompter(catalogOf(opts.Session)),
		reports:     opts.Reports,
		prefs:       p,
		logPath:     opts.LogPath,
		pollTick:    pollTick,
		log:         logger.OrDiscard(opts.Logger).With("component", "ui"),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		theme:       GetTheme(opts.ThemeName),
		currentView: ViewGhosts,
		marked:      make(map[int]bool),
		logState:    logState{follow: true},
	}
	if opts.Session != nil {
		m.snapshot = opts.Session.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		waitPromptCmd(m.prompter),
	}
	if m.session != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.session))
	}
	if m.reports != nil {
		cmds = append(cmds, waitReportCmd(m.reports))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.bodyHeight())
		}
		m.ready = true
		m.resizeLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case resultMsg:
		m.applyResult(msg)
		return m, fetchSnapshotCmd(m.session)

	case promptMsg:
		m.pending = append(m.pending, promptRequest(msg))
		m.nextPrompt()
		return m, waitPromptCmd(m.prompter)

	case cycleMsg:
		m.lastCycle = summarizeCycle(CycleResult(msg))
		return m, tea.Batch(fetchSnapshotCmd(m.session), waitReportCmd(m.reports))

	case importConflictMsg:
		m.modal = m.importConflictModal(msg)
		return m, nil

	case resortConfirmMsg:
		m.modal = m.resortConfirmModal()
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil
	}

	if m.modal != nil {
		return m.updateModal(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		return m.updateModal(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if err := m.prefs.SetTheme(m.theme.Name); err != nil {
			m.log.Warn("save theme failed", "error", err)
		}
		return m, nil
	case key.Matches(msg, m.keys.ToggleLogs):
		if m.currentView == ViewLogs {
			m.currentView = ViewGhosts
			return m, nil
		}
		m.currentView = ViewLogs
		return m, m.refreshLogs()
	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewGhosts
		return m, nil
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleGhostsKey(msg)
	}
}

func (m Model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd, closed := m.modal.Update(msg, m.keys)
	if closed {
		m.modal = nil
		m.nextPrompt()
	} else {
		m.modal = next
	}
	return m, cmd
}

// nextPrompt shows the oldest queued fast-follow question once no other
// modal is open.
func (m *Model) nextPrompt() {
	if m.modal != nil || len(m.pending) == 0 {
		return
	}
	req := m.pending[0]
	m.pending = m.pending[1:]
	m.modal = newPromptModal(req)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.snapshot.Dirty {
		m.modal = newChoiceModal("Unsaved changes",
			"The profiles file has changes that are not saved. Quit anyway?",
			[]string{"Quit", "Cancel"}, 1,
			func(i int) tea.Cmd {
				if i == 0 {
					return tea.Quit
				}
				return nil
			})
		return m, nil
	}
	return m, tea.Quit
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.session != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.session))
	}
	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	prev := m.snapshot
	m.snapshot = snap
	if prev.Active != snap.Active || len(prev.Ghosts) != len(snap.Ghosts) {
		m.marked = make(map[int]bool)
	}
	m.clampSelection()
}

func (m *Model) applyResult(msg resultMsg) {
	switch {
	case msg.err != nil:
		m.status = status{text: msg.err.Error(), err: true}
		m.log.Warn("action failed", "action", msg.action, "error", msg.err)
	case msg.text != "":
		m.status = status{text: msg.text}
	}
	if len(msg.highlight) > 0 {
		m.selectedRow = msg.highlight[0]
	}
	if msg.clearMarks {
		m.marked = make(map[int]bool)
	}
}

func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	switch m.currentView {
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderGhosts())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

// bodyHeight is the space left between the header and the footer.
func (m Model) bodyHeight() int {
	h := m.height - headerLines - footerLines
	if h < 1 {
		return 1
	}
	return h
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type promptMsg promptRequest

type cycleMsg CycleResult

type resultMsg struct {
	action     string
	text       string
	err        error
	highlight  []int
	clearMarks bool
}

type importConflictMsg struct {
	batch []*ghost.Record
}

type resortConfirmMsg struct{}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(s *state.Session) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(s.Snapshot())
	}
}

func waitPromptCmd(p *Prompter) tea.Cmd {
	return func() tea.Msg {
		return promptMsg(<-p.requests)
	}
}

func waitReportCmd(ch <-chan CycleResult) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return cycleMsg(res)
	}
}

// Run starts the Bubble Tea program and disarms fast-follow on exit.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if opts.Follower != nil {
		opts.Follower.Stop()
	}
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
