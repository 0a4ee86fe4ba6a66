package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/sporthub/internal/prefs"
	"github.com/five82/sporthub/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewBoard View = iota
	ViewLogs
)

const (
	defaultPollTick = time.Second
	logFetchLimit   = 500
)

// Options configures the UI.
type Options struct {
	Context      context.Context
	Store        *state.Store
	BaseURL      string
	LogPath      string
	Changes      <-chan struct{}
	ThemeName    string
	LastEndpoint string
	PrefsPath    string
	PollTick     time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *state.Store
	baseURL   string
	logPath   string
	changes   <-chan struct{}
	prefsPath string
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time
	selectedRow int
	pending     string // endpoint to select once the first snapshot arrives
	lastAction  error

	detailViewport viewport.Model
	logViewport    viewport.Model
	logLines       []string
	spinner        spinner.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.DefaultTheme()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:         ctx,
		store:       opts.Store,
		baseURL:     opts.BaseURL,
		logPath:     opts.LogPath,
		changes:     opts.Changes,
		prefsPath:   prefsPath,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewBoard,
		pending:     strings.TrimSpace(opts.LastEndpoint),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
		m.selectPending()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
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
		if !m.ready {
			m.detailViewport = viewport.New(0, 0)
			m.logViewport = viewport.New(0, 0)
		}
		m.ready = true
		m.layout()
		m.updateDetailViewport()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case changeMsg:
		cmds := []tea.Cmd{waitForChange(m.changes)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case logLinesMsg:
		m.logLines = msg
		m.updateLogViewport()
		return m, nil

	case actionMsg:
		m.lastAction = msg.err
		if m.store != nil {
			return m, fetchSnapshotCmd(m.store)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.anyLoading() {
			m.updateDetailViewport()
		}
		return m, cmd
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

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	switch m.currentView {
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderBoard())
	}
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveLastEndpoint()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		name := m.theme.Name
		_ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name })
		m.updateDetailViewport()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		m.currentView = ViewLogs
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewBoard
		return m, nil
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleBoardKey(msg)
	}
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs {
		cmds = append(cmds, m.refreshLogs())
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	m.lastUpdated = time.Now()
	m.selectPending()
	m.clampSelection()
	m.updateDetailViewport()
}

// selectPending moves the cursor to the remembered endpoint, if present.
func (m *Model) selectPending() {
	if m.pending == "" || len(m.snapshot.Rows) == 0 {
		return
	}
	for i, r := range m.snapshot.Rows {
		if r.Endpoint.Path == m.pending {
			m.selectedRow = i
			break
		}
	}
	m.pending = ""
}

func (m *Model) clampSelection() {
	n := len(m.snapshot.Rows)
	if m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

func (m Model) selectedPath() string {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Rows) {
		return ""
	}
	return m.snapshot.Rows[m.selectedRow].Endpoint.Path
}

func (m Model) anyLoading() bool {
	for _, r := range m.snapshot.Rows {
		if r.Tested && r.State.IsLoading {
			return true
		}
	}
	return false
}

func (m Model) saveLastEndpoint() {
	path := m.selectedPath()
	if path == "" {
		return
	}
	_ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.LastEndpoint = path })
}

// layout sizes the viewports for the current window.
func (m *Model) layout() {
	contentHeight := max(m.height-2, 3)
	_, detailWidth := m.boardWidths()
	m.detailViewport.Width = max(detailWidth-4, 1)
	m.detailViewport.Height = max(contentHeight-2, 1)
	m.logViewport.Width = max(m.width-4, 1)
	m.logViewport.Height = max(contentHeight-2, 1)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type changeMsg struct{}

type logLinesMsg []string

type actionMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// waitForChange blocks on the cache notification channel. A closed channel
// stops the subscription.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changeMsg{}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	if opts.Store == nil {
		return errors.New("ui requires a data store")
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
