package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/keewee/gamepadctl/internal/logging"
	"github.com/keewee/gamepadctl/internal/session"
)

// Default timer periods
const (
	DefaultRefreshInterval = 10 * time.Second
	DefaultTickInterval    = time.Second
)

// Section identifies one of the two device lists
type Section int

const (
	SectionConnected Section = iota
	SectionPaired
)

// Options configures the dashboard.
type Options struct {
	RefreshInterval time.Duration
	TickInterval    time.Duration
	// ReconnectWindow is the countdown shown for a reconnection, in ticks.
	ReconnectWindow int
	// DiscoveryTimeout is passed to the reconnection workflow. Zero keeps
	// its default.
	DiscoveryTimeout time.Duration
}

// AppModel is the dashboard model. It owns the session state.
type AppModel struct {
	State *session.State

	// Navigation
	Section Section
	Cursor  int

	// ConfirmingRemove holds the address awaiting removal confirmation
	ConfirmingRemove string

	// Notice is a transient success message, replaced by the next action
	Notice string

	Loading  bool
	ShowHelp bool

	Width  int
	Height int

	RenameInput textinput.Model
	Spinner     spinner.Model
	Help        help.Model
	Keys        keyMap
	EditKeys    editKeyMap
	ConfirmKeys confirmKeyMap

	ctx      context.Context
	service  Service
	opts     Options
	schedule scheduler
}

// NewAppModel creates the dashboard. ctx bounds every operation it starts.
func NewAppModel(ctx context.Context, svc Service, opts Options) AppModel {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "New name"
	input.CharLimit = 248 // Longest alias the daemon accepts
	input.Width = 32

	return AppModel{
		State:       session.New(opts.ReconnectWindow),
		Section:     SectionConnected,
		Loading:     true, // Init starts the first load
		RenameInput: input,
		Spinner:     s,
		Help:        help.New(),
		Keys:        newKeyMap(),
		EditKeys:    newEditKeyMap(),
		ConfirmKeys: newConfirmKeyMap(),
		ctx:         ctx,
		service:     svc,
		opts:        opts,
		schedule:    tick,
	}
}

// Init starts the initial load and both timers
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		loadDevicesCmd(m.ctx, m.service),
		m.schedule(m.opts.RefreshInterval, refreshMsg{}),
		m.schedule(m.opts.TickInterval, tickMsg{}),
	)
}

func (m *AppModel) load() tea.Cmd {
	m.Loading = true
	return loadDevicesCmd(m.ctx, m.service)
}

// Update handles messages and updates the model
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		return m, nil

	case refreshMsg:
		next := m.schedule(m.opts.RefreshInterval, refreshMsg{})
		if !m.State.ShouldRefresh() || m.Loading {
			return m, next
		}
		load := m.load()
		return m, tea.Batch(load, next)

	case tickMsg:
		next := m.schedule(m.opts.TickInterval, tickMsg{})
		for _, addr := range m.State.Tick() {
			logging.Info("Reconnect countdown expired", zap.String("address", addr))
		}
		return m, next

	case dataLoadedMsg:
		m.Loading = false
		if msg.err != nil {
			logging.Warn("Failed to load devices", zap.Error(msg.err))
			m.State.SetError(msg.err)
			return m, nil
		}
		m.State.ApplySnapshot(msg.snapshot)
		m.clampCursor()
		return m, nil

	case disconnectResultMsg:
		return m.afterOperation(msg.err, "Disconnected "+msg.addr)

	case renameResultMsg:
		return m.afterOperation(msg.err, "Renamed "+msg.addr+" to "+msg.name)

	case removeResultMsg:
		return m.afterOperation(msg.err, "Removed "+msg.addr)

	case reconnectResultMsg:
		return m.handleReconnectResult(msg)

	case spinner.TickMsg:
		if len(m.State.Attempts()) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if _, ok := m.State.Renaming(); ok {
			return m.updateRenameEditor(msg)
		}
		if m.ConfirmingRemove != "" {
			return m.updateRemovePrompt(msg)
		}
		return m.updateNormalMode(msg)
	}

	return m, nil
}

// afterOperation reloads the lists after a successful control operation
// and records the error otherwise.
func (m AppModel) afterOperation(err error, notice string) (tea.Model, tea.Cmd) {
	if err != nil {
		m.State.SetError(err)
		m.Notice = ""
		return m, nil
	}
	m.Notice = notice
	load := m.load()
	return m, load
}

func (m AppModel) handleReconnectResult(msg reconnectResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		// The countdown keeps running until it expires on its own
		m.State.FailReconnect(msg.attempt.Address, msg.err)
		m.Notice = ""
		return m, nil
	}

	// A late result from a replaced attempt must not end the newer one
	m.State.CompleteReconnect(msg.attempt.Address, msg.attempt.ID)
	m.Notice = "Reconnected " + msg.attempt.Name
	if msg.result != nil && msg.result.RenameWarning != nil {
		m.Notice += " (name not restored: " + msg.result.RenameWarning.Error() + ")"
	}
	load := m.load()
	return m, load
}

// updateNormalMode handles keys while browsing the lists
func (m AppModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		m.ShowHelp = !m.ShowHelp
		m.Help.ShowAll = m.ShowHelp
		return m, nil

	case key.Matches(msg, m.Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil

	case key.Matches(msg, m.Keys.Down):
		if m.Cursor < m.rowCount()-1 {
			m.Cursor++
		}
		return m, nil

	case key.Matches(msg, m.Keys.Tab):
		if m.Section == SectionConnected {
			m.Section = SectionPaired
		} else {
			m.Section = SectionConnected
		}
		m.Cursor = 0
		return m, nil

	case key.Matches(msg, m.Keys.Refresh):
		if m.Loading {
			return m, nil
		}
		load := m.load()
		return m, load

	case key.Matches(msg, m.Keys.Disconnect):
		dev, ok := m.selectedConnected()
		if !ok {
			return m, nil
		}
		m.Notice = ""
		return m, disconnectCmd(m.ctx, m.service, dev.Address)
	}

	// The remaining actions act on an idle paired row
	dev, ok := m.selectedPaired()
	if !ok || m.State.IsReconnecting(dev.Address) {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.Keys.Rename):
		m.State.StartRename(dev.Address, dev.Name)
		m.RenameInput.SetValue(dev.Name)
		m.RenameInput.CursorEnd()
		focus := m.RenameInput.Focus()
		return m, focus

	case key.Matches(msg, m.Keys.Remove):
		m.ConfirmingRemove = dev.Address
		return m, nil

	case key.Matches(msg, m.Keys.Reconnect):
		attempt := m.State.BeginReconnect(dev.Address)
		m.Notice = ""
		logging.Info("Reconnect requested",
			zap.String("attempt_id", attempt.ID),
			zap.String("address", attempt.Address),
			zap.String("name", attempt.Name),
		)
		return m, tea.Batch(
			reconnectCmd(m.ctx, m.service, attempt, m.opts.DiscoveryTimeout),
			m.Spinner.Tick,
		)
	}

	return m, nil
}

// updateRenameEditor handles keys while the rename input has focus
func (m AppModel) updateRenameEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.EditKeys.Cancel):
		m.State.CancelRename()
		m.RenameInput.Blur()
		return m, nil

	case key.Matches(msg, m.EditKeys.Save):
		addr, name, err := m.State.SubmitRename()
		if err != nil {
			// Editor stays open with the error shown
			return m, nil
		}
		m.RenameInput.Blur()
		m.Notice = ""
		return m, renameCmd(m.ctx, m.service, addr, name)
	}

	var cmd tea.Cmd
	m.RenameInput, cmd = m.RenameInput.Update(msg)
	m.State.UpdateRename(m.RenameInput.Value())
	return m, cmd
}

// updateRemovePrompt handles the y/n answer to a removal prompt
func (m AppModel) updateRemovePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	addr := m.ConfirmingRemove
	switch {
	case key.Matches(msg, m.ConfirmKeys.Yes):
		m.ConfirmingRemove = ""
		m.Notice = ""
		return m, removeCmd(m.ctx, m.service, addr)
	case key.Matches(msg, m.ConfirmKeys.No):
		m.ConfirmingRemove = ""
	}
	return m, nil
}

func (m AppModel) rowCount() int {
	if m.Section == SectionConnected {
		return len(m.State.Connected)
	}
	return len(m.State.Paired)
}

func (m *AppModel) clampCursor() {
	if n := m.rowCount(); m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func (m AppModel) selectedConnected() (session.ConnectedDevice, bool) {
	if m.Section != SectionConnected || m.Cursor >= len(m.State.Connected) {
		return session.ConnectedDevice{}, false
	}
	return m.State.Connected[m.Cursor], true
}

func (m AppModel) selectedPaired() (session.PairedDevice, bool) {
	if m.Section != SectionPaired || m.Cursor >= len(m.State.Paired) {
		return session.PairedDevice{}, false
	}
	return m.State.Paired[m.Cursor], true
}

// Run starts the dashboard on the terminal and blocks until it exits.
func Run(ctx context.Context, svc Service, opts Options) error {
	p := tea.NewProgram(NewAppModel(ctx, svc, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
