package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vitaminmoo/neuromenu/internal/catalog"
	"github.com/vitaminmoo/neuromenu/internal/history"
	"github.com/vitaminmoo/neuromenu/internal/menu"
	"github.com/vitaminmoo/neuromenu/internal/session"
)

const (
	optionsPerRow = 3
	logLines      = 8
)

// Session is the part of the connection controller the UI drives.
type Session interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	ManualSelect(ctx context.Context, optionID int) error
}

// Model is the main Bubbletea model for the TUI.
type Model struct {
	ctx     context.Context
	session Session
	catalog *catalog.Catalog
	options []catalog.Option

	// State
	state         menu.State
	cursor        int
	countdown     Countdown
	ticking       bool
	connecting    bool
	disconnecting bool
	autoConnect   bool
	errorMsg      string
	speechStatus  string
	width         int
	height        int

	// Log pane
	logs    []history.Entry
	maxLogs int

	// Components
	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	styles  Styles

	now func() time.Time
}

// Option configures a Model.
type Option func(*Model)

// WithAutoConnect starts connecting as soon as the UI is up.
func WithAutoConnect() Option {
	return func(m *Model) { m.autoConnect = true }
}

// WithSpeechStatus shows a line describing the speech engine.
func WithSpeechStatus(s string) Option {
	return func(m *Model) { m.speechStatus = s }
}

// WithLogSize caps the entries kept for the log pane.
func WithLogSize(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.maxLogs = n
		}
	}
}

// --- Messages delivered by the Bridge and by commands ---

// stateMsg carries a new menu snapshot.
type stateMsg menu.State

// highlightMsg marks an option as just confirmed.
type highlightMsg struct {
	optionID int
	d        time.Duration
}

// logMsg carries one log entry.
type logMsg history.Entry

// connectDoneMsg reports the result of a connect attempt.
type connectDoneMsg struct{ err error }

// disconnectDoneMsg reports the result of a disconnect.
type disconnectDoneMsg struct{ err error }

// selectDoneMsg reports the result of a manual selection.
type selectDoneMsg struct{ err error }

// NewModel creates a new TUI model.
func NewModel(ctx context.Context, s Session, c *catalog.Catalog, opts ...Option) Model {
	if c == nil {
		c = catalog.Default()
	}
	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	m := Model{
		ctx:       ctx,
		session:   s,
		catalog:   c,
		options:   c.Options(),
		countdown: NewCountdown(),
		maxLogs:   history.DefaultSize,
		keys:      DefaultKeyMap(),
		help:      h,
		spinner:   sp,
		styles:    DefaultStyles(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	if m.autoConnect {
		return tea.Batch(m.spinner.Tick, func() tea.Msg { return connectRequestMsg{} })
	}
	return m.spinner.Tick
}

// connectRequestMsg asks the model to start connecting.
type connectRequestMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case connectRequestMsg:
		return m.startConnect()

	case stateMsg:
		m.state = menu.State(msg)
		if m.state.MenuActive && m.state.Selection != menu.NoSelection {
			if i := m.indexOf(m.state.Selection); i >= 0 {
				m.cursor = i
			}
		}
		if m.state.Connected {
			m.errorMsg = ""
		}
		return m, nil

	case highlightMsg:
		m.countdown.Start(msg.optionID, m.catalog.LabelFor(msg.optionID), msg.d, m.now())
		if m.ticking {
			return m, nil
		}
		m.ticking = true
		return m, countdownTickCmd()

	case countdownTickMsg:
		if m.countdown.Expire(time.Time(msg)) {
			return m, countdownTickCmd()
		}
		m.ticking = false
		return m, nil

	case logMsg:
		m.logs = append(m.logs, history.Entry(msg))
		if over := len(m.logs) - m.maxLogs; over > 0 {
			m.logs = append([]history.Entry(nil), m.logs[over:]...)
		}
		return m, nil

	case connectDoneMsg:
		m.connecting = false
		if msg.err != nil && !errors.Is(msg.err, session.ErrAlreadyConnected) {
			m.errorMsg = shortFailure(msg.err)
		}
		return m, nil

	case disconnectDoneMsg:
		m.disconnecting = false
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Disconnect failed: %v", msg.err)
		}
		return m, nil

	case selectDoneMsg:
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Selection failed: %v", msg.err)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.cursor--
		if m.cursor < 0 {
			m.cursor = len(m.options) - 1
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.cursor++
		if m.cursor >= len(m.options) {
			m.cursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if len(m.options) == 0 {
			return m, nil
		}
		return m.selectOption(m.options[m.cursor].ID)

	case key.Matches(msg, m.keys.Pick):
		id := int(msg.Runes[0] - '0')
		i := m.indexOf(id)
		if i < 0 {
			return m, nil
		}
		m.cursor = i
		return m.selectOption(id)

	case key.Matches(msg, m.keys.Connect):
		// Pressed while connecting, it aborts the attempt.
		if m.state.Connected || m.connecting {
			return m.startDisconnect()
		}
		return m.startConnect()

	case key.Matches(msg, m.keys.Clear):
		m.logs = nil
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	return m, nil
}

// selectable reports whether option buttons accept input.
func (m Model) selectable() bool {
	return m.state.Connected && m.state.MenuActive
}

func (m Model) selectOption(id int) (tea.Model, tea.Cmd) {
	if !m.selectable() {
		return m, nil
	}
	s, ctx := m.session, m.ctx
	return m, func() tea.Msg {
		return selectDoneMsg{err: s.ManualSelect(ctx, id)}
	}
}

func (m Model) startConnect() (tea.Model, tea.Cmd) {
	if m.connecting || m.disconnecting || m.state.Connected {
		return m, nil
	}
	m.connecting = true
	m.errorMsg = ""
	s, ctx := m.session, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return connectDoneMsg{err: s.Connect(ctx)}
	})
}

func (m Model) startDisconnect() (tea.Model, tea.Cmd) {
	if m.disconnecting {
		return m, nil
	}
	m.disconnecting = true
	m.countdown.Cancel()
	s, ctx := m.session, m.ctx
	return m, func() tea.Msg {
		return disconnectDoneMsg{err: s.Disconnect(ctx)}
	}
}

func (m Model) indexOf(id int) int {
	for i, o := range m.options {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func shortFailure(err error) string {
	switch {
	case errors.Is(err, session.ErrTransportUnavailable):
		return "Bluetooth unavailable"
	case errors.Is(err, session.ErrUnsupported):
		return "Device has no notify characteristic"
	case errors.Is(err, context.Canceled):
		return "Connect cancelled"
	case errors.Is(err, session.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Connection timed out"
	case errors.Is(err, session.ErrNotFound):
		return "Device not found"
	}
	return "Connect failed"
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTitleBar("Neuro Menu"))
	b.WriteString("\n")
	if m.speechStatus != "" {
		b.WriteString(m.styles.Subtitle.Render(m.speechStatus))
		b.WriteString("\n")
	}

	if m.errorMsg != "" {
		b.WriteString(m.styles.Error.Render(m.errorMsg))
		b.WriteString("  ")
		connectKey := m.keys.Connect.Help().Key
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("['%s' to retry]", connectKey)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.styles.StatusKey.Render("Menu:"))
	b.WriteString(m.renderMenuStatus())
	b.WriteString("\n")
	b.WriteString(m.renderOptions())
	b.WriteString("\n")

	if cd := m.countdown.View(m.now()); cd != "" {
		b.WriteString(cd)
		b.WriteString("\n")
	}

	b.WriteString(m.renderLog())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	helpView := m.styles.Help.Render(m.help.View(m.keys))
	return m.styles.App.Render(b.String() + "\n" + helpView)
}

// renderTitleBar renders a consistent title bar with connection status.
func (m Model) renderTitleBar(title string) string {
	parts := []string{m.styles.Title.Render(title)}

	switch {
	case m.connecting:
		parts = append(parts, m.spinner.View()+" "+m.styles.Warning.Render("Connecting..."))
	case m.disconnecting:
		parts = append(parts, m.spinner.View()+" "+m.styles.Warning.Render("Disconnecting..."))
	case m.state.Connected:
		parts = append(parts, m.styles.StatusOnline.Render("● Connected"))
	default:
		parts = append(parts, m.styles.StatusOffline.Render("○ Disconnected"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderMenuStatus() string {
	text := m.state.StatusText()
	if m.state.MenuActive {
		return m.styles.Success.Render(text)
	}
	return m.styles.Muted.Render(text)
}

func (m Model) renderOptions() string {
	var rows []string
	var row []string
	for i, o := range m.options {
		row = append(row, m.optionStyle(i, o.ID).Render(fmt.Sprintf("%d  %s", o.ID, o.Label)))
		if len(row) == optionsPerRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) optionStyle(i, id int) lipgloss.Style {
	switch {
	case m.countdown.Active(id):
		return m.styles.OptionChosen
	case !m.selectable():
		return m.styles.OptionDisabled
	case m.state.Selection == id:
		return m.styles.OptionFocused
	case i == m.cursor:
		return m.styles.OptionCursor
	}
	return m.styles.Option
}

func (m Model) renderLog() string {
	n := logLines
	if m.height > 0 {
		// Leave room for the title, options and help.
		n = max(3, m.height-(len(m.options)/optionsPerRow+1)*3-14)
	}
	start := max(0, len(m.logs)-n)

	var lines []string
	for _, e := range m.logs[start:] {
		lines = append(lines, m.styles.LogTime.Render(e.Time.Format("15:04:05"))+m.severityStyle(e.Severity).Render(e.Message))
	}
	if len(lines) == 0 {
		lines = append(lines, m.styles.Muted.Render("No activity yet"))
	}
	return m.styles.Log.Render(strings.Join(lines, "\n"))
}

func (m Model) severityStyle(s menu.Severity) lipgloss.Style {
	switch s {
	case menu.SeveritySuccess:
		return m.styles.Success
	case menu.SeverityWarning:
		return m.styles.Warning
	case menu.SeverityError:
		return m.styles.Error
	}
	return lipgloss.NewStyle()
}

func (m Model) renderStatusBar() string {
	parts := []string{
		m.styles.StatusKey.Render("State"),
		m.styles.StatusValue.Render(m.state.String()),
		m.styles.StatusKey.Render("Focus"),
		m.styles.StatusValue.Render(m.focusLabel()),
	}
	return m.styles.StatusBar.Render(strings.Join(parts, ""))
}

func (m Model) focusLabel() string {
	if !m.state.MenuActive || m.state.Selection == menu.NoSelection {
		return "-"
	}
	return m.catalog.LabelFor(m.state.Selection)
}
