package menu

import (
	"time"

	"github.com/vitaminmoo/neuromenu/internal/catalog"
	"github.com/vitaminmoo/neuromenu/internal/protocol"
)

// DefaultHighlight is how long a confirmed option stays highlighted.
const DefaultHighlight = 3 * time.Second

// Announcement texts.
const (
	TextMenuActivated   = "Menu activated. Please focus on an option."
	TextMenuDeactivated = "Menu deactivated"
)

// Log messages.
const (
	MsgDisconnected      = "disconnected"
	MsgMenuActivated     = "menu activated"
	MsgMenuDeactivated   = "menu deactivated"
	MsgIgnoredNotConn    = "event ignored: not connected"
	MsgIgnoredInactive   = "event ignored: menu inactive"
	MsgSelectionRejected = "selection rejected: menu inactive or disconnected"
	msgFocusPrefix       = "focus -> "
	msgSelectedPrefix    = "selected -> "
	msgMalformedPrefix   = "malformed notification: "
)

// Machine owns the menu State and computes the Effects of each input.
// It is not safe for concurrent use; callers serialize access (see session.Controller).
type Machine struct {
	catalog   *catalog.Catalog
	highlight time.Duration
	state     State
}

// Option configures a Machine.
type Option func(*Machine)

// WithHighlight sets the duration carried by HighlightOption effects.
func WithHighlight(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.highlight = d
		}
	}
}

// NewMachine returns a machine in the Disconnected state.
func NewMachine(c *catalog.Catalog, opts ...Option) *Machine {
	if c == nil {
		c = catalog.Default()
	}
	m := &Machine{
		catalog:   c,
		highlight: DefaultHighlight,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	return m.state
}

// Catalog returns the catalog used for label resolution.
func (m *Machine) Catalog() *catalog.Catalog {
	return m.catalog
}

// Connect moves any state to Connected-Idle.
func (m *Machine) Connect() []Effect {
	m.state = State{Connected: true}
	return []Effect{m.refresh()}
}

// Disconnect moves any state to Disconnected. Calling it repeatedly is safe
// and yields the same effects each time.
func (m *Machine) Disconnect() []Effect {
	m.state = State{}
	return []Effect{
		LogEntry{Message: MsgDisconnected, Severity: SeverityInfo},
		m.refresh(),
	}
}

// Handle applies a decoded device event.
func (m *Machine) Handle(ev protocol.Event) []Effect {
	if !m.state.Connected {
		return []Effect{LogEntry{Message: MsgIgnoredNotConn, Severity: SeverityWarning}}
	}

	switch e := ev.(type) {
	case protocol.MenuOpened:
		m.state.MenuActive = true
		m.state.Selection = NoSelection
		return []Effect{
			LogEntry{Message: MsgMenuActivated, Severity: SeveritySuccess},
			Announce{Text: TextMenuActivated},
			m.refresh(),
		}

	case protocol.MenuClosed:
		// Closing an already inactive menu repeats the announcement.
		m.state.MenuActive = false
		m.state.Selection = NoSelection
		return []Effect{
			LogEntry{Message: MsgMenuDeactivated, Severity: SeverityInfo},
			Announce{Text: TextMenuDeactivated},
			m.refresh(),
		}

	case protocol.FocusMoved:
		if !m.state.MenuActive {
			return []Effect{LogEntry{Message: MsgIgnoredInactive, Severity: SeverityWarning}}
		}
		m.state.Selection = e.OptionID
		label := m.catalog.LabelFor(e.OptionID)
		return []Effect{
			LogEntry{Message: msgFocusPrefix + label, Severity: SeverityInfo},
			Announce{Text: label},
			m.refresh(),
		}

	case protocol.OptionConfirmed:
		if !m.state.MenuActive {
			return []Effect{LogEntry{Message: MsgIgnoredInactive, Severity: SeverityWarning}}
		}
		return m.confirm(e.OptionID)
	}

	return nil
}

// ManualSelect confirms id on behalf of a caregiver. It is rejected unless
// connected with the menu active.
func (m *Machine) ManualSelect(id int) []Effect {
	if !m.state.Connected || !m.state.MenuActive {
		return []Effect{LogEntry{Message: MsgSelectionRejected, Severity: SeverityWarning}}
	}
	return m.confirm(id)
}

// DecodeFailed reports a malformed notification. The state is not touched.
func (m *Machine) DecodeFailed(err error) []Effect {
	return []Effect{LogEntry{Message: msgMalformedPrefix + err.Error(), Severity: SeverityError}}
}

// confirm does not close the menu or move focus.
func (m *Machine) confirm(id int) []Effect {
	label := m.catalog.LabelFor(id)
	return []Effect{
		LogEntry{Message: msgSelectedPrefix + label, Severity: SeveritySuccess},
		Announce{Text: label},
		HighlightOption{OptionID: id, Duration: m.highlight},
	}
}

func (m *Machine) refresh() Effect {
	return RefreshPresentation{Snapshot: m.state}
}
