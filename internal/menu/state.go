package menu

import "fmt"

// Phase is the coarse state of the machine derived from State.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseIdle
	PhaseMenuOpenNoFocus
	PhaseMenuOpenFocused
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "Disconnected"
	case PhaseIdle:
		return "Connected-Idle"
	case PhaseMenuOpenNoFocus:
		return "Connected-MenuOpen-NoFocus"
	case PhaseMenuOpenFocused:
		return "Connected-MenuOpen-Focused"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// NoSelection is the Selection value when nothing is focused.
const NoSelection = 0

// State is the connection/menu/selection triple.
//
// Invariants:
//   - !MenuActive implies Selection == NoSelection
//   - !Connected implies !MenuActive
type State struct {
	Connected  bool
	MenuActive bool
	Selection  int
}

// Phase derives the machine phase from the state.
func (s State) Phase() Phase {
	switch {
	case !s.Connected:
		return PhaseDisconnected
	case !s.MenuActive:
		return PhaseIdle
	case s.Selection == NoSelection:
		return PhaseMenuOpenNoFocus
	default:
		return PhaseMenuOpenFocused
	}
}

// Valid reports whether the state satisfies the invariants.
func (s State) Valid() bool {
	if !s.MenuActive && s.Selection != NoSelection {
		return false
	}
	if !s.Connected && s.MenuActive {
		return false
	}
	return true
}

// StatusText is the human-readable menu status shown next to the options.
func (s State) StatusText() string {
	if !s.MenuActive {
		return "Inactive"
	}
	if s.Selection == NoSelection {
		return "Active (Waiting for selection)"
	}
	return fmt.Sprintf("Active (Selection: %d)", s.Selection)
}

func (s State) String() string {
	if s.Phase() == PhaseMenuOpenFocused {
		return fmt.Sprintf("%s(%d)", s.Phase(), s.Selection)
	}
	return s.Phase().String()
}
