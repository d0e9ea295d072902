package protocol

import "fmt"

// Control codes and command letters carried by a notification payload.
const (
	CodeMenuOpened byte = 0x00
	CodeMenuClosed byte = 0x7F

	CommandFocus   byte = 'S' // 0x53
	CommandConfirm byte = 'A' // 0x41
)

// Event is a semantic message decoded from a device notification.
// The concrete types are MenuOpened, MenuClosed, FocusMoved and OptionConfirmed.
type Event interface {
	fmt.Stringer
	isEvent()
}

// MenuOpened means the menu became active and focus was reset.
type MenuOpened struct{}

// MenuClosed means the menu became inactive.
type MenuClosed struct{}

// FocusMoved means attention shifted to a candidate option, not yet confirmed.
type FocusMoved struct {
	OptionID int
}

// OptionConfirmed means the device confirmed the focused option.
type OptionConfirmed struct {
	OptionID int
}

func (MenuOpened) isEvent()      {}
func (MenuClosed) isEvent()      {}
func (FocusMoved) isEvent()      {}
func (OptionConfirmed) isEvent() {}

func (MenuOpened) String() string { return "MenuOpened" }
func (MenuClosed) String() string { return "MenuClosed" }

func (e FocusMoved) String() string {
	return fmt.Sprintf("FocusMoved(%d)", e.OptionID)
}

func (e OptionConfirmed) String() string {
	return fmt.Sprintf("OptionConfirmed(%d)", e.OptionID)
}
