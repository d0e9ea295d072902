package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all the lipgloss styles for the TUI.
type Styles struct {
	// App
	App lipgloss.Style

	// Title
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	// Options
	Option         lipgloss.Style
	OptionCursor   lipgloss.Style
	OptionFocused  lipgloss.Style
	OptionChosen   lipgloss.Style
	OptionDisabled lipgloss.Style

	// Status bar
	StatusBar     lipgloss.Style
	StatusKey     lipgloss.Style
	StatusValue   lipgloss.Style
	StatusOnline  lipgloss.Style
	StatusOffline lipgloss.Style

	// Log pane
	Log     lipgloss.Style
	LogTime lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	// Help
	Help lipgloss.Style
}

// DefaultStyles returns the default color scheme.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special := lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	dim := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	text := lipgloss.AdaptiveColor{Light: "#343433", Dark: "#C1C6B2"}

	return Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(highlight).
			Padding(0, 1),

		Subtitle: lipgloss.NewStyle().
			Foreground(dim),

		Option: lipgloss.NewStyle().
			Foreground(text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Width(18).
			Align(lipgloss.Center),

		OptionCursor: lipgloss.NewStyle().
			Foreground(text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Width(18).
			Align(lipgloss.Center),

		OptionFocused: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(highlight).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Width(18).
			Align(lipgloss.Center),

		OptionChosen: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(special).
			Border(lipgloss.ThickBorder()).
			BorderForeground(special).
			Width(18).
			Align(lipgloss.Center),

		OptionDisabled: lipgloss.NewStyle().
			Foreground(dim).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Width(18).
			Align(lipgloss.Center),

		StatusBar: lipgloss.NewStyle().
			Foreground(text).
			Background(subtle).
			Padding(0, 1).
			MarginTop(1),

		StatusKey: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}).
			MarginRight(1),

		StatusValue: lipgloss.NewStyle().
			Foreground(text).
			MarginRight(2),

		StatusOnline: lipgloss.NewStyle().
			Foreground(special).
			Bold(true),

		StatusOffline: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true),

		Log: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(subtle).
			MarginTop(1),

		LogTime: lipgloss.NewStyle().
			Foreground(dim).
			MarginRight(1),

		Muted: lipgloss.NewStyle().
			Foreground(dim),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")),

		Success: lipgloss.NewStyle().
			Foreground(special),

		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFCC00")),

		Help: lipgloss.NewStyle().
			Foreground(dim).
			MarginTop(1),
	}
}
