// Package console prints menu activity as styled lines, for running
// without the full-screen UI.
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vitaminmoo/neuromenu/internal/catalog"
	"github.com/vitaminmoo/neuromenu/internal/history"
	"github.com/vitaminmoo/neuromenu/internal/menu"
)

var (
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})
	stateStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"})
	chosenStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"})
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFCC00"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// Console writes state changes, highlights and log entries to w. It
// implements dispatch.Presenter; Entry is meant as a history hook.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	catalog *catalog.Catalog
	last    menu.State
	seen    bool
}

// New creates a console printing to w.
func New(w io.Writer, c *catalog.Catalog) *Console {
	if c == nil {
		c = catalog.Default()
	}
	return &Console{w: w, catalog: c}
}

// Render prints the state when it differs from the last one printed.
func (c *Console) Render(s menu.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen && s == c.last {
		return nil
	}
	c.last, c.seen = s, true

	line := stateStyle.Render(s.String())
	if s.Connected {
		line += "  menu " + s.StatusText()
	}
	_, err := fmt.Fprintln(c.w, line)
	return err
}

// Highlight prints the confirmed option.
func (c *Console) Highlight(optionID int, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, chosenStyle.Render(fmt.Sprintf(">> %s (option %d, %s)", c.catalog.LabelFor(optionID), optionID, d)))
	return err
}

// Entry prints one log entry.
func (c *Console) Entry(e history.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := e.Message
	switch e.Severity {
	case menu.SeverityWarning:
		msg = warningStyle.Render(msg)
	case menu.SeverityError:
		msg = errorStyle.Render(msg)
	case menu.SeveritySuccess:
		msg = chosenStyle.Render(msg)
	}
	fmt.Fprintf(c.w, "%s %s\n", timeStyle.Render(e.Time.Format("15:04:05")), msg)
}
