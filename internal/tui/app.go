package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitaminmoo/neuromenu/internal/catalog"
)

// Run starts the TUI application and blocks until the user quits or ctx is
// done. The bridge must be the presenter and log hook of the session that
// s belongs to.
func Run(ctx context.Context, s Session, c *catalog.Catalog, bridge *Bridge, opts ...Option) error {
	m := NewModel(ctx, s, c, opts...)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)
	defer bridge.Close()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
