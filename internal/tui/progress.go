package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const countdownTick = 100 * time.Millisecond

// Countdown tracks how long a confirmed option stays highlighted and draws
// the remaining time as a draining bar.
type Countdown struct {
	progress progress.Model
	optionID int
	label    string
	start    time.Time
	until    time.Time
}

// NewCountdown creates an idle countdown.
func NewCountdown() Countdown {
	return Countdown{
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
	}
}

// Start highlights optionID for d from now.
func (c *Countdown) Start(optionID int, label string, d time.Duration, now time.Time) {
	c.optionID = optionID
	c.label = label
	c.start = now
	c.until = now.Add(d)
}

// Expire clears the highlight once its time is up and reports whether it
// is still running.
func (c *Countdown) Expire(now time.Time) bool {
	if !c.Running() {
		return false
	}
	if !now.Before(c.until) {
		c.Cancel()
		return false
	}
	return true
}

// Cancel clears the highlight immediately.
func (c *Countdown) Cancel() {
	c.optionID = 0
	c.label = ""
	c.start = time.Time{}
	c.until = time.Time{}
}

// Active reports whether optionID is the highlighted option.
func (c Countdown) Active(optionID int) bool {
	return !c.until.IsZero() && c.optionID == optionID
}

// Running reports whether any option is highlighted.
func (c Countdown) Running() bool {
	return !c.until.IsZero()
}

// Remaining returns the fraction of the highlight left at now, 0.0 to 1.0.
func (c Countdown) Remaining(now time.Time) float64 {
	total := c.until.Sub(c.start)
	if total <= 0 {
		return 0
	}
	left := c.until.Sub(now)
	switch {
	case left <= 0:
		return 0
	case left >= total:
		return 1
	}
	return float64(left) / float64(total)
}

// View renders the countdown bar.
func (c Countdown) View(now time.Time) string {
	if !c.Running() {
		return ""
	}
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	return descStyle.Render("Selected: "+c.label) + "\n" + c.progress.ViewAs(c.Remaining(now))
}

// countdownTickMsg drives the highlight countdown.
type countdownTickMsg time.Time

func countdownTickCmd() tea.Cmd {
	return tea.Tick(countdownTick, func(t time.Time) tea.Msg {
		return countdownTickMsg(t)
	})
}
