package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitaminmoo/neuromenu/internal/history"
	"github.com/vitaminmoo/neuromenu/internal/menu"
)

// Bridge forwards effects from the session loop to a running program. It
// implements dispatch.Presenter, and Entry can be registered as a history
// hook. Messages sent before Attach are queued and delivered in order.
type Bridge struct {
	queue chan tea.Msg
	done  chan struct{}

	attachOnce sync.Once
	closeOnce  sync.Once
}

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{
		queue: make(chan tea.Msg, 256),
		done:  make(chan struct{}),
	}
}

// Attach starts delivering to p. Only the first call has an effect.
func (b *Bridge) Attach(p *tea.Program) {
	b.attachOnce.Do(func() {
		go func() {
			for {
				select {
				case msg := <-b.queue:
					p.Send(msg)
				case <-b.done:
					return
				}
			}
		}()
	})
}

// Close stops delivery. Later messages are dropped.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.queue <- msg:
	case <-b.done:
	}
}

// Render implements dispatch.Presenter.
func (b *Bridge) Render(s menu.State) error {
	b.send(stateMsg(s))
	return nil
}

// Highlight implements dispatch.Presenter.
func (b *Bridge) Highlight(optionID int, d time.Duration) error {
	b.send(highlightMsg{optionID: optionID, d: d})
	return nil
}

// Entry forwards a log entry to the log pane.
func (b *Bridge) Entry(e history.Entry) {
	b.send(logMsg(e))
}
