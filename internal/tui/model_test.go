package tui

import (
	"context"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/neuromenu/internal/history"
	"github.com/vitaminmoo/neuromenu/internal/menu"
	"github.com/vitaminmoo/neuromenu/internal/session"
)

type fakeSession struct {
	connects    int
	disconnects int
	selected    []int
	connectErr  error
}

func (f *fakeSession) Connect(context.Context) error {
	f.connects++
	return f.connectErr
}

func (f *fakeSession) Disconnect(context.Context) error {
	f.disconnects++
	return nil
}

func (f *fakeSession) ManualSelect(_ context.Context, id int) error {
	f.selected = append(f.selected, id)
	return nil
}

func newTestModel(s Session, opts ...Option) Model {
	return NewModel(context.Background(), s, nil, opts...)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var menuOpen = menu.State{Connected: true, MenuActive: true}

func TestOptionsDisabledUntilMenuActive(t *testing.T) {
	fs := &fakeSession{}
	m := newTestModel(fs)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	m, cmd = update(t, m, runes("2"))
	assert.Nil(t, cmd)

	m, _ = update(t, m, stateMsg(menu.State{Connected: true}))
	_, cmd = update(t, m, runes("2"))
	assert.Nil(t, cmd)
	assert.Empty(t, fs.selected)
}

func TestSelectWithCursor(t *testing.T) {
	fs := &fakeSession{}
	m := newTestModel(fs)
	m, _ = update(t, m, stateMsg(menuOpen))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, selectDoneMsg{}, cmd())
	assert.Equal(t, []int{3}, fs.selected)
}

func TestCursorWraps(t *testing.T) {
	m := newTestModel(&fakeSession{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 5, m.cursor)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.cursor)
}

func TestPickByNumber(t *testing.T) {
	fs := &fakeSession{}
	m := newTestModel(fs)
	m, _ = update(t, m, stateMsg(menuOpen))

	m, cmd := update(t, m, runes("6"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []int{6}, fs.selected)
	assert.Equal(t, 5, m.cursor)

	_, cmd = update(t, m, runes("9"))
	assert.Nil(t, cmd)
}

func TestFocusMovesCursor(t *testing.T) {
	m := newTestModel(&fakeSession{})
	m, _ = update(t, m, stateMsg(menu.State{Connected: true, MenuActive: true, Selection: 4}))

	assert.Equal(t, 3, m.cursor)
	view := m.View()
	assert.Contains(t, view, "Active (Selection: 4)")
	assert.Contains(t, view, "Connected-MenuOpen-Focused(4)")
	assert.Contains(t, view, "Help")
}

func TestConnectToggle(t *testing.T) {
	fs := &fakeSession{}
	m := newTestModel(fs)

	m, cmd := update(t, m, runes("c"))
	require.NotNil(t, cmd)
	assert.True(t, m.connecting)
	assert.Contains(t, m.View(), "Connecting...")

	m, _ = update(t, m, connectDoneMsg{})
	m, _ = update(t, m, stateMsg(menu.State{Connected: true}))
	assert.False(t, m.connecting)
	assert.Contains(t, m.View(), "● Connected")

	m, cmd = update(t, m, runes("c"))
	require.NotNil(t, cmd)
	assert.True(t, m.disconnecting)
	assert.Equal(t, disconnectDoneMsg{}, cmd())
	assert.Equal(t, 1, fs.disconnects)
}

func TestConnectPressAbortsAttempt(t *testing.T) {
	fs := &fakeSession{}
	m := newTestModel(fs)

	m, _ = update(t, m, runes("c"))
	require.True(t, m.connecting)

	m, cmd := update(t, m, runes("c"))
	require.NotNil(t, cmd)
	assert.True(t, m.disconnecting)
	assert.Equal(t, disconnectDoneMsg{}, cmd())
	assert.Equal(t, 1, fs.disconnects)

	// A third press while the abort is under way does nothing.
	_, again := update(t, m, runes("c"))
	assert.Nil(t, again)

	m, _ = update(t, m, connectDoneMsg{err: fmt.Errorf("scan: %w", context.Canceled)})
	m, _ = update(t, m, disconnectDoneMsg{})
	assert.False(t, m.connecting)
	assert.False(t, m.disconnecting)
	assert.Contains(t, m.View(), "Connect cancelled")
	assert.Contains(t, m.View(), "○ Disconnected")
}

func TestConnectFailureShown(t *testing.T) {
	m := newTestModel(&fakeSession{})
	m.connecting = true

	m, _ = update(t, m, connectDoneMsg{err: fmt.Errorf("scan: %w", session.ErrNotFound)})
	assert.False(t, m.connecting)
	assert.Contains(t, m.View(), "Device not found")

	m, _ = update(t, m, connectDoneMsg{err: session.ErrAlreadyConnected})
	assert.Contains(t, m.View(), "Device not found")
}

func TestAutoConnect(t *testing.T) {
	m := newTestModel(&fakeSession{}, WithAutoConnect())
	require.NotNil(t, m.Init())

	m, cmd := update(t, m, connectRequestMsg{})
	require.NotNil(t, cmd)
	assert.True(t, m.connecting)
}

func TestHighlightCountdown(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	m := newTestModel(&fakeSession{})
	m.now = func() time.Time { return now }

	m, cmd := update(t, m, highlightMsg{optionID: 2, d: 3 * time.Second})
	require.NotNil(t, cmd)
	assert.True(t, m.countdown.Active(2))
	assert.Contains(t, m.View(), "Selected: Water")

	// A second highlight while ticking does not start another ticker.
	m, cmd = update(t, m, highlightMsg{optionID: 2, d: 3 * time.Second})
	assert.Nil(t, cmd)

	m, cmd = update(t, m, countdownTickMsg(now.Add(time.Second)))
	assert.NotNil(t, cmd)
	assert.True(t, m.countdown.Active(2))

	m, cmd = update(t, m, countdownTickMsg(now.Add(3*time.Second)))
	assert.Nil(t, cmd)
	assert.False(t, m.countdown.Running())
	assert.NotContains(t, m.View(), "Selected: Water")
}

func TestLogPaneCapped(t *testing.T) {
	m := newTestModel(&fakeSession{}, WithLogSize(5))
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := range 8 {
		m, _ = update(t, m, logMsg(history.Entry{Time: base, Message: fmt.Sprintf("entry %d", i)}))
	}
	require.Len(t, m.logs, 5)
	assert.Equal(t, "entry 3", m.logs[0].Message)
	assert.Contains(t, m.View(), "entry 7")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.logs)
	assert.Contains(t, m.View(), "No activity yet")
}

func TestQuit(t *testing.T) {
	m := newTestModel(&fakeSession{})
	_, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSpeechStatusLine(t *testing.T) {
	m := newTestModel(&fakeSession{}, WithSpeechStatus("speech available via /usr/bin/espeak-ng"))
	assert.Contains(t, m.View(), "speech available via /usr/bin/espeak-ng")
}

func TestCountdownRemaining(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c := NewCountdown()
	assert.False(t, c.Expire(now))

	c.Start(1, "Food", 2*time.Second, now)
	assert.InDelta(t, 1.0, c.Remaining(now), 1e-9)
	assert.InDelta(t, 0.5, c.Remaining(now.Add(time.Second)), 1e-9)
	assert.Zero(t, c.Remaining(now.Add(5*time.Second)))
}
