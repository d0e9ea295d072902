package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/neuromenu/internal/menu"
)

// recorder captures every collaborator call in order.
type recorder struct {
	calls       []string
	unavailable bool
	announceErr error
	renderErr   error
	panicOn     string
}

func (r *recorder) Announce(text string) error {
	if r.panicOn == "announce" {
		panic("speaker exploded")
	}
	r.calls = append(r.calls, "announce:"+text)
	return r.announceErr
}

func (r *recorder) Available() bool { return !r.unavailable }

func (r *recorder) Render(s menu.State) error {
	r.calls = append(r.calls, "render:"+s.String())
	return r.renderErr
}

func (r *recorder) Highlight(id int, d time.Duration) error {
	if r.panicOn == "highlight" {
		panic("no such button")
	}
	r.calls = append(r.calls, fmt.Sprintf("highlight:%d:%s", id, d))
	return nil
}

func (r *recorder) Append(message string, severity menu.Severity) {
	r.calls = append(r.calls, "log:"+severity.String()+":"+message)
}

func TestDispatchOrder(t *testing.T) {
	r := &recorder{}
	d := New(r, r, r)

	d.Dispatch([]menu.Effect{
		menu.LogEntry{Message: "selected -> Water", Severity: menu.SeveritySuccess},
		menu.Announce{Text: "Water"},
		menu.HighlightOption{OptionID: 2, Duration: 3 * time.Second},
		menu.RefreshPresentation{Snapshot: menu.State{Connected: true}},
	})

	assert.Equal(t, []string{
		"log:success:selected -> Water",
		"announce:Water",
		"highlight:2:3s",
		"render:Connected-Idle",
	}, r.calls)
}

func TestAnnouncerUnavailable(t *testing.T) {
	r := &recorder{unavailable: true}
	d := New(r, r, r)

	d.Dispatch([]menu.Effect{
		menu.Announce{Text: "Food"},
		menu.RefreshPresentation{Snapshot: menu.State{}},
	})

	require.Len(t, r.calls, 2)
	assert.True(t, strings.HasPrefix(r.calls[0], "log:error:announce failed: announcer unavailable"), r.calls[0])
	assert.Equal(t, "render:Disconnected", r.calls[1])
}

func TestSilentAnnouncerLogsNothing(t *testing.T) {
	r := &recorder{}
	d := New(Silent{}, r, r)

	for range 3 {
		d.Dispatch([]menu.Effect{menu.Announce{Text: "Water"}})
	}
	d.Dispatch([]menu.Effect{menu.HighlightOption{OptionID: 2, Duration: time.Second}})

	assert.Equal(t, []string{"highlight:2:1s"}, r.calls)
}

func TestCollaboratorErrorsAreDowngraded(t *testing.T) {
	r := &recorder{
		announceErr: errors.New("audio device busy"),
		renderErr:   errors.New("screen gone"),
	}
	d := New(r, r, r)

	d.Dispatch([]menu.Effect{
		menu.Announce{Text: "Help"},
		menu.RefreshPresentation{Snapshot: menu.State{}},
		menu.LogEntry{Message: "after", Severity: menu.SeverityInfo},
	})

	assert.Equal(t, []string{
		"announce:Help",
		"log:error:announce failed: audio device busy",
		"render:Disconnected",
		"log:error:render failed: screen gone",
		"log:info:after",
	}, r.calls)
}

func TestPanicsAreRecovered(t *testing.T) {
	r := &recorder{panicOn: "highlight"}
	d := New(r, r, r)

	require.NotPanics(t, func() {
		d.Dispatch([]menu.Effect{
			menu.HighlightOption{OptionID: 1, Duration: time.Second},
			menu.Announce{Text: "Food"},
		})
	})

	assert.Equal(t, []string{
		"log:error:highlight failed: panic: no such button",
		"announce:Food",
	}, r.calls)
}

type panickyLogger struct{}

func (panickyLogger) Append(string, menu.Severity) { panic("disk full") }

func TestLoggerPanicDoesNotEscape(t *testing.T) {
	r := &recorder{}
	d := New(r, r, panickyLogger{})

	require.NotPanics(t, func() {
		d.Dispatch([]menu.Effect{
			menu.LogEntry{Message: "x"},
			menu.Announce{Text: "Water"},
		})
	})
	assert.Equal(t, []string{"announce:Water"}, r.calls)
}

func TestNilCollaborators(t *testing.T) {
	d := New(nil, nil, nil)
	require.NotPanics(t, func() {
		d.Dispatch([]menu.Effect{
			menu.Announce{Text: "Food"},
			menu.HighlightOption{OptionID: 1},
			menu.RefreshPresentation{},
			menu.LogEntry{Message: "x"},
		})
	})
}

func TestPresentersFanOut(t *testing.T) {
	a := &recorder{renderErr: errors.New("a failed")}
	b := &recorder{}
	ps := Presenters{a, b}

	err := ps.Render(menu.State{Connected: true})
	assert.EqualError(t, err, "a failed")
	assert.Equal(t, []string{"render:Connected-Idle"}, b.calls)

	require.NoError(t, ps.Highlight(3, time.Second))
	assert.Equal(t, "highlight:3:1s", a.calls[1])
	assert.Equal(t, "highlight:3:1s", b.calls[1])
}
