package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vitaminmoo/neuromenu/internal/menu"
)

// ErrAnnouncerUnavailable is reported when the speech engine cannot be used.
var ErrAnnouncerUnavailable = errors.New("announcer unavailable")

// Announcer speaks text. Announce must return without waiting for speech
// to finish and must cut off any announcement still in progress.
type Announcer interface {
	Announce(text string) error
	Available() bool
}

// Presenter mirrors the menu visually.
type Presenter interface {
	Render(snapshot menu.State) error
	Highlight(optionID int, d time.Duration) error
}

// Logger receives user-visible log entries.
type Logger interface {
	Append(message string, severity menu.Severity)
}

// Dispatcher executes effects against the collaborators.
type Dispatcher struct {
	announcer Announcer
	presenter Presenter
	logger    Logger
}

// New creates a dispatcher. Nil collaborators are replaced by no-ops.
func New(a Announcer, p Presenter, l Logger) *Dispatcher {
	if a == nil {
		a = Mute{}
	}
	if p == nil {
		p = NopPresenter{}
	}
	if l == nil {
		l = NopLogger{}
	}
	return &Dispatcher{announcer: a, presenter: p, logger: l}
}

// Dispatch runs effects in order. A failing effect is downgraded to a log
// entry and the remaining effects still run.
func (d *Dispatcher) Dispatch(effects []menu.Effect) {
	for _, e := range effects {
		if err := d.run(e); err != nil {
			d.log(err.Error(), menu.SeverityError)
		}
	}
}

// Log appends a single entry without going through the state machine.
func (d *Dispatcher) Log(message string, severity menu.Severity) {
	d.log(message, severity)
}

func (d *Dispatcher) run(e menu.Effect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s failed: panic: %v", effectName(e), r)
		}
	}()

	switch e := e.(type) {
	case menu.Announce:
		if !d.announcer.Available() {
			return fmt.Errorf("announce failed: %w: %q", ErrAnnouncerUnavailable, e.Text)
		}
		if err := d.announcer.Announce(e.Text); err != nil {
			return fmt.Errorf("announce failed: %w", err)
		}
	case menu.LogEntry:
		d.log(e.Message, e.Severity)
	case menu.HighlightOption:
		if err := d.presenter.Highlight(e.OptionID, e.Duration); err != nil {
			return fmt.Errorf("highlight failed: %w", err)
		}
	case menu.RefreshPresentation:
		if err := d.presenter.Render(e.Snapshot); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown effect %T", e)
	}
	return nil
}

// log never lets a logger failure escape; it is reported to slog instead.
func (d *Dispatcher) log(message string, severity menu.Severity) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("log append failed", "message", message, "panic", r)
		}
	}()
	d.logger.Append(message, severity)
}

func effectName(e menu.Effect) string {
	switch e.(type) {
	case menu.Announce:
		return "announce"
	case menu.LogEntry:
		return "log"
	case menu.HighlightOption:
		return "highlight"
	case menu.RefreshPresentation:
		return "render"
	}
	return fmt.Sprintf("%T", e)
}

// Mute is an Announcer that is never available.
type Mute struct{}

func (Mute) Announce(string) error { return ErrAnnouncerUnavailable }
func (Mute) Available() bool       { return false }

// Silent is an Announcer for a user who turned speech off. It accepts and
// drops every announcement.
type Silent struct{}

func (Silent) Announce(string) error { return nil }
func (Silent) Available() bool       { return true }

// NopPresenter discards everything.
type NopPresenter struct{}

func (NopPresenter) Render(menu.State) error            { return nil }
func (NopPresenter) Highlight(int, time.Duration) error { return nil }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Append(string, menu.Severity) {}

// Presenters fans out to several presenters. Every presenter is called even
// if an earlier one fails; the errors are joined.
type Presenters []Presenter

func (ps Presenters) Render(s menu.State) error {
	var errs []error
	for _, p := range ps {
		errs = append(errs, p.Render(s))
	}
	return errors.Join(errs...)
}

func (ps Presenters) Highlight(id int, d time.Duration) error {
	var errs []error
	for _, p := range ps {
		errs = append(errs, p.Highlight(id, d))
	}
	return errors.Join(errs...)
}
