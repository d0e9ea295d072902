package menu

import (
	"fmt"
	"time"
)

// Severity classifies a log entry.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Effect is an externally observable action requested by the Machine.
// The concrete types are Announce, LogEntry, HighlightOption and RefreshPresentation.
type Effect interface {
	isEffect()
}

// Announce speaks Text, preempting any announcement in progress.
type Announce struct {
	Text string
}

// LogEntry appends a message to the user-visible log.
type LogEntry struct {
	Message  string
	Severity Severity
}

// HighlightOption briefly marks an option as chosen.
type HighlightOption struct {
	OptionID int
	Duration time.Duration
}

// RefreshPresentation re-renders the displayed menu state.
type RefreshPresentation struct {
	Snapshot State
}

func (Announce) isEffect()            {}
func (LogEntry) isEffect()            {}
func (HighlightOption) isEffect()     {}
func (RefreshPresentation) isEffect() {}
