package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vitaminmoo/neuromenu/internal/menu"
)

// DefaultSize is the number of entries kept when no size is configured.
const DefaultSize = 50

// Entry is one user-visible log line.
type Entry struct {
	Time     time.Time
	Message  string
	Severity menu.Severity
}

// Log keeps the most recent entries in a fixed-size ring. Older entries are
// discarded. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	count   int

	now      func() time.Time
	logger   *slog.Logger
	onAppend func(Entry)
}

// Option configures a Log.
type Option func(*Log)

// WithSlog mirrors every entry to logger.
func WithSlog(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// OnAppend registers a callback invoked after each append, outside the lock.
func OnAppend(fn func(Entry)) Option {
	return func(l *Log) { l.onAppend = fn }
}

// New creates a log holding at most size entries.
func New(size int, opts ...Option) *Log {
	if size <= 0 {
		size = DefaultSize
	}
	l := &Log{
		entries: make([]Entry, size),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records a message.
func (l *Log) Append(message string, severity menu.Severity) {
	e := Entry{Time: l.now(), Message: message, Severity: severity}

	l.mu.Lock()
	idx := (l.start + l.count) % len(l.entries)
	l.entries[idx] = e
	if l.count < len(l.entries) {
		l.count++
	} else {
		l.start = (l.start + 1) % len(l.entries)
	}
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Log(context.Background(), Level(severity), message, "severity", severity.String())
	}
	if l.onAppend != nil {
		l.onAppend(e)
	}
}

// Entries returns the retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.entries[(l.start+i)%len(l.entries)]
	}
	return out
}

// Tail returns up to n of the newest entries, oldest first.
func (l *Log) Tail(n int) []Entry {
	all := l.Entries()
	if n >= 0 && len(all) > n {
		return all[len(all)-n:]
	}
	return all
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Level maps a severity onto an slog level.
func Level(s menu.Severity) slog.Level {
	switch s {
	case menu.SeverityWarning:
		return slog.LevelWarn
	case menu.SeverityError:
		return slog.LevelError
	}
	return slog.LevelInfo
}
