package history

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/neuromenu/internal/menu"
)

func TestKeepsNewestEntries(t *testing.T) {
	l := New(DefaultSize)

	for i := 0; i < 120; i++ {
		l.Append(fmt.Sprintf("entry %d", i), menu.SeverityInfo)
	}

	entries := l.Entries()
	require.Len(t, entries, 50)
	assert.Equal(t, 50, l.Len())
	assert.Equal(t, "entry 70", entries[0].Message)
	assert.Equal(t, "entry 119", entries[49].Message)
}

func TestPartiallyFilled(t *testing.T) {
	l := New(5)
	l.Append("a", menu.SeverityInfo)
	l.Append("b", menu.SeverityError)

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Message)
	assert.Equal(t, menu.SeverityError, entries[1].Severity)
}

func TestTail(t *testing.T) {
	l := New(4)
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		l.Append(m, menu.SeverityInfo)
	}

	tail := l.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "d", tail[0].Message)
	assert.Equal(t, "e", tail[1].Message)
	assert.Len(t, l.Tail(10), 4)
}

func TestNonPositiveSizeUsesDefault(t *testing.T) {
	l := New(0)
	for i := 0; i < DefaultSize+1; i++ {
		l.Append("x", menu.SeverityInfo)
	}
	assert.Equal(t, DefaultSize, l.Len())
}

func TestClockSlogAndCallback(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	var seen []Entry

	l := New(3,
		WithClock(func() time.Time { return fixed }),
		WithSlog(logger),
		OnAppend(func(e Entry) { seen = append(seen, e) }),
	)
	l.Append("selection rejected", menu.SeverityWarning)

	require.Len(t, seen, 1)
	assert.Equal(t, fixed, seen[0].Time)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="selection rejected"`)
	assert.Contains(t, buf.String(), "severity=warning")
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Level(menu.SeverityInfo))
	assert.Equal(t, slog.LevelInfo, Level(menu.SeveritySuccess))
	assert.Equal(t, slog.LevelWarn, Level(menu.SeverityWarning))
	assert.Equal(t, slog.LevelError, Level(menu.SeverityError))
}
