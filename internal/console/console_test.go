package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vitaminmoo/neuromenu/internal/history"
	"github.com/vitaminmoo/neuromenu/internal/menu"
)

func TestRenderSkipsRepeats(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, nil)

	idle := menu.State{Connected: true}
	assert.NoError(t, c.Render(idle))
	assert.NoError(t, c.Render(idle))
	assert.NoError(t, c.Render(menu.State{Connected: true, MenuActive: true, Selection: 2}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Connected-Idle")
	assert.Contains(t, lines[0], "menu Inactive")
	assert.Contains(t, lines[1], "Active (Selection: 2)")
}

func TestHighlightAndEntry(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, nil)

	assert.NoError(t, c.Highlight(3, 3*time.Second))
	c.Entry(history.Entry{
		Time:     time.Date(2026, 2, 3, 14, 5, 6, 0, time.UTC),
		Message:  "selected -> Washroom",
		Severity: menu.SeveritySuccess,
	})

	out := buf.String()
	assert.Contains(t, out, ">> Washroom (option 3, 3s)")
	assert.Contains(t, out, "14:05:06")
	assert.Contains(t, out, "selected -> Washroom")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestWriteErrorsSurface(t *testing.T) {
	c := New(failingWriter{}, nil)
	assert.Error(t, c.Render(menu.State{}))
	assert.Error(t, c.Highlight(1, time.Second))
}
