package replay

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/neuromenu/internal/dispatch"
	"github.com/vitaminmoo/neuromenu/internal/menu"
	"github.com/vitaminmoo/neuromenu/internal/record"
	"github.com/vitaminmoo/neuromenu/internal/session"
)

const (
	svc  = "6910123a-eb0d-4c35-9a60-bebe1dcb549d"
	char = "5f4f1107-7fc1-43b2-a540-0aa1a9f1ce78"
)

func frames(payloads ...[]byte) []record.Frame {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]record.Frame, len(payloads))
	for i, p := range payloads {
		out[i] = record.Frame{Time: base.Add(time.Duration(i) * time.Second), Payload: p}
	}
	return out
}

type spoken struct {
	mu    sync.Mutex
	texts []string
}

func (s *spoken) Announce(text string) error {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	return nil
}

func (s *spoken) Available() bool { return true }

func (s *spoken) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func TestReplayThroughController(t *testing.T) {
	tr := New(frames([]byte{0x00}, []byte{'S', 1}, []byte{'A', 1}, []byte{0x7F}), 0, char)
	sp := &spoken{}
	c := session.New(tr, menu.NewMachine(nil), dispatch.New(sp, nil, nil), session.Options{
		DeviceName: "ESP32C6_EEG", ServiceID: svc, CharacteristicID: char,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.NoError(t, c.Connect(ctx))
	select {
	case <-c.SessionEnded():
	case <-time.After(2 * time.Second):
		t.Fatal("replay did not finish")
	}

	s, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, menu.PhaseDisconnected, s.Phase())
	assert.Equal(t, []string{menu.TextMenuActivated, "Food", "Food", menu.TextMenuDeactivated}, sp.all())
}

func TestReplayHonoursSpeed(t *testing.T) {
	tr := New(frames([]byte{0x00}, []byte{0x7F}), 20, char) // 1s gap played in 50ms
	conn, err := tr.DiscoverAndConnect(context.Background(), "", svc)
	require.NoError(t, err)
	s, err := conn.Service(context.Background(), svc)
	require.NoError(t, err)
	ch, err := s.Characteristic(char)
	require.NoError(t, err)

	got := make(chan []byte, 2)
	require.NoError(t, ch.Subscribe(func(p []byte) { got <- p }))
	ended := make(chan struct{})
	start := time.Now()
	conn.OnDisconnect(func() { close(ended) })

	<-ended
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, []byte{0x00}, <-got)
	assert.Equal(t, []byte{0x7F}, <-got)
}

func TestDisconnectStopsPlayback(t *testing.T) {
	tr := New(frames([]byte{0x00}, []byte{0x7F}), 1, char)
	conn, err := tr.DiscoverAndConnect(context.Background(), "", svc)
	require.NoError(t, err)

	ended := make(chan struct{})
	conn.OnDisconnect(func() { close(ended) })
	require.NoError(t, conn.Disconnect())
	require.NoError(t, conn.Disconnect())

	select {
	case <-ended:
		t.Fatal("end handler ran after Disconnect")
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestLookupErrors(t *testing.T) {
	tr := New(frames([]byte{0x00}), 0, char)
	conn, err := tr.DiscoverAndConnect(context.Background(), "", svc)
	require.NoError(t, err)

	_, err = conn.Service(context.Background(), "0000180d-0000-1000-8000-00805f9b34fb")
	assert.ErrorIs(t, err, session.ErrNotFound)

	s, err := conn.Service(context.Background(), svc)
	require.NoError(t, err)
	_, err = s.Characteristic("nope")
	assert.ErrorIs(t, err, session.ErrNotFound)
	chars, err := s.Characteristics()
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.True(t, chars[0].SupportsNotify())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.cbor")
	w, err := record.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Write([]byte{0x00}))
	require.NoError(t, w.Close())

	tr, err := Load(path, 1, char)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Len())

	empty := filepath.Join(t.TempDir(), "empty.cbor")
	w, err = record.Create(empty)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	_, err = Load(empty, 1, char)
	assert.Error(t, err)
}
