// Package replay plays a recorded session back through the session
// transport interfaces, standing in for the headset.
package replay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vitaminmoo/neuromenu/internal/config"
	"github.com/vitaminmoo/neuromenu/internal/record"
	"github.com/vitaminmoo/neuromenu/internal/session"
)

// Transport serves one recording. Frames are delivered with their recorded
// spacing divided by Speed; a Speed of zero or less delivers them back to
// back. When the recording ends the connection reports a disconnect.
type Transport struct {
	frames []record.Frame
	speed  float64
	charID string
}

// New creates a transport for frames. charID is the characteristic the
// recording is served on.
func New(frames []record.Frame, speed float64, charID string) *Transport {
	return &Transport{frames: frames, speed: speed, charID: charID}
}

// Load reads a recording file into a transport.
func Load(path string, speed float64, charID string) (*Transport, error) {
	r, err := record.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	frames, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("recording %s is empty", path)
	}
	return New(frames, speed, charID), nil
}

// Len returns the number of frames in the recording.
func (t *Transport) Len() int {
	return len(t.frames)
}

func (t *Transport) DiscoverAndConnect(_ context.Context, nameFilter, serviceID string) (session.Connection, error) {
	config.Debugf("replay: pretending to be %q with service %s", nameFilter, serviceID)
	return &conn{t: t, serviceID: serviceID, stop: make(chan struct{})}, nil
}

type conn struct {
	t         *Transport
	serviceID string

	mu       sync.Mutex
	onNotify func([]byte)
	started  bool
	stopped  bool
	stop     chan struct{}
}

func (c *conn) Service(_ context.Context, id string) (session.Service, error) {
	if !strings.EqualFold(id, c.serviceID) {
		return nil, fmt.Errorf("service %s: %w", id, session.ErrNotFound)
	}
	return c, nil
}

func (c *conn) Characteristics() ([]session.Characteristic, error) {
	return []session.Characteristic{&characteristic{c: c}}, nil
}

func (c *conn) Characteristic(id string) (session.Characteristic, error) {
	if !strings.EqualFold(id, c.t.charID) {
		return nil, fmt.Errorf("characteristic %s: %w", id, session.ErrNotFound)
	}
	return &characteristic{c: c}, nil
}

// OnDisconnect starts playback. Playback never starts without a handler
// to receive the end of the recording.
func (c *conn) OnDisconnect(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true
	go c.play(c.onNotify, handler)
}

func (c *conn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.stop)
	}
	return nil
}

func (c *conn) play(onNotify func([]byte), onEnd func()) {
	prev := c.t.frames[0].Time
	for _, f := range c.t.frames {
		if delay := c.delay(f.Time.Sub(prev)); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-c.stop:
				timer.Stop()
				return
			}
		}
		prev = f.Time

		select {
		case <-c.stop:
			return
		default:
		}
		if onNotify != nil {
			onNotify(f.Payload)
		}
	}
	config.Debugf("replay: recording finished")
	onEnd()
}

func (c *conn) delay(gap time.Duration) time.Duration {
	if c.t.speed <= 0 || gap <= 0 {
		return 0
	}
	return time.Duration(float64(gap) / c.t.speed)
}

type characteristic struct {
	c *conn
}

func (ch *characteristic) ID() string           { return ch.c.t.charID }
func (ch *characteristic) SupportsNotify() bool { return true }

func (ch *characteristic) Subscribe(onNotify func([]byte)) error {
	ch.c.mu.Lock()
	defer ch.c.mu.Unlock()
	ch.c.onNotify = onNotify
	return nil
}
