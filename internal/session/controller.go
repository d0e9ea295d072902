package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vitaminmoo/neuromenu/internal/config"
	"github.com/vitaminmoo/neuromenu/internal/dispatch"
	"github.com/vitaminmoo/neuromenu/internal/menu"
	"github.com/vitaminmoo/neuromenu/internal/protocol"
	"github.com/vitaminmoo/neuromenu/internal/util"
)

var (
	// ErrAlreadyConnected is returned by Connect while a session is live.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("controller stopped")
)

// Options identifies the device and tunes the connection attempt.
type Options struct {
	DeviceName       string
	ServiceID        string
	CharacteristicID string
	ConnectTimeout   time.Duration

	// Tap, if set, receives every live raw payload before it is decoded.
	// It runs on the event loop.
	Tap func(payload []byte)
}

// Controller connects to the headset and feeds its notifications through
// decode, the menu machine and the dispatcher.
//
// Every touch of the machine and the dispatcher happens on the goroutine
// running Run. Transport calls happen on the caller's goroutine and only
// their results are posted to the loop.
type Controller struct {
	transport Transport
	machine   *menu.Machine
	dispatch  *dispatch.Dispatcher
	opts      Options

	work chan func()
	done chan struct{}

	lifecycle  sync.Mutex // serializes Connect and Disconnect
	generation atomic.Uint64

	mu    sync.Mutex // guards link and abort; never held across transport calls
	link  *link
	abort context.CancelFunc // cancels the Connect in flight

	// Owned by the loop.
	current uint64   // generation of the live session, 0 when disconnected
	pending uint64   // generation being connected
	early   [][]byte // payloads that arrived for pending before it went live
}

type link struct {
	gen   uint64
	conn  Connection
	ended chan struct{}
}

// New creates a controller. Run must be started before any other method is used.
func New(t Transport, m *menu.Machine, d *dispatch.Dispatcher, opts Options) *Controller {
	return &Controller{
		transport: t,
		machine:   m,
		dispatch:  d,
		opts:      opts,
		work:      make(chan func(), 64),
		done:      make(chan struct{}),
	}
}

// Run executes posted work until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.work:
			fn()
		}
	}
}

func (c *Controller) post(ctx context.Context, fn func()) error {
	select {
	case c.work <- fn:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the loop and waits for it to finish.
func (c *Controller) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := c.post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) logf(severity menu.Severity, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_ = c.post(context.Background(), func() { c.dispatch.Log(msg, severity) })
}

// Snapshot returns the current menu state.
func (c *Controller) Snapshot(ctx context.Context) (menu.State, error) {
	var s menu.State
	err := c.call(ctx, func() { s = c.machine.State() })
	return s, err
}

// ManualSelect confirms an option on behalf of the caregiver.
func (c *Controller) ManualSelect(ctx context.Context, optionID int) error {
	return c.call(ctx, func() {
		c.dispatch.Dispatch(c.machine.ManualSelect(optionID))
	})
}

// Connect discovers the device, subscribes to its notifications and moves
// the menu to Connected-Idle. On failure nothing stays connected and the
// error wraps one of the transport sentinels.
func (c *Controller) Connect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.liveLink() != nil {
		return ErrAlreadyConnected
	}
	if c.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancel()
	}
	ctx, abort := context.WithCancel(ctx)
	c.mu.Lock()
	c.abort = abort
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.abort = nil
		c.mu.Unlock()
		abort()
	}()

	gen := c.generation.Add(1)
	if err := c.call(ctx, func() {
		c.pending = gen
		c.early = nil
	}); err != nil {
		return err
	}
	c.logf(menu.SeverityInfo, "scanning for %s...", c.opts.DeviceName)

	conn, charID, err := c.establish(ctx, gen)
	if err != nil {
		switch cerr := ctx.Err(); {
		case errors.Is(cerr, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout):
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		case errors.Is(cerr, context.Canceled) && !errors.Is(err, context.Canceled):
			err = fmt.Errorf("%w: %w", context.Canceled, err)
		}
		_ = c.post(context.Background(), func() {
			if c.pending == gen {
				c.pending = 0
				c.early = nil
			}
			c.dispatch.Log(FailureMessage(err), menu.SeverityError)
		})
		return err
	}

	l := &link{gen: gen, conn: conn, ended: make(chan struct{})}
	c.mu.Lock()
	c.link = l
	c.mu.Unlock()

	err = c.call(context.Background(), func() {
		if c.pending != gen {
			return
		}
		c.pending = 0
		c.current = gen
		c.dispatch.Log(fmt.Sprintf("connected to %s (characteristic %s)", c.opts.DeviceName, charID), menu.SeveritySuccess)
		c.dispatch.Dispatch(c.machine.Connect())
		early := c.early
		c.early = nil
		for _, p := range early {
			c.process(p)
		}
	})
	// Registered only once the session is live, so a drop is never
	// processed ahead of the connect.
	conn.OnDisconnect(func() { c.lost(gen) })
	return err
}

// establish runs the transport call sequence. Any failure after the link is
// up tears the link down again.
func (c *Controller) establish(ctx context.Context, gen uint64) (Connection, string, error) {
	conn, err := c.transport.DiscoverAndConnect(ctx, c.opts.DeviceName, c.opts.ServiceID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect: %w", err)
	}
	config.Debugf("link up, resolving service %s", c.opts.ServiceID)

	fail := func(err error) (Connection, string, error) {
		if derr := conn.Disconnect(); derr != nil {
			config.Debugf("disconnect after failed setup: %v", derr)
		}
		return nil, "", err
	}

	svc, err := conn.Service(ctx, c.opts.ServiceID)
	if err != nil {
		return fail(fmt.Errorf("failed to resolve service %s: %w", c.opts.ServiceID, err))
	}

	ch, err := c.subscribe(svc, gen)
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrTimeout, err))
	}
	return conn, ch.ID(), nil
}

// subscribe tries the configured characteristic first and falls back to the
// first other characteristic that advertises notify.
func (c *Controller) subscribe(svc Service, gen uint64) (Characteristic, error) {
	handler := func(payload []byte) { c.onNotify(gen, payload) }

	primary, err := svc.Characteristic(c.opts.CharacteristicID)
	if err == nil {
		if !primary.SupportsNotify() {
			err = fmt.Errorf("characteristic %s: %w", c.opts.CharacteristicID, ErrUnsupported)
		} else if err = primary.Subscribe(handler); err == nil {
			return primary, nil
		}
	}
	c.logf(menu.SeverityWarning, "characteristic %s unusable: %v", c.opts.CharacteristicID, err)

	chars, lerr := svc.Characteristics()
	if lerr != nil {
		return nil, fmt.Errorf("failed to list characteristics: %w", lerr)
	}
	config.Debugf("service has %d characteristics", len(chars))
	for _, ch := range chars {
		config.Debugf("  characteristic %s notify=%v", ch.ID(), ch.SupportsNotify())
	}

	for _, ch := range chars {
		if !ch.SupportsNotify() || strings.EqualFold(ch.ID(), c.opts.CharacteristicID) {
			continue
		}
		c.logf(menu.SeverityInfo, "using alternative notify characteristic %s", ch.ID())
		if serr := ch.Subscribe(handler); serr != nil {
			return nil, fmt.Errorf("failed to subscribe to %s: %w", ch.ID(), serr)
		}
		return ch, nil
	}
	return nil, fmt.Errorf("no notify-capable characteristic: %w (primary: %w)", ErrUnsupported, err)
}

// Disconnect drops the link, if any, and resets the menu. A Connect still
// in progress is cancelled first. It is safe to call repeatedly; each call
// reports the disconnection.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.abort != nil {
		c.abort()
	}
	c.mu.Unlock()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if l := c.takeLink(0); l != nil {
		if err := l.conn.Disconnect(); err != nil {
			c.logf(menu.SeverityError, "disconnect error: %v", err)
		}
		close(l.ended)
	}

	return c.call(ctx, func() {
		c.current = 0
		c.pending = 0
		c.early = nil
		c.dispatch.Dispatch(c.machine.Disconnect())
	})
}

// lost handles a disconnection reported by the transport.
func (c *Controller) lost(gen uint64) {
	_ = c.post(context.Background(), func() {
		if l := c.takeLink(gen); l != nil {
			close(l.ended)
		}
		if c.current != gen && c.current != 0 {
			config.Debugf("ignoring disconnect of stale session %d", gen)
			return
		}
		c.current = 0
		c.dispatch.Dispatch(c.machine.Disconnect())
	})
}

func (c *Controller) onNotify(gen uint64, payload []byte) {
	data := make([]byte, len(payload))
	copy(data, payload)
	_ = c.post(context.Background(), func() {
		switch {
		case gen == c.current:
			c.process(data)
		case gen == c.pending:
			c.early = append(c.early, data)
		default:
			c.dispatch.Log(menu.MsgIgnoredNotConn, menu.SeverityWarning)
		}
	})
}

// process runs decode, transition and dispatch for one live payload.
func (c *Controller) process(data []byte) {
	if c.opts.Tap != nil {
		c.opts.Tap(data)
	}
	config.Debugf("notification: %s", util.FormatHex(data))

	ev, err := protocol.Decode(data)
	if err != nil {
		c.dispatch.Dispatch(c.machine.DecodeFailed(err))
		return
	}
	config.Debugf("event: %s", ev)
	c.dispatch.Dispatch(c.machine.Handle(ev))
}

func (c *Controller) liveLink() *link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link
}

// takeLink removes the link if it belongs to gen (any link when gen is 0).
func (c *Controller) takeLink(gen uint64) *link {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.link
	if l == nil || (gen != 0 && l.gen != gen) {
		return nil
	}
	c.link = nil
	return l
}

// SessionEnded returns a channel closed when the live session ends. With no
// live session it returns a closed channel.
func (c *Controller) SessionEnded() <-chan struct{} {
	if l := c.liveLink(); l != nil {
		return l.ended
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Connected reports whether a link is currently held.
func (c *Controller) Connected() bool {
	return c.liveLink() != nil
}

// FailureMessage renders a connect error as a user-facing log line, one
// wording per failure class.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrTransportUnavailable):
		return "connect failed: bluetooth is not available on this host: " + err.Error()
	case errors.Is(err, ErrUnsupported):
		return "connect failed: device offers no notify-capable characteristic: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "connect cancelled"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "connect failed: timed out: " + err.Error()
	case errors.Is(err, ErrNotFound):
		return "connect failed: device, service or characteristic not found: " + err.Error()
	}
	return "connect failed: " + err.Error()
}
