// Package ble implements the session transport over Bluetooth Low Energy.
package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/vitaminmoo/neuromenu/internal/config"
	"github.com/vitaminmoo/neuromenu/internal/session"
)

// Transport scans for and connects to the headset through the default adapter.
type Transport struct {
	adapter     *bluetooth.Adapter
	scanTimeout time.Duration

	// Swapped out in tests.
	enableAdapter  func() error
	adapterPowered func() (bool, error) // nil when BlueZ cannot be asked
	openBluez      func() (*bluez, error)

	enableMu sync.Mutex
	enabled  bool
	bluez    *bluez

	mu    sync.Mutex
	links map[string]*connection // by address
}

// NewTransport creates a transport. A scan that finds nothing within
// scanTimeout fails with session.ErrNotFound.
func NewTransport(scanTimeout time.Duration) *Transport {
	if scanTimeout <= 0 {
		scanTimeout = DefaultScanTimeout
	}
	t := &Transport{
		adapter:     bluetooth.DefaultAdapter,
		scanTimeout: scanTimeout,
		openBluez:   newBluez,
		links:       make(map[string]*connection),
	}
	t.enableAdapter = t.enableDefaultAdapter
	return t
}

func (t *Transport) enableDefaultAdapter() error {
	if err := t.adapter.Enable(); err != nil {
		return err
	}
	t.adapter.SetConnectHandler(t.onConnectEvent)
	return nil
}

// enable brings the adapter up on first success and checks that it is
// powered on every call. Failures are not remembered, so a later connect
// can succeed once the adapter is back.
func (t *Transport) enable() error {
	t.enableMu.Lock()
	defer t.enableMu.Unlock()

	if !t.enabled {
		if t.bluez == nil && t.openBluez != nil {
			if b, err := t.openBluez(); err != nil {
				config.Debugf("BlueZ metadata unavailable: %v", err)
			} else {
				t.bluez = b
				if t.adapterPowered == nil {
					t.adapterPowered = b.adapterPowered
				}
			}
		}
		if err := t.enableAdapter(); err != nil {
			return fmt.Errorf("failed to enable Bluetooth: %w: %w", session.ErrTransportUnavailable, err)
		}
		t.enabled = true
	}

	if t.adapterPowered != nil {
		powered, err := t.adapterPowered()
		if err != nil {
			config.Debugf("adapter power state unknown: %v", err)
		} else if !powered {
			return fmt.Errorf("adapter hci0 is powered off: %w", session.ErrTransportUnavailable)
		}
	}
	return nil
}

// DiscoverAndConnect scans for a device named nameFilter (case-insensitive),
// or advertising serviceID when nameFilter is empty, and connects to it.
func (t *Transport) DiscoverAndConnect(ctx context.Context, nameFilter, serviceID string) (session.Connection, error) {
	if err := t.enable(); err != nil {
		return nil, err
	}
	svcUUID, err := bluetooth.ParseUUID(serviceID)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID %q: %w", serviceID, err)
	}

	result, err := t.scan(ctx, nameFilter, svcUUID)
	if err != nil {
		return nil, err
	}

	addr := result.Address.String()
	config.Debugf("Connecting to %s (%s)...", result.LocalName(), addr)
	device, err := t.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if err := ctx.Err(); err != nil {
		_ = device.Disconnect()
		return nil, fmt.Errorf("%w: %w", session.ErrTimeout, err)
	}

	c := &connection{t: t, device: device, addr: addr}
	t.mu.Lock()
	t.links[strings.ToUpper(addr)] = c
	t.mu.Unlock()
	return c, nil
}

func (t *Transport) scan(ctx context.Context, nameFilter string, svc bluetooth.UUID) (bluetooth.ScanResult, error) {
	scanCtx, cancel := context.WithTimeout(ctx, t.scanTimeout)
	defer cancel()

	found := make(chan bluetooth.ScanResult, 1)
	done := make(chan error, 1)
	go func() {
		done <- t.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			name := result.LocalName()
			if name != "" {
				config.Debugf("  Found: '%s' (%s) rssi %d", name, result.Address.String(), result.RSSI)
			}
			if !matches(name, nameFilter, result.HasServiceUUID(svc)) {
				return
			}
			select {
			case found <- result:
				_ = a.StopScan()
			default:
			}
		})
	}()

	select {
	case result := <-found:
		<-done
		return result, nil
	case err := <-done:
		select {
		case result := <-found:
			return result, nil
		default:
		}
		if err != nil {
			return bluetooth.ScanResult{}, fmt.Errorf("scan failed: %w", err)
		}
		return bluetooth.ScanResult{}, fmt.Errorf("scan ended without finding %q: %w", nameFilter, session.ErrNotFound)
	case <-scanCtx.Done():
		_ = t.adapter.StopScan()
		<-done
		select {
		case result := <-found:
			return result, nil
		default:
		}
		if ctx.Err() != nil {
			return bluetooth.ScanResult{}, fmt.Errorf("scan interrupted: %w: %w", session.ErrTimeout, ctx.Err())
		}
		return bluetooth.ScanResult{}, fmt.Errorf("no device named %q within %s: %w", nameFilter, t.scanTimeout, session.ErrNotFound)
	}
}

// matches applies the scan filter. With no name filter, any device that
// advertises the service qualifies.
func matches(name, nameFilter string, advertisesService bool) bool {
	if nameFilter == "" {
		return advertisesService
	}
	return strings.EqualFold(strings.TrimSpace(name), nameFilter)
}

func (t *Transport) onConnectEvent(device bluetooth.Device, connected bool) {
	if connected {
		return
	}
	addr := strings.ToUpper(device.Address.String())
	t.mu.Lock()
	c := t.links[addr]
	delete(t.links, addr)
	t.mu.Unlock()
	if c != nil {
		config.Debugf("Device %s disconnected", addr)
		c.dropped()
	}
}

func (t *Transport) forget(c *connection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.links[strings.ToUpper(c.addr)] == c {
		delete(t.links, strings.ToUpper(c.addr))
	}
}

type connection struct {
	t      *Transport
	device bluetooth.Device
	addr   string

	mu      sync.Mutex
	onDrop  func()
	lost    bool
	closing bool
}

func (c *connection) Service(_ context.Context, id string) (session.Service, error) {
	uuid, err := bluetooth.ParseUUID(id)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID %q: %w", id, err)
	}
	config.Debugf("Discovering services...")
	services, err := c.device.DiscoverServices([]bluetooth.UUID{uuid})
	if err != nil {
		return nil, fmt.Errorf("service %s: %w: %w", id, session.ErrNotFound, err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("service %s: %w", id, session.ErrNotFound)
	}
	config.Debugf("Found service: %s", services[0].UUID().String())

	s := &service{c: c, svc: services[0]}
	if c.t.bluez != nil {
		flags, err := c.t.bluez.characteristicFlags(c.addr)
		if err != nil {
			config.Debugf("characteristic flags unavailable: %v", err)
		} else {
			s.flags = flags
		}
	}
	return s, nil
}

func (c *connection) OnDisconnect(handler func()) {
	c.mu.Lock()
	c.onDrop = handler
	lost := c.lost
	c.mu.Unlock()
	if lost {
		handler()
	}
}

func (c *connection) Disconnect() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.t.forget(c)
	if err := c.device.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", c.addr, err)
	}
	return nil
}

func (c *connection) dropped() {
	c.mu.Lock()
	if c.closing || c.lost {
		c.mu.Unlock()
		return
	}
	c.lost = true
	h := c.onDrop
	c.mu.Unlock()
	if h != nil {
		h()
	}
}

type service struct {
	c     *connection
	svc   bluetooth.DeviceService
	flags map[string][]string // nil when BlueZ could not be asked
}

func (s *service) Characteristics() ([]session.Characteristic, error) {
	chars, err := s.svc.DiscoverCharacteristics(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to discover characteristics: %w", err)
	}
	out := make([]session.Characteristic, 0, len(chars))
	for i := range chars {
		out = append(out, s.wrap(chars[i]))
	}
	return out, nil
}

func (s *service) Characteristic(id string) (session.Characteristic, error) {
	uuid, err := bluetooth.ParseUUID(id)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic UUID %q: %w", id, err)
	}
	chars, err := s.svc.DiscoverCharacteristics([]bluetooth.UUID{uuid})
	if err != nil || len(chars) == 0 {
		return nil, errors.Join(fmt.Errorf("characteristic %s: %w", id, session.ErrNotFound), err)
	}
	return s.wrap(chars[0]), nil
}

func (s *service) wrap(ch bluetooth.DeviceCharacteristic) *characteristic {
	id := ch.UUID().String()
	notify := true
	if s.flags != nil {
		if flags, ok := s.flags[strings.ToLower(id)]; ok {
			notify = notifyCapable(flags)
		}
	}
	return &characteristic{ch: ch, id: id, notify: notify}
}

type characteristic struct {
	ch     bluetooth.DeviceCharacteristic
	id     string
	notify bool
}

func (c *characteristic) ID() string           { return c.id }
func (c *characteristic) SupportsNotify() bool { return c.notify }

func (c *characteristic) Subscribe(onNotify func([]byte)) error {
	if err := c.ch.EnableNotifications(onNotify); err != nil {
		return fmt.Errorf("failed to enable notifications on %s: %w", c.id, err)
	}
	return nil
}
