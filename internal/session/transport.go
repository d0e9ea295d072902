package session

import (
	"context"
	"errors"
)

// Transport errors. Implementations wrap these so callers can branch with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrTimeout              = errors.New("timed out")
	ErrUnsupported          = errors.New("notifications unsupported")
	ErrTransportUnavailable = errors.New("transport unavailable")
)

// Transport finds and connects to the headset.
type Transport interface {
	// DiscoverAndConnect scans for a device whose name matches nameFilter and
	// that offers serviceID, then connects to it.
	DiscoverAndConnect(ctx context.Context, nameFilter, serviceID string) (Connection, error)
}

// Connection is an established link to one device.
type Connection interface {
	Service(ctx context.Context, id string) (Service, error)
	// OnDisconnect registers a handler for disconnections the caller did not
	// request. If the link already dropped, handler runs right away.
	OnDisconnect(handler func())
	Disconnect() error
}

// Service is a resolved GATT service.
type Service interface {
	Characteristics() ([]Characteristic, error)
	Characteristic(id string) (Characteristic, error)
}

// Characteristic is a GATT characteristic that may deliver notifications.
type Characteristic interface {
	ID() string
	SupportsNotify() bool
	// Subscribe delivers each notification payload to onNotify. The slice is
	// only valid for the duration of the call.
	Subscribe(onNotify func(payload []byte)) error
}
