package ble

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// deviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath(bluezAdapterPath + "/dev_" + escaped)
}

// bluez reads GATT metadata that the bluetooth package does not expose.
type bluez struct {
	conn *dbus.Conn
}

func newBluez() (*bluez, error) {
	// The system bus connection is shared; never close it.
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	return &bluez{conn: conn}, nil
}

// adapterPowered reports the Powered property of hci0.
func (b *bluez) adapterPowered() (bool, error) {
	var v dbus.Variant
	obj := b.conn.Object(bluezBus, bluezAdapterPath)
	if err := obj.Call(dbusProperties+".Get", 0, bluezAdapter1, "Powered").Store(&v); err != nil {
		return false, err
	}
	powered, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("property Powered is not bool")
	}
	return powered, nil
}

// characteristicFlags returns the BlueZ Flags of every characteristic of
// the device at addr, keyed by lower-case UUID.
func (b *bluez) characteristicFlags(addr string) (map[string][]string, error) {
	var objects managedObjects
	call := b.conn.Object(bluezBus, "/").Call(dbusObjectManager+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("GetManagedObjects failed: %w", call.Err)
	}
	if err := call.Store(&objects); err != nil {
		return nil, fmt.Errorf("failed to parse managed objects: %w", err)
	}
	return flagsUnder(objects, deviceObjectPath(addr)), nil
}

func flagsUnder(objects managedObjects, device dbus.ObjectPath) map[string][]string {
	prefix := string(device) + "/"
	out := make(map[string][]string)
	for path, ifaces := range objects {
		props, ok := ifaces[bluezGattChar1]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			continue
		}
		uuid, ok := props["UUID"].Value().(string)
		if !ok {
			continue
		}
		flags, _ := props["Flags"].Value().([]string)
		out[strings.ToLower(uuid)] = flags
	}
	return out
}

// notifyCapable reports whether flags allow the peer to push values.
func notifyCapable(flags []string) bool {
	for _, f := range flags {
		if f == "notify" || f == "indicate" {
			return true
		}
	}
	return false
}
