package ble

import "time"

const (
	// DefaultScanTimeout bounds a scan when the caller sets none.
	DefaultScanTimeout = 15 * time.Second

	bluezBus          = "org.bluez"
	bluezAdapterPath  = "/org/bluez/hci0"
	bluezAdapter1     = "org.bluez.Adapter1"
	bluezGattChar1    = "org.bluez.GattCharacteristic1"
	dbusProperties    = "org.freedesktop.DBus.Properties"
	dbusObjectManager = "org.freedesktop.DBus.ObjectManager"
)
