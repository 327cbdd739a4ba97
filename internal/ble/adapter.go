// Package ble resolves a Bluetooth Low Energy receipt printer into a
// writable GATT characteristic. It handles adapter power-up, scanning,
// device selection, connection and characteristic discovery.
package ble

import "context"

// Default UUIDs used by common 58mm/80mm BLE thermal printers.
const (
	PrinterServiceUUID = "000018f0-0000-1000-8000-00805f9b34fb"
	PrinterCharUUID    = "00002af1-0000-1000-8000-00805f9b34fb"
)

// Characteristic is the printer's write endpoint. Writes are not
// acknowledged by the peripheral.
type Characteristic interface {
	Write(data []byte) error
}

// Device is a printer seen during a scan. On macOS MAC holds the
// CoreBluetooth peripheral UUID.
type Device struct {
	Name string
	MAC  string
	RSSI int
}

// Connection is an open link to one peripheral.
type Connection interface {
	// DiscoverCharacteristic looks up charUUID inside serviceUUID.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	Disconnect() error
}

// Adapter is the host radio. BluetoothAdapter is the real implementation;
// tests substitute a fake.
type Adapter interface {
	Enable() error
	// Scan collects peripherals advertising serviceUUID until ctx is done.
	Scan(ctx context.Context, serviceUUID string) ([]Device, error)
	Connect(ctx context.Context, address string) (Connection, error)
}
