package ble

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/chaz8081/bleprint/internal/transmit"
)

var (
	// ErrAdapterUnavailable means the host has no usable BLE adapter.
	ErrAdapterUnavailable = errors.New("ble: adapter unavailable")
	// ErrNoDevice means no printer was found or none was selected.
	ErrNoDevice = errors.New("ble: no printer found")
	// ErrServiceNotFound means the connected device lacks the printer service.
	ErrServiceNotFound = errors.New("ble: service not found")
	// ErrCharacteristicNotFound means the printer service lacks the write characteristic.
	ErrCharacteristicNotFound = errors.New("ble: characteristic not found")
)

// SelectFunc picks the printer to connect to from the scan results.
type SelectFunc func(devices []Device) (Device, error)

// DiscoverOptions configures printer discovery.
type DiscoverOptions struct {
	ServiceUUID string
	CharUUID    string
	Address     string        // connect to this address directly, skipping the scan
	Name        string        // only consider devices whose local name contains Name
	ScanTimeout time.Duration // how long to scan for printers
	Select      SelectFunc    // defaults to the strongest signal
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		ServiceUUID: PrinterServiceUUID,
		CharUUID:    PrinterCharUUID,
		ScanTimeout: 10 * time.Second,
	}
}

// Discoverer resolves a printer into a writable characteristic.
type Discoverer struct {
	adapter Adapter
	opts    DiscoverOptions
}

// NewDiscoverer creates a Discoverer on top of adapter. Zero fields in opts
// are filled from DefaultDiscoverOptions.
func NewDiscoverer(adapter Adapter, opts DiscoverOptions) *Discoverer {
	def := DefaultDiscoverOptions()
	if opts.ServiceUUID == "" {
		opts.ServiceUUID = def.ServiceUUID
	}
	if opts.CharUUID == "" {
		opts.CharUUID = def.CharUUID
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = def.ScanTimeout
	}
	if opts.Select == nil {
		opts.Select = Strongest
	}
	return &Discoverer{adapter: adapter, opts: opts}
}

// Scan powers on the adapter and lists printers advertising the service,
// filtered by name if one is configured.
func (d *Discoverer) Scan(ctx context.Context) ([]Device, error) {
	if err := d.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w: %w", ErrAdapterUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.ScanTimeout)
	defer cancel()

	devices, err := d.adapter.Scan(ctx, d.opts.ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	if d.opts.Name == "" {
		return devices, nil
	}
	return slices.DeleteFunc(devices, func(dev Device) bool {
		return !strings.Contains(dev.Name, d.opts.Name)
	}), nil
}

// Discover connects to the printer and returns its write characteristic.
// The caller must Close the returned link.
func (d *Discoverer) Discover(ctx context.Context) (transmit.Link, error) {
	mac := d.opts.Address
	if mac == "" {
		devices, err := d.Scan(ctx)
		if err != nil {
			return nil, err
		}
		if len(devices) == 0 {
			return nil, fmt.Errorf("ble: no device advertising %s: %w", d.opts.ServiceUUID, ErrNoDevice)
		}
		dev, err := d.opts.Select(devices)
		if err != nil {
			return nil, fmt.Errorf("ble: select device: %w: %w", ErrNoDevice, err)
		}
		slog.Info("[BLE] printer selected", "name", dev.Name, "mac", dev.MAC, "rssi", dev.RSSI)
		mac = dev.MAC
	} else if err := d.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w: %w", ErrAdapterUnavailable, err)
	}

	conn, err := d.adapter.Connect(ctx, mac)
	if err != nil {
		return nil, fmt.Errorf("ble: connect to %s: %w", mac, err)
	}

	char, err := conn.DiscoverCharacteristic(d.opts.ServiceUUID, d.opts.CharUUID)
	if err != nil {
		if derr := conn.Disconnect(); derr != nil {
			slog.Warn("[BLE] disconnect after failed discovery", "mac", mac, "error", derr)
		}
		return nil, fmt.Errorf("ble: discover characteristic %s: %w", d.opts.CharUUID, err)
	}

	slog.Info("[BLE] connected", "mac", mac)
	return &link{mac: mac, conn: conn, char: char}, nil
}

// Strongest selects the device with the best RSSI.
func Strongest(devices []Device) (Device, error) {
	if len(devices) == 0 {
		return Device{}, ErrNoDevice
	}
	return slices.MaxFunc(devices, func(a, b Device) int {
		return cmp.Compare(a.RSSI, b.RSSI)
	}), nil
}

// link is a connected printer characteristic.
type link struct {
	mac  string
	conn Connection
	char Characteristic
}

func (l *link) Write(data []byte) error {
	return l.char.Write(data)
}

// Close gracefully disconnects from the printer.
func (l *link) Close() error {
	if err := l.conn.Disconnect(); err != nil {
		return fmt.Errorf("ble: disconnect %s: %w", l.mac, err)
	}
	slog.Info("[BLE] disconnected", "mac", l.mac)
	return nil
}
