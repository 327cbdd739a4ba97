// Package serial reaches a receipt printer through a serial device, such as
// a bound RFCOMM tty or a USB-serial adapter.
package serial

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tarm/serial"

	"github.com/chaz8081/bleprint/internal/transmit"
)

// Port is the part of a serial port the printer link needs.
type Port interface {
	io.WriteCloser
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/rfcomm0", "COM3")
	Device string

	// Baud rate (most thermal printers ship at 9600)
	Baud int
}

// DefaultConfig returns a default configuration for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device: device,
		Baud:   9600,
	}
}

// Open opens a native serial port.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("serial: config cannot be nil")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name: cfg.Device,
		Baud: cfg.Baud,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}
	return port, nil
}

// Discoverer opens the configured serial device as a printer link.
type Discoverer struct {
	cfg  *Config
	open func(*Config) (Port, error)
}

// NewDiscoverer creates a Discoverer for cfg.
func NewDiscoverer(cfg *Config) *Discoverer {
	return &Discoverer{cfg: cfg, open: Open}
}

// Discover opens the port. The caller must Close the returned link.
func (d *Discoverer) Discover(ctx context.Context) (transmit.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	port, err := d.open(d.cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("[SERIAL] opened", "device", d.cfg.Device, "baud", d.cfg.Baud)
	return &link{device: d.cfg.Device, port: port}, nil
}

type link struct {
	device string
	port   Port
}

// Write writes all of data, failing on a short write.
func (l *link) Write(data []byte) error {
	n, err := l.port.Write(data)
	if err != nil {
		return fmt.Errorf("serial: write %s: %w", l.device, err)
	}
	if n != len(data) {
		return fmt.Errorf("serial: short write to %s: %d of %d bytes", l.device, n, len(data))
	}
	return nil
}

func (l *link) Close() error {
	if err := l.port.Close(); err != nil {
		return fmt.Errorf("serial: close %s: %w", l.device, err)
	}
	slog.Info("[SERIAL] closed", "device", l.device)
	return nil
}
