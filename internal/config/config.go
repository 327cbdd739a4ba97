package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"tinygo.org/x/bluetooth"

	"github.com/chaz8081/bleprint/internal/ble"
	"github.com/chaz8081/bleprint/internal/serial"
	"github.com/chaz8081/bleprint/internal/transmit"
)

// Config holds all application configuration.
type Config struct {
	Transport   string         `yaml:"transport"` // "ble" or "serial"
	Printer     PrinterConfig  `yaml:"printer"`
	Serial      SerialConfig   `yaml:"serial"`
	Transmit    TransmitConfig `yaml:"transmit"`
	ReceiptPath string         `yaml:"receipt_path"`
	LogLevel    string         `yaml:"log_level"`
}

// PrinterConfig holds BLE printer discovery settings.
type PrinterConfig struct {
	Name        string        `yaml:"name"`    // local-name filter, empty matches any
	Address     string        `yaml:"address"` // skip scanning and connect directly
	ServiceUUID string        `yaml:"service_uuid"`
	CharUUID    string        `yaml:"char_uuid"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
}

// SerialConfig holds serial transport settings.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// TransmitConfig holds chunk pacing settings.
type TransmitConfig struct {
	Mode         string        `yaml:"mode"` // "timed" or "queued"
	MaxChunkSize int           `yaml:"max_chunk_size"`
	ChunkDelay   time.Duration `yaml:"chunk_delay"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bleprint")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	disc := ble.DefaultDiscoverOptions()
	tx := transmit.DefaultOptions()

	return &Config{
		Transport: "ble",
		Printer: PrinterConfig{
			ServiceUUID: disc.ServiceUUID,
			CharUUID:    disc.CharUUID,
			ScanTimeout: disc.ScanTimeout,
		},
		Serial: SerialConfig{
			Port: "/dev/rfcomm0",
			Baud: serial.DefaultConfig("").Baud,
		},
		Transmit: TransmitConfig{
			Mode:         string(tx.Mode),
			MaxChunkSize: tx.MaxChunkSize,
			ChunkDelay:   tx.ChunkDelay,
			WriteTimeout: tx.WriteTimeout,
		},
		LogLevel: "info",
	}
}

// defaultConfigYAML mirrors Default().
const defaultConfigYAML = `# bleprint configuration
transport: ble            # ble or serial

printer:
  name: ""                # only consider printers whose name contains this
  address: ""             # connect directly, skipping the scan
  service_uuid: 000018f0-0000-1000-8000-00805f9b34fb
  char_uuid: 00002af1-0000-1000-8000-00805f9b34fb
  scan_timeout: 10s

serial:
  port: /dev/rfcomm0
  baud: 9600

transmit:
  mode: timed             # timed or queued
  max_chunk_size: 125
  chunk_delay: 250ms
  write_timeout: 2s       # queued mode only

receipt_path: ""          # empty prints the demo receipt
log_level: info
`

// WriteDefault writes the default config file if none exists yet. It
// returns the written path, or "" if a config file was already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in receipt_path and serial.port is expanded to
// the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ReceiptPath = expandTilde(cfg.ReceiptPath)
	cfg.Serial.Port = expandTilde(cfg.Serial.Port)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Transport {
	case "ble":
		if err := validateUUID("printer.service_uuid", c.Printer.ServiceUUID); err != nil {
			return err
		}
		if err := validateUUID("printer.char_uuid", c.Printer.CharUUID); err != nil {
			return err
		}
		if c.Printer.ScanTimeout <= 0 {
			return fmt.Errorf("printer.scan_timeout must be > 0")
		}
	case "serial":
		if c.Serial.Port == "" {
			return fmt.Errorf("serial.port must not be empty")
		}
		if c.Serial.Baud <= 0 {
			return fmt.Errorf("serial.baud must be > 0")
		}
	default:
		return fmt.Errorf("transport must be \"ble\" or \"serial\", got %q", c.Transport)
	}

	switch transmit.Mode(c.Transmit.Mode) {
	case transmit.ModeTimed, transmit.ModeQueued:
	default:
		return fmt.Errorf("transmit.mode must be \"timed\" or \"queued\", got %q", c.Transmit.Mode)
	}

	if c.Transmit.MaxChunkSize <= 0 {
		return fmt.Errorf("transmit.max_chunk_size must be > 0")
	}

	if c.Transmit.ChunkDelay < 0 {
		return fmt.Errorf("transmit.chunk_delay must be >= 0")
	}

	if c.Transmit.WriteTimeout < 0 {
		return fmt.Errorf("transmit.write_timeout must be >= 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// DiscoverOptions returns the BLE discovery settings.
func (c *Config) DiscoverOptions() ble.DiscoverOptions {
	return ble.DiscoverOptions{
		ServiceUUID: strings.ToLower(c.Printer.ServiceUUID),
		CharUUID:    strings.ToLower(c.Printer.CharUUID),
		Address:     c.Printer.Address,
		Name:        c.Printer.Name,
		ScanTimeout: c.Printer.ScanTimeout,
	}
}

// SerialPort returns the serial port settings.
func (c *Config) SerialPort() *serial.Config {
	return &serial.Config{
		Device: c.Serial.Port,
		Baud:   c.Serial.Baud,
	}
}

// TransmitOptions returns the scheduler settings.
func (c *Config) TransmitOptions() transmit.Options {
	return transmit.Options{
		Mode:         transmit.Mode(c.Transmit.Mode),
		MaxChunkSize: c.Transmit.MaxChunkSize,
		ChunkDelay:   c.Transmit.ChunkDelay,
		WriteTimeout: c.Transmit.WriteTimeout,
	}
}

// ParseLogLevel maps a log_level value to a slog level. Unknown values
// map to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func validateUUID(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	if _, err := bluetooth.ParseUUID(value); err != nil {
		return fmt.Errorf("%s: invalid UUID %q: %w", field, value, err)
	}
	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
