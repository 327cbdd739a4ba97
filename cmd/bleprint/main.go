package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/bleprint/internal/ble"
	"github.com/chaz8081/bleprint/internal/config"
	"github.com/chaz8081/bleprint/internal/printer"
	"github.com/chaz8081/bleprint/internal/receipt"
	"github.com/chaz8081/bleprint/internal/serial"
	"github.com/chaz8081/bleprint/internal/transmit"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/bleprint/config.yaml)")
	receiptPath := flag.String("receipt", "", "path to a receipt YAML file (default: receipt_path, then the demo receipt)")
	scan := flag.Bool("scan", false, "list nearby BLE printers and exit")
	initConfig := flag.Bool("init", false, "write the default config file and exit")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fatal("config", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("config", err)
	}

	if err := cfg.Validate(); err != nil {
		fatal("config validation", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	printBanner(cfg)

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *scan {
		if err := listPrinters(ctx, cfg); err != nil {
			stop()
			fatal("scan", err)
		}
		return
	}

	if *receiptPath == "" {
		*receiptPath = cfg.ReceiptPath
	}
	r, err := loadReceipt(*receiptPath)
	if err != nil {
		stop()
		fatal("receipt", err)
	}

	sched, err := transmit.NewScheduler(cfg.TransmitOptions())
	if err != nil {
		stop()
		fatal("transmit", err)
	}

	p := printer.New(cfg.Transport, receipt.Encoder{}, newDiscoverer(cfg), sched)
	report, err := p.Print(ctx, r)
	if report != nil {
		printReport(report)
	}
	if err != nil {
		var discErr *printer.DiscoveryError
		if errors.As(err, &discErr) && errors.Is(err, ble.ErrAdapterUnavailable) {
			slog.Error("Bluetooth is unavailable; enable it or set transport: serial")
		}
		stop()
		fatal("print", err)
	}
	fmt.Println("Done!")
}

// fatal logs err and exits non-zero.
func fatal(stage string, err error) {
	slog.Error("bleprint failed", "stage", stage, "error", err)
	os.Exit(1)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		slog.Info("Config loaded", "path", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	slog.Info("No config file found, using defaults")
	return config.Default(), nil
}

// loadReceipt reads the receipt at path, or builds the demo receipt.
func loadReceipt(path string) (*receipt.Receipt, error) {
	if path == "" {
		slog.Info("No receipt given, printing the demo receipt")
		return receipt.Demo(time.Now()), nil
	}
	return receipt.Load(path)
}

// newDiscoverer builds the printer resolver for the configured transport.
func newDiscoverer(cfg *config.Config) printer.Discoverer {
	if cfg.Transport == "serial" {
		return serial.NewDiscoverer(cfg.SerialPort())
	}
	opts := cfg.DiscoverOptions()
	if opts.Address == "" && isInteractive() {
		opts.Select = promptSelect(os.Stdin, os.Stdout)
	}
	return ble.NewDiscoverer(ble.NewBluetoothAdapter(), opts)
}

// listPrinters scans for BLE printers and prints them.
func listPrinters(ctx context.Context, cfg *config.Config) error {
	if cfg.Transport != "ble" {
		return fmt.Errorf("scan needs transport ble, got %q", cfg.Transport)
	}
	d := ble.NewDiscoverer(ble.NewBluetoothAdapter(), cfg.DiscoverOptions())
	fmt.Printf("Scanning for %s...\n", cfg.Printer.ScanTimeout)
	devices, err := d.Scan(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No printers found.")
		return nil
	}
	printDevices(os.Stdout, devices)
	return nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== bleprint ===")
	fmt.Printf("  Transport: %s\n", cfg.Transport)
	if cfg.Transport == "serial" {
		fmt.Printf("  Port:      %s @ %d baud\n", cfg.Serial.Port, cfg.Serial.Baud)
	} else {
		target := cfg.Printer.Address
		if target == "" {
			target = "scan"
			if cfg.Printer.Name != "" {
				target += " for " + cfg.Printer.Name
			}
		}
		fmt.Printf("  Printer:   %s\n", target)
	}
	fmt.Printf("  Transmit:  %s, %d-byte chunks every %s\n",
		cfg.Transmit.Mode, cfg.Transmit.MaxChunkSize, cfg.Transmit.ChunkDelay)
	fmt.Printf("  Log:       %s\n", cfg.LogLevel)
	fmt.Println("================")
}

// printReport displays the per-chunk outcome of a transmission.
func printReport(r *transmit.Report) {
	fmt.Printf("Sent %d/%d bytes in %d chunks (%s mode, %s)\n",
		r.Sent(), r.PayloadSize, len(r.Chunks), r.Mode, r.Elapsed.Round(time.Millisecond))
	for _, c := range r.Failed() {
		fmt.Printf("  chunk %d (%d bytes @ %s): %v\n", c.Index, c.Size, c.Offset.Round(time.Millisecond), c.Err)
	}
}
