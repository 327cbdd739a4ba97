// Command test-print is a manual test for chunked transmission.
// It sends a synthetic ESC/POS payload of the given size to the configured
// printer and prints the per-chunk report.
//
// Usage:
//
//	go run ./cmd/test-print [--size 300] [--mode timed|queued] [--config path]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/chaz8081/bleprint/internal/ble"
	"github.com/chaz8081/bleprint/internal/config"
	"github.com/chaz8081/bleprint/internal/escpos"
	"github.com/chaz8081/bleprint/internal/printer"
	"github.com/chaz8081/bleprint/internal/serial"
	"github.com/chaz8081/bleprint/internal/transmit"
)

func main() {
	size := flag.Int("size", 300, "approximate payload size in bytes")
	mode := flag.String("mode", "", "transmit mode: timed or queued (default: from config)")
	configPath := flag.String("config", config.DefaultConfigPath(), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Using defaults (%v)\n", err)
		cfg = config.Default()
	}
	if *mode != "" {
		cfg.Transmit.Mode = *mode
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	payload, err := testPayload(*size)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	sched, err := transmit.NewScheduler(cfg.TransmitOptions())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var disc printer.Discoverer
	if cfg.Transport == "serial" {
		disc = serial.NewDiscoverer(cfg.SerialPort())
	} else {
		disc = ble.NewDiscoverer(ble.NewBluetoothAdapter(), cfg.DiscoverOptions())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Sending %d bytes over %s (%s mode)...\n", len(payload), cfg.Transport, cfg.Transmit.Mode)
	report, err := printer.New(cfg.Transport, nil, disc, sched).PrintRaw(ctx, payload)
	if report != nil {
		for _, c := range report.Chunks {
			status := "ok"
			if c.Err != nil {
				status = c.Err.Error()
			}
			fmt.Printf("  chunk %d: %3d bytes @ %6s  %s\n", c.Index, c.Size, c.Offset.Round(time.Millisecond), status)
		}
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}

// testPayload builds numbered text lines until the payload reaches size.
func testPayload(size int) ([]byte, error) {
	enc := escpos.New().Initialize()
	var n int
	for b := 2; b < size; n++ {
		line := fmt.Sprintf("%03d %s", n, strings.Repeat("=", 24))
		enc.Line(line)
		b += len(line) + 2
	}
	return enc.Cut(false).Encode()
}
