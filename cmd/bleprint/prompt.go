package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/chaz8081/bleprint/internal/ble"
)

var errNoSelection = errors.New("no printer selected")

// isInteractive reports whether both stdin and stdout are terminals.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// promptSelect returns a ble.SelectFunc that asks the user to pick one of
// the scanned printers. A single result is picked without asking.
func promptSelect(in io.Reader, out io.Writer) ble.SelectFunc {
	return func(devices []ble.Device) (ble.Device, error) {
		if len(devices) == 1 {
			return devices[0], nil
		}
		printDevices(out, devices)

		scanner := bufio.NewScanner(in)
		for {
			fmt.Fprintf(out, "Select printer [1-%d, q to cancel]: ", len(devices))
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return ble.Device{}, err
				}
				return ble.Device{}, errNoSelection
			}
			answer := strings.TrimSpace(scanner.Text())
			if answer == "q" {
				return ble.Device{}, errNoSelection
			}
			n, err := strconv.Atoi(answer)
			if err != nil || n < 1 || n > len(devices) {
				fmt.Fprintf(out, "Invalid choice %q\n", answer)
				continue
			}
			return devices[n-1], nil
		}
	}
}

func printDevices(out io.Writer, devices []ble.Device) {
	for i, dev := range devices {
		name := dev.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(out, "  %d) %-20s %s  %d dBm\n", i+1, name, dev.MAC, dev.RSSI)
	}
}
