package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chaz8081/bleprint/internal/ble"
)

var scanned = []ble.Device{
	{Name: "MTP-II", MAC: "AA:BB:CC:DD:EE:01", RSSI: -70},
	{Name: "", MAC: "AA:BB:CC:DD:EE:02", RSSI: -45},
}

func TestPromptSelect(t *testing.T) {
	var out bytes.Buffer
	dev, err := promptSelect(strings.NewReader("2\n"), &out)(scanned)
	if err != nil {
		t.Fatalf("select error = %v", err)
	}
	if dev.MAC != "AA:BB:CC:DD:EE:02" {
		t.Errorf("selected %s, want AA:BB:CC:DD:EE:02", dev.MAC)
	}
	if !strings.Contains(out.String(), "(unnamed)") {
		t.Errorf("listing = %q, want unnamed device shown", out.String())
	}
}

func TestPromptSelectRetriesInvalidChoice(t *testing.T) {
	var out bytes.Buffer
	dev, err := promptSelect(strings.NewReader("9\nabc\n1\n"), &out)(scanned)
	if err != nil {
		t.Fatalf("select error = %v", err)
	}
	if dev.Name != "MTP-II" {
		t.Errorf("selected %q, want MTP-II", dev.Name)
	}
	if got := strings.Count(out.String(), "Invalid choice"); got != 2 {
		t.Errorf("invalid choice messages = %d, want 2", got)
	}
}

func TestPromptSelectCancel(t *testing.T) {
	for _, input := range []string{"q\n", ""} {
		_, err := promptSelect(strings.NewReader(input), &bytes.Buffer{})(scanned)
		if !errors.Is(err, errNoSelection) {
			t.Errorf("input %q: error = %v, want %v", input, err, errNoSelection)
		}
	}
}

func TestPromptSelectSingleDevice(t *testing.T) {
	var out bytes.Buffer
	dev, err := promptSelect(strings.NewReader(""), &out)(scanned[:1])
	if err != nil {
		t.Fatalf("select error = %v", err)
	}
	if dev.MAC != scanned[0].MAC {
		t.Errorf("selected %s, want %s", dev.MAC, scanned[0].MAC)
	}
	if out.Len() != 0 {
		t.Errorf("single device should not prompt, got %q", out.String())
	}
}
