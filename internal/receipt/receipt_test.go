package receipt

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chaz8081/bleprint/internal/transmit"
)

var testTime = time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

func TestDemoEncodes(t *testing.T) {
	data, err := Encoder{}.Encode(Demo(testTime))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if bytes.Contains(data, []byte{0x1b, '@'}) {
		t.Error("demo payload should not reset the printer")
	}
	for _, want := range []string{
		"CODE STORE",
		"No Trx: 1234111\n\r",
		"Kasir   : Zeta\n\r",
		"Customer: Guest\n\r",
		"Tanggal   : 14:05:00 GMT+0000 (UTC)\n\r",
		"Jam       : 14\n\r",
		"TOTAL     : 1111111\n\r",
		"Green Tea",
		"Nomor Antrian\n\r1\n\r",
		"Untuk cek pesanan kamu, bisa melakukan scan disini\n\r",
		"Terima Kasih",
	} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("payload missing %q", want)
		}
	}
	// The demo receipt is larger than one BLE write.
	if n := transmit.Count(len(data), transmit.DefaultMaxChunkSize); n < 2 {
		t.Errorf("demo receipt fits in %d chunk(s), want several", n)
	}
}

func TestRenderOmitsEmptySections(t *testing.T) {
	r := &Receipt{Store: "S", Time: testTime}
	data, err := Encoder{}.Encode(r)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if bytes.Contains(data, []byte("Nomor Antrian")) {
		t.Error("payload should not contain a queue number section")
	}
	if bytes.Contains(data, []byte{0x1d, '(', 'k'}) {
		t.Error("payload should not contain a QR code")
	}
	if bytes.Contains(data, []byte{0x1d, 'V'}) {
		t.Error("payload should not contain a cut")
	}
}

func TestRenderCut(t *testing.T) {
	r := Demo(testTime)
	r.Cut = true
	data, err := Encoder{}.Encode(r)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.HasSuffix(data, []byte{0x1d, 'V', 1}) {
		t.Error("payload should end with a partial cut")
	}
}

func TestRenderReset(t *testing.T) {
	r := &Receipt{Store: "S", Time: testTime, Reset: true}
	data, err := Encoder{}.Encode(r)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	reset := bytes.Index(data, []byte{0x1b, '@'})
	store := bytes.Index(data, []byte("S\n\r"))
	if reset < 0 || store < reset {
		t.Errorf("payload = % x, want ESC @ before the store name", data)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
store: TEA HOUSE
transaction_no: "42"
cashier: Ana
customer: Bo
time: 2024-03-09T14:05:00Z
total: 25000
items:
  - qty: 2
    name: Oolong
    total: "25.000"
qr:
  value: order-42
footer: See you
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "receipt.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test receipt: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Store != "TEA HOUSE" || r.Cashier != "Ana" || r.Total != 25000 {
		t.Errorf("Load() = %+v", r)
	}
	if len(r.Items) != 1 || r.Items[0].Qty != 2 || r.Items[0].Name != "Oolong" {
		t.Errorf("Items = %+v", r.Items)
	}
	if !r.Time.Equal(testTime) {
		t.Errorf("Time = %v, want %v", r.Time, testTime)
	}
	// QR fields not in the file keep their defaults.
	if r.QR.Model != 2 || r.QR.Size != 4 || r.QR.Level != "m" {
		t.Errorf("QR = %+v, want model 2 size 4 level m", r.QR)
	}
	if _, err := (Encoder{}).Encode(r); err != nil {
		t.Errorf("Encode() error = %v", err)
	}
}

func TestLoadDefaultsTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.yaml")
	if err := os.WriteFile(path, []byte("store: S\n"), 0644); err != nil {
		t.Fatalf("failed to write test receipt: %v", err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Time.IsZero() {
		t.Error("Time should default to now")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/receipt.yaml"); err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.yaml")
	if err := os.WriteFile(path, []byte("items: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test receipt: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Receipt)
		wantErr string
	}{
		{name: "valid demo", modify: func(r *Receipt) {}},
		{name: "empty store", modify: func(r *Receipt) { r.Store = "" }, wantErr: "store"},
		{name: "zero qty", modify: func(r *Receipt) { r.Items[0].Qty = 0 }, wantErr: "qty"},
		{name: "empty item name", modify: func(r *Receipt) { r.Items[1].Name = "" }, wantErr: "name"},
		{name: "bad qr level", modify: func(r *Receipt) { r.QR.Level = "z" }, wantErr: "qr.level"},
		{name: "bad qr level without qr", modify: func(r *Receipt) { r.QR = QR{Level: "z"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Demo(testTime)
			tt.modify(r)
			err := r.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeInvalidQR(t *testing.T) {
	r := Demo(testTime)
	r.QR.Size = 20
	if _, err := (Encoder{}).Encode(r); err == nil {
		t.Error("Encode() should fail for an out-of-range QR size")
	}
}
