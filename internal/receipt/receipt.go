// Package receipt holds the retail receipt model and renders it to ESC/POS.
package receipt

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/bleprint/internal/escpos"
)

// Item is one line of the item table.
type Item struct {
	Qty   int    `yaml:"qty"`
	Name  string `yaml:"name"`
	Total string `yaml:"total"`
}

// QR is the code printed at the bottom of the receipt.
type QR struct {
	Hint  string `yaml:"hint"`  // line printed above the code
	Value string `yaml:"value"` // encoded content
	Model int    `yaml:"model"`
	Size  int    `yaml:"size"`
	Level string `yaml:"level"` // l, m, q or h
}

// Receipt is everything printed on one receipt.
type Receipt struct {
	Store         string    `yaml:"store"`
	URL           string    `yaml:"url"`
	TransactionNo string    `yaml:"transaction_no"`
	Cashier       string    `yaml:"cashier"`
	Customer      string    `yaml:"customer"`
	Time          time.Time `yaml:"time"`
	Subtotal      int64     `yaml:"subtotal"`
	Service       int64     `yaml:"service"`
	Tax           int64     `yaml:"tax"`
	Total         int64     `yaml:"total"`
	Items         []Item    `yaml:"items"`
	QueueNumber   string    `yaml:"queue_number"`
	QR            QR        `yaml:"qr"`
	Footer        string    `yaml:"footer"`
	Cut           bool      `yaml:"cut"`
	Reset         bool      `yaml:"reset"` // send ESC @ before the receipt
}

// Demo returns the sample receipt printed when no receipt file is given.
func Demo(now time.Time) *Receipt {
	return &Receipt{
		Store:         "CODE STORE",
		URL:           "https://codesandbox.io/",
		TransactionNo: "1234111",
		Cashier:       "Zeta",
		Customer:      "Guest",
		Time:          now,
		Subtotal:      111111,
		Service:       1,
		Tax:           12,
		Total:         1111111,
		Items: []Item{
			{Qty: 1, Name: "Green Tea", Total: "11.000"},
			{Qty: 1, Name: "White Tea", Total: "13.000"},
			{Qty: 1, Name: "Blue Tea", Total: "12.000"},
		},
		QueueNumber: "1",
		QR: QR{
			Hint:  "Untuk cek pesanan kamu, bisa melakukan scan disini",
			Value: "Guest",
			Model: 1,
			Size:  2,
			Level: "q",
		},
		Footer: "Terima Kasih",
	}
}

// Load reads a receipt from a YAML file. A missing time means now.
func Load(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading receipt file: %w", err)
	}

	r := &Receipt{QR: QR{Model: 2, Size: 4, Level: "m"}}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing receipt file: %w", err)
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	return r, r.Validate()
}

// Validate checks the receipt for values the printer cannot render.
func (r *Receipt) Validate() error {
	if r.Store == "" {
		return errors.New("receipt: store must not be empty")
	}
	for i, it := range r.Items {
		if it.Qty <= 0 {
			return fmt.Errorf("receipt: item %d (%s): qty must be > 0", i, it.Name)
		}
		if it.Name == "" {
			return fmt.Errorf("receipt: item %d: name must not be empty", i)
		}
	}
	if r.QR.Value != "" {
		if _, err := escpos.ParseErrorLevel(r.QR.Level); err != nil {
			return fmt.Errorf("receipt: qr.level: %w", err)
		}
	}
	return nil
}

// Item table layout for a 32-column (58mm) printer.
var itemColumns = []escpos.Column{
	{Width: 5, MarginRight: 2, Align: escpos.AlignLeft},
	{Width: 10, MarginRight: 2, Align: escpos.AlignCenter},
	{Width: 10, Align: escpos.AlignRight},
}

var itemHeader = []string{"QTY", "Item", "Total"}

// Render appends the receipt to enc.
func (r *Receipt) Render(enc *escpos.Encoder) *escpos.Encoder {
	if r.Reset {
		enc.Initialize()
	}
	enc.Align(escpos.AlignCenter).
		Line(r.Store).
		Align(escpos.AlignLeft)
	if r.URL != "" {
		enc.Line(r.URL)
	}
	enc.Line("No Trx: " + r.TransactionNo).
		Line("Kasir   : " + r.Cashier).
		Line("Customer: " + r.Customer).
		Line("Tanggal   : " + r.Time.Format("15:04:05 GMT-0700 (MST)")).
		Line("Jam       : " + strconv.Itoa(r.Time.Hour())).
		Line("Sub total : " + strconv.FormatInt(r.Subtotal, 10)).
		Line("Service   : " + strconv.FormatInt(r.Service, 10)).
		Line("Tax       : " + strconv.FormatInt(r.Tax, 10)).
		Line("TOTAL     : " + strconv.FormatInt(r.Total, 10)).
		Newline()

	rows := [][]string{itemHeader}
	for _, it := range r.Items {
		rows = append(rows, []string{strconv.Itoa(it.Qty), it.Name, it.Total})
	}
	enc.Table(itemColumns, rows).Newline()

	if r.QueueNumber != "" {
		enc.Newline().
			Line("Nomor Antrian").
			Line(r.QueueNumber).
			Newline()
	}
	if r.QR.Value != "" {
		if r.QR.Hint != "" {
			enc.Line(r.QR.Hint)
		}
		level, _ := escpos.ParseErrorLevel(r.QR.Level)
		enc.QRCode(r.QR.Value, r.QR.Model, r.QR.Size, level)
	}
	if r.Footer != "" {
		enc.Newline().Line(r.Footer).Newline()
	}
	if r.Cut {
		enc.Cut(true)
	}
	return enc
}

// Encoder turns receipts into ESC/POS payloads.
type Encoder struct{}

// Encode validates r and renders it into a fresh command stream.
func (Encoder) Encode(r *Receipt) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r.Render(escpos.New()).Encode()
}
