// Package printer implements the print operation: render a receipt, resolve
// the printer, transmit the payload in chunks and report the outcome.
package printer

//go:generate mockgen -source=printer.go -destination=mock_printer_test.go -package=printer
//go:generate mockgen -destination=mock_link_test.go -package=printer github.com/chaz8081/bleprint/internal/transmit Link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaz8081/bleprint/internal/receipt"
	"github.com/chaz8081/bleprint/internal/transmit"
)

// Encoder renders a receipt into a printer command stream.
type Encoder interface {
	Encode(r *receipt.Receipt) ([]byte, error)
}

// Discoverer resolves the printer into a writable link.
type Discoverer interface {
	Discover(ctx context.Context) (transmit.Link, error)
}

// DiscoveryError reports that no printer link could be established. No
// bytes have been sent when it is returned.
type DiscoveryError struct {
	Transport string
	Err       error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("printer: discover %s printer: %v", e.Transport, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Printer prints receipts on one transport.
type Printer struct {
	transport  string
	encoder    Encoder
	discoverer Discoverer
	scheduler  *transmit.Scheduler
}

// New creates a Printer. transport names the discoverer in logs and errors.
func New(transport string, enc Encoder, disc Discoverer, sched *transmit.Scheduler) *Printer {
	return &Printer{
		transport:  transport,
		encoder:    enc,
		discoverer: disc,
		scheduler:  sched,
	}
}

// Print encodes r and sends it to the printer.
func (p *Printer) Print(ctx context.Context, r *receipt.Receipt) (*transmit.Report, error) {
	payload, err := p.encoder.Encode(r)
	if err != nil {
		return nil, fmt.Errorf("printer: encode receipt: %w", err)
	}
	slog.Debug("[PRINT] receipt encoded", "bytes", len(payload))
	return p.PrintRaw(ctx, payload)
}

// PrintRaw sends an already encoded payload to the printer and waits for
// every chunk to be written, failed or skipped. The returned report is
// non-nil whenever transmission started.
func (p *Printer) PrintRaw(ctx context.Context, payload []byte) (*transmit.Report, error) {
	link, err := p.discoverer.Discover(ctx)
	if err != nil {
		return nil, &DiscoveryError{Transport: p.transport, Err: err}
	}
	defer func() {
		if err := link.Close(); err != nil {
			slog.Warn("[PRINT] failed to close printer link", "transport", p.transport, "error", err)
		}
	}()

	tx, err := p.scheduler.Send(ctx, link, payload)
	if err != nil {
		return tx.Report(), fmt.Errorf("printer: send: %w", err)
	}

	report, err := tx.Wait(ctx)
	if ctx.Err() != nil {
		// Let writes already in flight finish before the link is closed.
		<-tx.Done()
		report = tx.Report()
		err = nil
		if rerr := report.Err(); rerr != nil {
			err = errors.Join(ctx.Err(), rerr)
		}
	}
	if err != nil {
		slog.Warn("[PRINT] transmission incomplete",
			"transport", p.transport,
			"sent", report.Sent(),
			"bytes", report.PayloadSize,
			"failed", len(report.Failed()),
			"chunks", len(report.Chunks))
		return report, fmt.Errorf("printer: send: %w", err)
	}

	slog.Info("[PRINT] receipt sent",
		"transport", p.transport,
		"bytes", report.PayloadSize,
		"chunks", len(report.Chunks),
		"elapsed", report.Elapsed)
	return report, nil
}
