// Package escpos builds ESC/POS command streams for thermal receipt printers.
//
// An Encoder is a builder: chain calls and finish with Encode.
//
//	data, err := escpos.New().
//		Initialize().
//		Align(escpos.AlignCenter).
//		Line("CODE STORE").
//		QRCode("Guest", 1, 2, escpos.LevelQ).
//		Encode()
package escpos

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	pos "github.com/hennedo/escpos"
)

// Command bytes.
const (
	esc = 0x1b
	gs  = 0x1d
	lf  = 0x0a
	cr  = 0x0d

	// Largest payload GS ( k can store for a model 2 QR code.
	maxQRData = 7089
)

// Alignment is the horizontal justification of text.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// ParseAlignment maps "left", "center" and "right" to an Alignment.
func ParseAlignment(s string) (Alignment, error) {
	switch strings.ToLower(s) {
	case "", "left":
		return AlignLeft, nil
	case "center", "centre":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return AlignLeft, fmt.Errorf("escpos: unknown alignment %q", s)
}

// ErrorLevel is the QR code error correction level.
type ErrorLevel byte

const (
	LevelL ErrorLevel = 0x30
	LevelM ErrorLevel = 0x31
	LevelQ ErrorLevel = 0x32
	LevelH ErrorLevel = 0x33
)

// ParseErrorLevel maps "l", "m", "q" and "h" to an ErrorLevel.
func ParseErrorLevel(s string) (ErrorLevel, error) {
	switch strings.ToLower(s) {
	case "l":
		return LevelL, nil
	case "", "m":
		return LevelM, nil
	case "q":
		return LevelQ, nil
	case "h":
		return LevelH, nil
	}
	return 0, fmt.Errorf("escpos: unknown QR error level %q", s)
}

// Encoder accumulates ESC/POS commands on top of a hennedo/escpos printer
// writing into memory. The first invalid argument is remembered and
// reported by Encode; calls after it are ignored.
type Encoder struct {
	buf bytes.Buffer
	p   *pos.Escpos
	err error
}

// New returns an empty Encoder.
func New() *Encoder {
	e := &Encoder{}
	e.p = pos.New(&e.buf)
	return e
}

// Initialize resets the printer to its power-on state (ESC @).
func (e *Encoder) Initialize() *Encoder {
	return e.raw(esc, '@')
}

// Align sets the justification of the following lines (ESC a n).
func (e *Encoder) Align(a Alignment) *Encoder {
	if a < AlignLeft || a > AlignRight {
		return e.fail(fmt.Errorf("escpos: invalid alignment %d", a))
	}
	if e.err == nil {
		e.p.Justify(uint8(a))
	}
	return e
}

// Bold toggles emphasized printing (ESC E n).
func (e *Encoder) Bold(on bool) *Encoder {
	if e.err == nil {
		e.p.Bold(on)
	}
	return e
}

// Text appends s. Characters outside printable ASCII are replaced with '?'.
func (e *Encoder) Text(s string) *Encoder {
	if e.err != nil {
		return e
	}
	if _, err := e.p.Write(sanitize(s)); err != nil {
		return e.fail(fmt.Errorf("escpos: write text: %w", err))
	}
	return e
}

// Newline ends the current line with LF CR.
func (e *Encoder) Newline() *Encoder {
	return e.raw(lf, cr)
}

// Line appends s followed by a newline.
func (e *Encoder) Line(s string) *Encoder {
	return e.Text(s).Newline()
}

// QRCode prints value as a QR code using GS ( k. model is 1 or 2, size is
// the module size in dots (1 to 16).
func (e *Encoder) QRCode(value string, model, size int, level ErrorLevel) *Encoder {
	switch {
	case model != 1 && model != 2:
		return e.fail(fmt.Errorf("escpos: QR model must be 1 or 2, got %d", model))
	case size < 1 || size > 16:
		return e.fail(fmt.Errorf("escpos: QR size must be 1-16, got %d", size))
	case level < LevelL || level > LevelH:
		return e.fail(fmt.Errorf("escpos: invalid QR error level 0x%02x", byte(level)))
	case value == "":
		return e.fail(errors.New("escpos: QR value must not be empty"))
	case len(value) > maxQRData:
		return e.fail(fmt.Errorf("escpos: QR value too long (%d bytes)", len(value)))
	}

	e.Newline()
	if e.err != nil {
		return e
	}
	if _, err := e.p.QRCode(value, model == 2, uint8(size), uint8(level)); err != nil {
		return e.fail(fmt.Errorf("escpos: qr code: %w", err))
	}
	return e
}

// Cut feeds the paper and cuts it (GS V). partial leaves a small hinge.
func (e *Encoder) Cut(partial bool) *Encoder {
	if partial {
		return e.raw(gs, 'V', 0x01)
	}
	if e.err != nil {
		return e
	}
	if _, err := e.p.Cut(); err != nil {
		return e.fail(fmt.Errorf("escpos: cut: %w", err))
	}
	return e
}

// Encode returns a copy of the accumulated commands, or the first error.
func (e *Encoder) Encode() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if err := e.p.Print(); err != nil {
		return nil, fmt.Errorf("escpos: flush: %w", err)
	}
	return bytes.Clone(e.buf.Bytes()), nil
}

func (e *Encoder) raw(b ...byte) *Encoder {
	if e.err != nil {
		return e
	}
	if _, err := e.p.WriteRaw(b); err != nil {
		return e.fail(fmt.Errorf("escpos: write: %w", err))
	}
	return e
}

func (e *Encoder) fail(err error) *Encoder {
	if e.err == nil {
		e.err = err
	}
	return e
}

func sanitize(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			out = append(out, byte(r))
		} else {
			out = append(out, '?')
		}
	}
	return string(out)
}
