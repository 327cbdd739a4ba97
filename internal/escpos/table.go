package escpos

import (
	"fmt"
	"strings"
)

// VerticalAlign places a cell inside a row taller than the cell.
type VerticalAlign int

const (
	VerticalTop VerticalAlign = iota
	VerticalBottom
)

// Column describes one table column. Width excludes the margins.
type Column struct {
	Width         int
	Align         Alignment
	VerticalAlign VerticalAlign
	MarginLeft    int
	MarginRight   int
}

// Table prints rows laid out in fixed-width columns. Cells wider than their
// column are word-wrapped onto extra lines.
func (e *Encoder) Table(columns []Column, rows [][]string) *Encoder {
	if e.err != nil {
		return e
	}
	for i, c := range columns {
		if c.Width <= 0 || c.MarginLeft < 0 || c.MarginRight < 0 {
			return e.fail(fmt.Errorf("escpos: invalid table column %d: %+v", i, c))
		}
	}
	for i, row := range rows {
		if len(row) > len(columns) {
			return e.fail(fmt.Errorf("escpos: table row %d has %d cells for %d columns", i, len(row), len(columns)))
		}
	}

	for _, row := range rows {
		for _, line := range layoutRow(columns, row) {
			e.Line(line)
		}
	}
	return e
}

// layoutRow renders one table row into one or more text lines.
func layoutRow(columns []Column, row []string) []string {
	cells := make([][]string, len(columns))
	height := 1
	for i, c := range columns {
		var text string
		if i < len(row) {
			text = row[i]
		}
		cells[i] = wrap(string(sanitize(text)), c.Width)
		height = max(height, len(cells[i]))
	}

	lines := make([]string, height)
	for n := range lines {
		var b strings.Builder
		for i, c := range columns {
			cell := cells[i]
			idx := n
			if c.VerticalAlign == VerticalBottom {
				idx = n - (height - len(cell))
			}
			var text string
			if idx >= 0 && idx < len(cell) {
				text = cell[idx]
			}
			b.WriteString(strings.Repeat(" ", c.MarginLeft))
			b.WriteString(pad(text, c.Width, c.Align))
			b.WriteString(strings.Repeat(" ", c.MarginRight))
		}
		lines[n] = strings.TrimRight(b.String(), " ")
	}
	return lines
}

// wrap breaks s into lines of at most width bytes, splitting on spaces and
// hard-splitting words that are longer than width.
func wrap(s string, width int) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(s) {
		for len(word) > width {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case word == "":
		case cur == "":
			cur = word
		case len(cur)+1+len(word) <= width:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" || len(lines) == 0 {
		lines = append(lines, cur)
	}
	return lines
}

func pad(s string, width int, a Alignment) string {
	gap := width - len(s)
	if gap <= 0 {
		return s
	}
	switch a {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}
