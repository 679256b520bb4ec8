package main

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// overlayCenter draws box centered over the base view.
func overlayCenter(base, box string, width, height int) string {
	rows := viewLines(box)
	x := (width - widestLine(rows)) / 2
	y := (height - len(rows)) / 2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return compositeAt(base, box, x, y, width, height)
}

// compositeAt splices box into base at cell position (x, y), row by row.
// Each affected base row is cut into a left part, the box row, and whatever
// of the original row stays visible on the right; widths are measured in
// terminal cells so ANSI sequences pass through intact.
func compositeAt(base, box string, x, y, width, height int) string {
	rows := viewLines(base)
	boxRows := viewLines(box)
	boxWidth := widestLine(boxRows)

	for i, boxRow := range boxRows {
		r := y + i
		if r < 0 || r >= len(rows) || r >= height {
			continue
		}
		full := padToWidth(rows[r], width)

		left := ansi.Truncate(full, x, "")
		if short := x - ansi.StringWidth(left); short > 0 {
			left += strings.Repeat(" ", short)
		}

		middle := padToWidth(boxRow, boxWidth)

		right := ""
		if width > 0 {
			edge := x + ansi.StringWidth(middle)
			right = ansi.TruncateLeft(full, edge, "")
			if gap := width - edge - ansi.StringWidth(right); gap > 0 {
				right = strings.Repeat(" ", gap) + right
			}
		}

		rows[r] = left + middle + right
	}
	return strings.Join(rows, "\n")
}

// viewLines splits rendered output on newlines; never empty.
func viewLines(s string) []string {
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

func widestLine(rows []string) int {
	widest := 0
	for _, row := range rows {
		if w := ansi.StringWidth(row); w > widest {
			widest = w
		}
	}
	return widest
}

// padToWidth right-pads s with spaces up to width terminal cells.
func padToWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	if short := width - ansi.StringWidth(s); short > 0 {
		return s + strings.Repeat(" ", short)
	}
	return s
}

// clip cuts s down to width cells, marking the cut with an ellipsis.
func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
