// Package render implements the grid-layout strategies that sit between
// an image source's decoded frames and a canvas: single-column (direct
// passthrough) and multi-column (tiled positioning with row wrapping),
// plus the title-line trimming/centering shared by both.
package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TrimTitle fits title into width display columns: if it is too wide,
// its head is replaced with "..." so the tail still fits; otherwise,
// when centered is set, leading spaces are prepended to center it. A
// trailing newline is always appended, since the caller always prints
// this as a line of its own. Grounded on Renderer::TrimTitle, with rune
// width (not byte length) used to measure wide (CJK) glyphs correctly.
func TrimTitle(title string, width int, centered bool) string {
	w := runewidth.StringWidth(title)
	var result string
	switch {
	case w > width:
		result = trimHeadToWidth(title, width)
	case centered:
		startSpaces := (width - w) / 2
		if startSpaces > 0 {
			result = strings.Repeat(" ", startSpaces) + title
		} else {
			result = title
		}
	default:
		result = title
	}
	return result + "\n"
}

// trimHeadToWidth drops runes from the head of title until "..." plus
// the remaining tail fits within width display columns.
func trimHeadToWidth(title string, width int) string {
	const ellipsis = "..."
	budget := width - runewidth.StringWidth(ellipsis)
	if budget <= 0 {
		return runewidth.Truncate(ellipsis, width, "")
	}

	runes := []rune(title)
	tailWidth := 0
	cut := len(runes)
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if tailWidth+rw > budget {
			break
		}
		tailWidth += rw
		cut = i
	}
	return ellipsis + string(runes[cut:])
}
