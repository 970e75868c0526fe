// Package canvas implements the terminal output backends: the common
// cursor-motion vocabulary (base.go) and four concrete encoders --
// unicode half/quarter-block, Kitty graphics, iTerm2/WezTerm graphics,
// and sixel.
package canvas

import (
	"fmt"

	"github.com/hzeller/timg-sub000/pixel"
	"github.com/hzeller/timg-sub000/sequencer"
	"github.com/hzeller/timg-sub000/tclock"
)

const (
	screenClear  = "\033c"
	cursorOnSeq  = "\033[?25h"
	cursorOffSeq = "\033[?25l"
)

// Canvas is the common capability set every backend implements: convert
// a pixel delta into the backend's cell geometry, send a framebuffer,
// and release any resources held across frames.
type Canvas interface {
	// CellHeightForPixels converts a (non-positive, upward) pixel delta
	// into the number of terminal rows it spans for this backend's cell
	// geometry.
	CellHeightForPixels(pixels int) int
	// Send encodes and enqueues framebuffer fb at horizontal offset x,
	// preceded by a cursor motion of dy rows (negative: up).
	Send(x, dy int, fb *pixel.Framebuffer, seqType sequencer.SeqType, endOfFrame tclock.Duration) error
	// Destroy releases any backing buffers held by the canvas. It does
	// not close the underlying Sequencer.
	Destroy()

	// AddPrefixNextSend stashes bytes (typically a trimmed title line)
	// to be prepended, verbatim, ahead of the very next Send call's own
	// cursor-motion prefix.
	AddPrefixNextSend(buf []byte)
	// MoveCursorDY moves the cursor by rows terminal rows directly,
	// independent of any Send.
	MoveCursorDY(rows int)
	// MoveCursorDX moves the cursor by cols terminal columns directly,
	// independent of any Send.
	MoveCursorDX(cols int)
}

// Base holds the state and cursor-motion helpers shared by every
// concrete canvas: a handle to the sequencer that owns the actual
// write path.
type Base struct {
	Seq *sequencer.Sequencer

	pendingPrefix []byte
}

// AddPrefixNextSend stashes bytes (typically a trimmed title line) to
// be prepended, verbatim, to the very next Send call's output -- ahead
// of that Send's own cursor-motion prefix. Used by the renderer to
// print a title line above each image.
func (b *Base) AddPrefixNextSend(buf []byte) {
	b.pendingPrefix = append(b.pendingPrefix[:0:0], buf...)
}

// TakePrefix returns and clears any prefix queued by AddPrefixNextSend.
func (b *Base) TakePrefix() []byte {
	p := b.pendingPrefix
	b.pendingPrefix = nil
	return p
}

// ClearScreen resets the whole terminal display.
func (b *Base) ClearScreen() {
	b.Seq.EnqueueBuffer([]byte(screenClear), sequencer.ControlWrite, tclock.Duration{})
}

// CursorOn/CursorOff toggle cursor visibility.
func (b *Base) CursorOn() {
	b.Seq.EnqueueBuffer([]byte(cursorOnSeq), sequencer.ControlWrite, tclock.Duration{})
}

func (b *Base) CursorOff() {
	b.Seq.EnqueueBuffer([]byte(cursorOffSeq), sequencer.ControlWrite, tclock.Duration{})
}

// MoveCursorDY moves the cursor by the given number of terminal rows;
// negative moves up, positive moves down, zero is a no-op.
func (b *Base) MoveCursorDY(rows int) {
	if seq := CursorDYSequence(rows); seq != "" {
		b.Seq.EnqueueBuffer([]byte(seq), sequencer.ControlWrite, tclock.Duration{})
	}
}

// MoveCursorDX moves the cursor by the given number of terminal
// columns; negative moves left, positive moves right, zero is a no-op.
func (b *Base) MoveCursorDX(cols int) {
	if seq := CursorDXSequence(cols); seq != "" {
		b.Seq.EnqueueBuffer([]byte(seq), sequencer.ControlWrite, tclock.Duration{})
	}
}

// CursorDYSequence returns the CSI sequence to move the cursor by rows
// terminal rows (negative: up, positive: down), or "" if rows == 0.
func CursorDYSequence(rows int) string {
	switch {
	case rows < 0:
		return fmt.Sprintf("\033[%dA", -rows)
	case rows > 0:
		return fmt.Sprintf("\033[%dB", rows)
	default:
		return ""
	}
}

// CursorDXSequence returns the CSI sequence to move the cursor by cols
// terminal columns (negative: left, positive: right), or "" if cols==0.
func CursorDXSequence(cols int) string {
	switch {
	case cols < 0:
		return fmt.Sprintf("\033[%dD", -cols)
	case cols > 0:
		return fmt.Sprintf("\033[%dC", cols)
	default:
		return ""
	}
}

// CellHeightForPixels converts a pixel count spanning pixelsPerCellRow
// pixels per cell row into whole cell rows, rounding the magnitude up.
// pixels is expected to be <= 0 (an upward cursor motion); the sign is
// preserved. Grounded on unicode-block-canvas.h's
// cell_height_for_pixels (pixels-1)/2 for the pixelsPerCellRow==2 case,
// generalized to an arbitrary cell pixel height for the graphics
// protocol backends.
func CellHeightForPixels(pixels, pixelsPerCellRow int) int {
	if pixels >= 0 {
		return 0
	}
	if pixelsPerCellRow < 1 {
		pixelsPerCellRow = 1
	}
	mag := -pixels
	return -((mag + pixelsPerCellRow - 1) / pixelsPerCellRow)
}

// SendPrefix assembles a cursor-up/right prefix for a Send(x, dy, ...)
// call: up by cellHeight(dy) rows if dy<0, then right x columns if
// x>0. No canvas in this package calls it; each backend's Send builds
// its own prefix.
func SendPrefix(x, dy int, cellHeight func(int) int) string {
	var prefix string
	if dy < 0 {
		prefix += CursorDYSequence(cellHeight(dy))
	}
	if x > 0 {
		prefix += CursorDXSequence(x)
	}
	return prefix
}
