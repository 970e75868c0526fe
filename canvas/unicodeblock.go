package canvas

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/hzeller/timg-sub000/pixel"
	"github.com/hzeller/timg-sub000/sequencer"
	"github.com/hzeller/timg-sub000/tclock"
)

const (
	pixelUpperHalfBlock = "▀" // ▀
	pixelLowerHalfBlock = "▄" // ▄

	fgColorPrefix = "38;2;"
	bgColorPrefix = "48;2;"
)

// transparentThreshold matches is_transparent(rgba_t) in
// unicode-block-canvas.cc: alpha below this is treated as "no
// background", not merely "partially see-through".
const transparentThreshold = 0x60

func isTransparent(c pixel.Color) bool { return c.A < transparentThreshold }

// doubleRowColor is the per-cell (fg,bg) pair the differential-redraw
// backing buffer remembers between Send calls.
type doubleRowColor struct {
	fg, bg pixel.Color
}

// UnicodeBlockCanvas renders a framebuffer using half-block glyphs (one
// glyph encodes two vertically-stacked pixels as foreground/background
// color), with differential redraw and adjacent-cell color coalescing.
// Grounded on src/unicode-block-canvas.{h,cc}.
type UnicodeBlockCanvas struct {
	Base

	useUpperHalfBlock bool
	use256Color       bool

	backing          []doubleRowColor
	lastHeight       int
	lastXIndent      int
	haveLastGeometry bool
}

// UseUpperBlockFromEnv mirrors the original's environment-variable
// escape hatch for terminals/fonts where the upper block glyph renders
// better (TIMG_USE_UPPER_BLOCK=1).
func UseUpperBlockFromEnv() bool {
	v, _ := strconv.ParseBool(os.Getenv("TIMG_USE_UPPER_BLOCK"))
	return v
}

// NewUnicodeBlockCanvas constructs a half-block canvas writing through
// seq. useUpperHalfBlock selects ▀ over the default ▄; use256Color
// quantizes colors onto the xterm 256-color palette instead of 24-bit
// truecolor escapes.
func NewUnicodeBlockCanvas(seq *sequencer.Sequencer, useUpperHalfBlock, use256Color bool) *UnicodeBlockCanvas {
	return &UnicodeBlockCanvas{
		Base:              Base{Seq: seq},
		useUpperHalfBlock: useUpperHalfBlock,
		use256Color:       use256Color,
	}
}

// CellHeightForPixels implements Canvas: one cell row holds two pixel rows.
func (c *UnicodeBlockCanvas) CellHeightForPixels(pixels int) int {
	return CellHeightForPixels(pixels, 2)
}

func (c *UnicodeBlockCanvas) Destroy() {
	c.backing = nil
}

func writeColor(buf *bytes.Buffer, isFg bool, col pixel.Color, use256 bool) {
	switch {
	case use256 && isFg:
		buf.WriteString("38;5;")
		fmt.Fprintf(buf, "%d;", col.As256TermColor())
	case use256 && !isFg:
		buf.WriteString("48;5;")
		fmt.Fprintf(buf, "%d;", col.As256TermColor())
	case isFg:
		buf.WriteString(fgColorPrefix)
		fmt.Fprintf(buf, "%d;%d;%d;", col.R, col.G, col.B)
	default:
		buf.WriteString(bgColorPrefix)
		fmt.Fprintf(buf, "%d;%d;%d;", col.R, col.G, col.B)
	}
}

// appendDoubleRow encodes one output row (two pixel rows) of the frame,
// writing only cells whose (fg,bg) differ from the backing buffer when
// emitDifference is set. ySkip accumulates rows with nothing to emit so
// the caller can collapse them into a single cursor motion.
func (c *UnicodeBlockCanvas) appendDoubleRow(buf *bytes.Buffer, rowBacking []doubleRowColor, indent int, fgRow, bgRow []pixel.Color, emitDifference bool, ySkip *int) {
	start := buf.Len()
	var last doubleRowColor
	lastKnown := false
	xSkip := indent

	for x := range fgRow {
		cur := doubleRowColor{fgRow[x], bgRow[x]}
		if emitDifference && cur == rowBacking[x] {
			xSkip++
			continue
		}

		if *ySkip > 0 {
			if *ySkip <= 4 {
				buf.WriteString(nTimes('\n', *ySkip))
			} else {
				fmt.Fprintf(buf, "\033[%dB", *ySkip)
			}
			*ySkip = 0
		}
		if xSkip > 0 {
			fmt.Fprintf(buf, "\033[%dC", xSkip)
			xSkip = 0
		}

		colorEmitted := false
		bothTransparent := false

		if !lastKnown || cur.fg != last.fg {
			buf.WriteString("\033[")
			writeColor(buf, true, cur.fg, c.use256Color)
			colorEmitted = true
		}
		if !lastKnown || cur.bg != last.bg {
			if !colorEmitted {
				buf.WriteString("\033[")
			}
			if isTransparent(cur.bg) {
				buf.WriteString("49;")
				bothTransparent = isTransparent(cur.fg)
			} else {
				writeColor(buf, false, cur.bg, c.use256Color)
			}
			colorEmitted = true
		}
		if colorEmitted {
			// Overwrite the trailing ';' written by the color helpers
			// with the ESC sequence terminator.
			b := buf.Bytes()
			b[len(b)-1] = 'm'
		}

		if cur.fg == cur.bg || bothTransparent {
			buf.WriteByte(' ')
		} else if c.useUpperHalfBlock {
			buf.WriteString(pixelUpperHalfBlock)
		} else {
			buf.WriteString(pixelLowerHalfBlock)
		}

		last = cur
		lastKnown = true
		rowBacking[x] = cur
	}

	if buf.Len() == start {
		*ySkip++
	} else {
		buf.WriteString("\033[0m\n")
	}
}

func nTimes(b byte, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return string(out)
}

// Send implements Canvas. Grounded on UnicodeBlockCanvas::Send.
func (c *UnicodeBlockCanvas) Send(x, dy int, fb *pixel.Framebuffer, seqType sequencer.SeqType, endOfFrame tclock.Duration) error {
	width, height := fb.Width(), fb.Height()
	rows := (height + 1) / 2
	if len(c.backing) != width*rows {
		c.backing = make([]doubleRowColor, width*rows)
	}

	var buf bytes.Buffer
	buf.Write(c.TakePrefix())
	if dy < 0 {
		buf.WriteString(CursorDYSequence(c.CellHeightForPixels(dy)))
	}
	beforeImage := buf.Len()

	emitDifference := x == c.lastXIndent && c.haveLastGeometry && abs(dy) == c.lastHeight

	needsEmptyLine := height%2 != 0
	topOptionalBlank := !c.useUpperHalfBlock
	rowOffset := 0
	if needsEmptyLine && topOptionalBlank {
		rowOffset = -1
	}

	emptyLine := make([]pixel.Color, width)
	accumulatedYSkip := 0
	for y := 0; y < height; y += 2 {
		row := y + rowOffset
		var topLine, bottomLine []pixel.Color
		if row < 0 {
			topLine = emptyLine
		} else {
			topLine = fb.Pix()[width*row : width*(row+1)]
		}
		if row+1 >= height {
			bottomLine = emptyLine
		} else {
			bottomLine = fb.Pix()[width*(row+1) : width*(row+2)]
		}

		var fgLine, bgLine []pixel.Color
		if c.useUpperHalfBlock {
			fgLine, bgLine = topLine, bottomLine
		} else {
			fgLine, bgLine = bottomLine, topLine
		}

		rowIdx := y / 2
		rowBacking := c.backing[width*rowIdx : width*(rowIdx+1)]
		c.appendDoubleRow(&buf, rowBacking, x, fgLine, bgLine, emitDifference, &accumulatedYSkip)
	}

	c.lastHeight = height
	c.lastXIndent = x
	c.haveLastGeometry = true

	if buf.Len() == 0 {
		return nil // Nothing at all to send: no cursor motion, no body.
	}
	if buf.Len() > beforeImage && accumulatedYSkip > 0 {
		fmt.Fprintf(&buf, "\033[%dB", accumulatedYSkip)
	}

	// When the frame is unchanged from the backing buffer (the common
	// case for a static animation region), only the cursor-up prefix
	// assembled above is sent -- the body is empty.
	c.Seq.EnqueueBuffer(buf.Bytes(), seqType, endOfFrame)
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
