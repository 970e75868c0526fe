package canvas

import (
	"bytes"
	"fmt"

	"github.com/hzeller/timg-sub000/dopts"
	"github.com/hzeller/timg-sub000/pixel"
	"github.com/hzeller/timg-sub000/sequencer"
	"github.com/hzeller/timg-sub000/tclock"
	"github.com/hzeller/timg-sub000/workpool"
)

const (
	sixelCursorMoveBeforeDefault = "\033[80h\033[?7730h\033[?8452l"
	sixelCursorMoveAfterDefault  = "\r"
	sixelCursorMoveBeforeAlt     = "\033[80l\033[?7730l\033[?8452h"
	sixelCursorMoveAfterAlt      = "\n"
)

// SixelCanvas implements the DEC sixel graphics protocol: a
// median-cut-quantized, run-length-encoded bitplane image wrapped in
// `ESC P q ... ESC \`. Grounded on src/sixel-canvas.{h,cc}.
type SixelCanvas struct {
	Base
	opts               *dopts.DisplayOptions
	pool               *workpool.Pool
	cursorMoveBefore   string
	cursorMoveAfter    string
}

// NewSixelCanvas constructs a sixel canvas. requiredCursorPlacementWorkaround
// selects which of the two DECSET-7730/8452 cursor-placement conventions
// to emit, matching terminals that disagree on where the cursor lands
// after a sixel image.
func NewSixelCanvas(seq *sequencer.Sequencer, opts *dopts.DisplayOptions, pool *workpool.Pool, requiredCursorPlacementWorkaround bool) *SixelCanvas {
	c := &SixelCanvas{Base: Base{Seq: seq}, opts: opts, pool: pool}
	if requiredCursorPlacementWorkaround {
		c.cursorMoveBefore = sixelCursorMoveBeforeAlt
		c.cursorMoveAfter = sixelCursorMoveAfterAlt
	} else {
		c.cursorMoveBefore = sixelCursorMoveBeforeDefault
		c.cursorMoveAfter = sixelCursorMoveAfterDefault
	}
	return c
}

// roundToSixel rounds pixels up to the next multiple of 6, matching
// round_to_sixel in the original.
func roundToSixel(pixels int) int {
	pixels += 5
	return pixels - pixels%6
}

func (c *SixelCanvas) CellHeightForPixels(pixels int) int {
	if pixels >= 0 {
		return 0
	}
	cellYPx := c.opts.CellYPx
	if cellYPx < 1 {
		cellYPx = 1
	}
	mag := roundToSixel(-pixels)
	return -((mag + cellYPx - 1) / cellYPx)
}

func (c *SixelCanvas) Destroy() {}

// padToSixelHeight returns a copy of fb whose height is rounded up to
// the next multiple of 6, with the padding rows (and only those rows)
// alpha-composited against the configured background/pattern; the
// original frame is then copied back on top unchanged. Grounded on
// SixelCanvas::Send's Framebuffer construction.
func padToSixelHeight(fb *pixel.Framebuffer, opts *dopts.DisplayOptions) *pixel.Framebuffer {
	origHeight := fb.Height()
	paddedHeight := roundToSixel(origHeight)
	if paddedHeight == origHeight {
		return fb.Clone()
	}
	out := pixel.New(fb.Width(), paddedHeight)
	patternW := opts.PatternSize * opts.CellXPx
	patternH := opts.PatternSize * opts.CellYPx / 2
	out.AlphaComposeBackground(opts.BgColorGetter, opts.BgPatternColor, patternW, patternH, origHeight)
	copy(out.Pix()[:fb.Width()*origHeight], fb.Pix())
	return out
}

// encodeSixelBody quantizes fb (height must already be a multiple of
// 6) into a palette and emits the DECSIXEL raster-attributes, color
// registers, and run-length-encoded bitplane body. The bitplane/RLE
// scheme is grounded on other_examples/fa77db9c_zyoung11-BM__sixel.go.go,
// reimplemented over pixel.Framebuffer/pixel.Color since no sixel
// encoding library is present in the retrieval pack's go.mod set.
func encodeSixelBody(fb *pixel.Framebuffer, pal *sixelPalette) []byte {
	width, height := fb.Width(), fb.Height()
	nc := len(pal.entries) + 1 // register 0 is reserved, never assigned

	var out bytes.Buffer
	out.WriteString("\033Pq")
	fmt.Fprintf(&out, "\"1;1;%d;%d", width, height)
	for i, col := range pal.entries {
		r := int(col.R) * 100 / 255
		g := int(col.G) * 100 / 255
		b := int(col.B) * 100 / 255
		fmt.Fprintf(&out, "#%d;2;%d;%d;%d", i+1, r, g, b)
	}

	const specialChNr = byte(0x6d)
	const specialChCr = byte(0x64)

	buf := make([]byte, width*nc)
	cset := make([]bool, nc)
	ch0 := specialChNr

	pix := fb.Pix()
	for z := 0; z < height/6; z++ {
		if z > 0 {
			out.WriteByte('-') // DECGNL: next graphics line
		}
		for p := 0; p < 6; p++ {
			y := z*6 + p
			row := pix[width*y : width*(y+1)]
			for x, px := range row {
				if isTransparent(px) {
					continue
				}
				opaque := pixel.Color{R: px.R, G: px.G, B: px.B, A: 255}
				idx := pal.indexOf(opaque) + 1
				cset[idx] = false
				buf[width*idx+x] |= 1 << uint(p)
			}
		}
		for n := 1; n < nc; n++ {
			if cset[n] {
				continue
			}
			cset[n] = true
			if ch0 == specialChCr {
				out.WriteByte('$') // DECGCR: return to start of line
			}
			writeSixelColorSelect(&out, n)

			cnt := 0
			for x := 0; x < width; x++ {
				ch := buf[width*n+x]
				buf[width*n+x] = 0
				if ch0 < 0x40 && ch != ch0 {
					writeSixelRun(&out, ch0, cnt)
					cnt = 0
				}
				ch0 = ch
				cnt++
			}
			if ch0 != 0 {
				writeSixelRun(&out, ch0, cnt)
			}
			ch0 = specialChCr
		}
	}
	out.WriteString("\033\\")
	return out.Bytes()
}

func writeSixelColorSelect(out *bytes.Buffer, n int) {
	fmt.Fprintf(out, "#%d", n)
}

// writeSixelRun emits cnt repetitions of the sixel character encoding
// bitmask ch0, using the DECGRI repeat-introducer ('!') for runs
// longer than 3.
func writeSixelRun(out *bytes.Buffer, ch0 byte, cnt int) {
	s := byte(63 + ch0)
	for cnt > 255 {
		out.Write([]byte{'!', '2', '5', '5', s})
		cnt -= 255
	}
	switch {
	case cnt == 1:
		out.WriteByte(s)
	case cnt == 2:
		out.WriteByte(s)
		out.WriteByte(s)
	case cnt == 3:
		out.WriteByte(s)
		out.WriteByte(s)
		out.WriteByte(s)
	case cnt > 0:
		fmt.Fprintf(out, "!%d", cnt)
		out.WriteByte(s)
	}
}

// Send implements Canvas.
func (c *SixelCanvas) Send(x, dy int, fb *pixel.Framebuffer, seqType sequencer.SeqType, endOfFrame tclock.Duration) error {
	var prefix bytes.Buffer
	prefix.Write(c.TakePrefix())
	if dy < 0 {
		prefix.WriteString(CursorDYSequence(c.CellHeightForPixels(dy)))
	}
	cellXPx := c.opts.CellXPx
	if cellXPx < 1 {
		cellXPx = 1
	}
	prefix.WriteString(CursorDXSequence(x / cellXPx))

	frame := padToSixelHeight(fb, c.opts)
	before, after := c.cursorMoveBefore, c.cursorMoveAfter
	prefixBytes := prefix.Bytes()

	future := workpool.ExecAsync(c.pool, func() sequencer.OutBuffer {
		pal := buildSixelPalette(frame)
		body := encodeSixelBody(frame, pal)

		var out bytes.Buffer
		out.Write(prefixBytes)
		out.WriteString(before)
		out.Write(body)
		out.WriteString(after)
		return sequencer.OutBuffer{Buf: out.Bytes()}
	})
	c.Seq.EnqueueFuture(future, seqType, endOfFrame)
	return nil
}
