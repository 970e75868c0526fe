package canvas

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/hzeller/timg-sub000/dopts"
	"github.com/hzeller/timg-sub000/pixel"
	"github.com/hzeller/timg-sub000/sequencer"
	"github.com/hzeller/timg-sub000/tclock"
	"github.com/hzeller/timg-sub000/workpool"
)

// kittyChunkSize is the maximum allowed size, in base64-encoded bytes,
// of a single Kitty graphics escape payload chunk (protocol maximum).
const kittyChunkSize = 4096

// KittyGraphicsCanvas implements the Kitty terminal graphics protocol
// (https://sw.kovidgoyal.net/kitty/graphics-protocol.html): raw 24-bit
// RGB, base64-encoded, framed into chunked `ESC _ G ... ESC \` escape
// sequences. Alpha is assumed already composited upstream (the encoder
// never emits an alpha channel). Grounded on
// src/kitty-canvas.{h,cc}.
type KittyGraphicsCanvas struct {
	Base
	opts *dopts.DisplayOptions
	pool *workpool.Pool
}

// NewKittyGraphicsCanvas constructs a Kitty canvas writing through seq,
// dispatching the (synchronous, CPU-only) encode step to pool so the
// renderer is not blocked by it.
func NewKittyGraphicsCanvas(seq *sequencer.Sequencer, opts *dopts.DisplayOptions, pool *workpool.Pool) *KittyGraphicsCanvas {
	return &KittyGraphicsCanvas{Base: Base{Seq: seq}, opts: opts, pool: pool}
}

func (c *KittyGraphicsCanvas) CellHeightForPixels(pixels int) int {
	return CellHeightForPixels(pixels, c.opts.CellYPx)
}

func (c *KittyGraphicsCanvas) Destroy() {}

// encodeKittyFrame builds the full escape-sequence payload for one
// frame: cursor-motion prefix, then the chunked graphics command.
// Grounded on KittyGraphicsCanvas::Send / EncodeFramebufferChunked.
func encodeKittyFrame(x, dy int, fb *pixel.Framebuffer, opts *dopts.DisplayOptions) []byte {
	var buf bytes.Buffer
	if dy < 0 {
		cellYPx := opts.CellYPx
		if cellYPx < 1 {
			cellYPx = 1
		}
		rows := (-dy + cellYPx - 1) / cellYPx
		buf.WriteString(CursorDYSequence(-rows))
	}
	if x > 0 {
		cellXPx := opts.CellXPx
		if cellXPx < 1 {
			cellXPx = 1
		}
		buf.WriteString(CursorDXSequence(x / cellXPx))
	}

	width, height := fb.Width(), fb.Height()
	rgb := make([]byte, 0, 3*width*height)
	for _, p := range fb.Pix() {
		rgb = append(rgb, p.R, p.G, p.B)
	}
	encoded := base64.StdEncoding.EncodeToString(rgb)

	more := 0
	if len(encoded) > kittyChunkSize {
		more = 1
	}
	fmt.Fprintf(&buf, "\033_Ga=T,f=24,s=%d,v=%d,m=%d;", width, height, more)

	for len(encoded) > 0 {
		n := kittyChunkSize
		if n > len(encoded) {
			n = len(encoded)
		}
		chunk := encoded[:n]
		encoded = encoded[n:]
		buf.WriteString(chunk)
		buf.WriteString("\033\\")
		if len(encoded) > 0 {
			more = 0
			if len(encoded) > kittyChunkSize {
				more = 1
			}
			fmt.Fprintf(&buf, "\033_Gm=%d;", more)
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// Send implements Canvas. The encode runs on the thread pool; a future
// is enqueued on the sequencer immediately so FIFO ordering across
// frames is preserved regardless of encode latency.
func (c *KittyGraphicsCanvas) Send(x, dy int, fb *pixel.Framebuffer, seqType sequencer.SeqType, endOfFrame tclock.Duration) error {
	frame := fb.Clone()
	opts := c.opts
	prefix := c.TakePrefix()
	future := workpool.ExecAsync(c.pool, func() sequencer.OutBuffer {
		buf := append(prefix, encodeKittyFrame(x, dy, frame, opts)...)
		return sequencer.OutBuffer{Buf: buf}
	})
	c.Seq.EnqueueFuture(future, seqType, endOfFrame)
	return nil
}
