package canvas

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/hzeller/timg-sub000/dopts"
	"github.com/hzeller/timg-sub000/pixel"
	"github.com/hzeller/timg-sub000/sequencer"
	"github.com/hzeller/timg-sub000/tclock"
	"github.com/hzeller/timg-sub000/workpool"
)

// ITerm2GraphicsCanvas implements the iTerm2/WezTerm inline image
// protocol: a PNG-encoded frame, base64, wrapped in an OSC 1337
// "File=" escape sequence. Grounded on src/iterm2-canvas.{h,cc}.
type ITerm2GraphicsCanvas struct {
	Base
	opts *dopts.DisplayOptions
	pool *workpool.Pool
}

func NewITerm2GraphicsCanvas(seq *sequencer.Sequencer, opts *dopts.DisplayOptions, pool *workpool.Pool) *ITerm2GraphicsCanvas {
	return &ITerm2GraphicsCanvas{Base: Base{Seq: seq}, opts: opts, pool: pool}
}

func (c *ITerm2GraphicsCanvas) CellHeightForPixels(pixels int) int {
	return CellHeightForPixels(pixels, c.opts.CellYPx)
}

func (c *ITerm2GraphicsCanvas) Destroy() {}

// framebufferToNRGBA copies fb into a stdlib image.NRGBA. When
// includeAlpha is false, every pixel's alpha is forced to 255: since
// image.NRGBA.Opaque() then reports true, image/png automatically
// encodes a 24-bit truecolor PNG with no alpha channel, matching the
// original's png::ColorEncoding::kRGB_24 vs kRGBA_32 choice without
// needing a custom PNG writer.
func framebufferToNRGBA(fb *pixel.Framebuffer, includeAlpha bool) *image.NRGBA {
	w, h := fb.Width(), fb.Height()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, p := range fb.Pix() {
		a := p.A
		if !includeAlpha {
			a = 255
		}
		off := i * 4
		img.Pix[off+0] = p.R
		img.Pix[off+1] = p.G
		img.Pix[off+2] = p.B
		img.Pix[off+3] = a
	}
	return img
}

// encodeITerm2Frame builds the full escape-sequence payload for one
// frame. Grounded on ITerm2GraphicsCanvas::Send.
func encodeITerm2Frame(x, dy int, fb *pixel.Framebuffer, opts *dopts.DisplayOptions) ([]byte, error) {
	var prefix bytes.Buffer
	if dy < 0 {
		cellYPx := opts.CellYPx
		if cellYPx < 1 {
			cellYPx = 1
		}
		rows := (-dy + cellYPx - 1) / cellYPx
		prefix.WriteString(CursorDYSequence(-rows))
	}
	cellXPx := opts.CellXPx
	if cellXPx < 1 {
		cellXPx = 1
	}
	prefix.WriteString(CursorDXSequence(x / cellXPx))

	img := framebufferToNRGBA(fb, !opts.LocalAlphaHandling)

	var pngBuf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: compressionLevelFor(opts.CompressPixelLevel)}
	if err := enc.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("iterm2: encode png: %w", err)
	}

	var out bytes.Buffer
	out.Write(prefix.Bytes())
	fmt.Fprintf(&out, "\033]1337;File=size=%d;width=%dpx;height=%dpx;inline=1:",
		pngBuf.Len(), fb.Width(), fb.Height())
	out.WriteString(base64.StdEncoding.EncodeToString(pngBuf.Bytes()))
	out.WriteByte('\007')
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func compressionLevelFor(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.DefaultCompression
	case level <= 3:
		return png.BestSpeed
	default:
		return png.BestCompression
	}
}

// Send implements Canvas.
func (c *ITerm2GraphicsCanvas) Send(x, dy int, fb *pixel.Framebuffer, seqType sequencer.SeqType, endOfFrame tclock.Duration) error {
	frame := fb.Clone()
	opts := c.opts
	prefix := c.TakePrefix()
	future := workpool.ExecAsync(c.pool, func() sequencer.OutBuffer {
		buf, err := encodeITerm2Frame(x, dy, frame, opts)
		if err != nil {
			// A nil Buf is the sequencer's internal exit sentinel; an
			// encode failure must instead produce a harmless empty
			// (non-nil) write.
			return sequencer.OutBuffer{Buf: []byte{}}
		}
		return sequencer.OutBuffer{Buf: append(prefix, buf...)}
	})
	c.Seq.EnqueueFuture(future, seqType, endOfFrame)
	return nil
}
