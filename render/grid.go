package render

import (
	"sync/atomic"
	"time"

	"github.com/hzeller/timg-sub000/canvas"
	"github.com/hzeller/timg-sub000/dopts"
	"github.com/hzeller/timg-sub000/pixel"
	"github.com/hzeller/timg-sub000/sequencer"
	"github.com/hzeller/timg-sub000/tclock"
)

// WriteFramebufferFunc is handed out once per rendered image; an image
// source calls it once per frame with the usual (x, dy) positioning.
// Grounded on Renderer::WriteFramebufferFun.
type WriteFramebufferFunc func(x, dy int, fb *pixel.Framebuffer, seqType sequencer.SeqType, endOfFrame tclock.Duration)

// Renderer positions decoded framebuffers onto a canvas according to
// the requested grid layout. Grounded on src/renderer.{h,cc}.
type Renderer interface {
	// RenderCB opens a sink for one new image, with an optional title.
	// The returned function places however many frames that image
	// produces; call RenderCB again to start the next image.
	RenderCB(title string) WriteFramebufferFunc
	// MaybeWaitBetweenImageSources sleeps for the configured
	// inter-image delay, honoring interruption.
	MaybeWaitBetweenImageSources()
}

type base struct {
	canvas            canvas.Canvas
	opts              *dopts.DisplayOptions
	waitBetweenImages tclock.Duration
	interruptReceived *int32
}

func (b *base) MaybeWaitBetweenImageSources() {
	sleepInterruptible(b.waitBetweenImages, b.interruptReceived)
}

// sleepInterruptible sleeps for d, waking early (and returning) if
// interruptReceived becomes non-zero. nil interruptReceived means
// "never interrupted".
func sleepInterruptible(d tclock.Duration, interruptReceived *int32) {
	remaining := d.Std()
	if remaining <= 0 {
		return
	}
	if interruptReceived == nil {
		time.Sleep(remaining)
		return
	}
	const poll = 20 * time.Millisecond
	for remaining > 0 {
		step := poll
		if step > remaining {
			step = remaining
		}
		time.Sleep(step)
		remaining -= step
		if atomic.LoadInt32(interruptReceived) != 0 {
			return
		}
	}
}

// SingleColumnRenderer sends every framebuffer straight to the canvas
// with its (x, dy) unchanged, using the full canvas as one image.
// Grounded on SingleColumnRenderer.
type SingleColumnRenderer struct {
	base
}

// NewSingleColumnRenderer constructs a renderer that uses the full
// terminal width for one image at a time.
func NewSingleColumnRenderer(c canvas.Canvas, opts *dopts.DisplayOptions, waitBetweenImages tclock.Duration, interruptReceived *int32) *SingleColumnRenderer {
	return &SingleColumnRenderer{base: base{canvas: c, opts: opts, waitBetweenImages: waitBetweenImages, interruptReceived: interruptReceived}}
}

// RenderCB implements Renderer.
func (r *SingleColumnRenderer) RenderCB(title string) WriteFramebufferFunc {
	if r.opts.ShowTitle {
		cellXPx := r.opts.CellXPx
		if cellXPx < 1 {
			cellXPx = 1
		}
		out := TrimTitle(title, r.opts.Width/cellXPx, r.opts.CenterHorizontally)
		r.canvas.AddPrefixNextSend([]byte(out))
	}
	return func(x, dy int, fb *pixel.Framebuffer, seqType sequencer.SeqType, endOfFrame tclock.Duration) {
		r.canvas.Send(x, dy, fb, seqType, endOfFrame)
	}
}

// MultiColumnRenderer tiles images into a (cols, rows) grid, tracking
// the current column and the tallest image seen so far in the current
// row so the cursor can be parked correctly between images and rows.
// Grounded on MultiColumnRenderer.
type MultiColumnRenderer struct {
	base

	columns         int
	columnWidth     int
	waitBetweenRows tclock.Duration

	title                 string
	firstRenderCall       bool
	currentColumn         int
	highestFbColumnHeight int
	lastFbHeight          int
}

// NewMultiColumnRenderer constructs a renderer tiling images cols wide;
// rows is informational only (the grid wraps by column count, the same
// as the original).
func NewMultiColumnRenderer(c canvas.Canvas, opts *dopts.DisplayOptions, cols, rows int, waitBetweenImages, waitBetweenRows tclock.Duration, interruptReceived *int32) *MultiColumnRenderer {
	return &MultiColumnRenderer{
		base:            base{canvas: c, opts: opts, waitBetweenImages: waitBetweenImages, interruptReceived: interruptReceived},
		columns:         cols,
		columnWidth:     opts.Width,
		waitBetweenRows: waitBetweenRows,
		currentColumn:   -1,
	}
}

// RenderCB implements Renderer.
func (r *MultiColumnRenderer) RenderCB(title string) WriteFramebufferFunc {
	r.currentColumn++
	if r.currentColumn >= r.columns {
		down := r.highestFbColumnHeight - r.lastFbHeight
		if down > 0 {
			cellYPx := r.opts.CellYPx
			if cellYPx < 1 {
				cellYPx = 1
			}
			r.canvas.MoveCursorDY(down / cellYPx)
		}
		sleepInterruptible(r.waitBetweenRows, r.interruptReceived)
		r.currentColumn = 0
		r.highestFbColumnHeight = 0
	}

	if r.opts.ShowTitle {
		cellXPx := r.opts.CellXPx
		if cellXPx < 1 {
			cellXPx = 1
		}
		r.title = TrimTitle(title, r.columnWidth/cellXPx, r.opts.CenterHorizontally)
	}
	r.firstRenderCall = true

	return func(x, dy int, fb *pixel.Framebuffer, seqType sequencer.SeqType, endOfFrame tclock.Duration) {
		xOffset := r.currentColumn * r.columnWidth
		var yOffset int
		if r.firstRenderCall {
			if r.currentColumn > 0 {
				yOffset = -r.lastFbHeight
			} else {
				yOffset = 0
			}
		} else {
			yOffset = dy
		}

		if r.opts.ShowTitle && r.firstRenderCall {
			cellYPx := r.opts.CellYPx
			if cellYPx < 1 {
				cellYPx = 1
			}
			cellXPx := r.opts.CellXPx
			if cellXPx < 1 {
				cellXPx = 1
			}
			if yOffset != 0 {
				const spaceForTitle = 1
				yMove := (-yOffset + cellYPx - 1) / cellYPx
				r.canvas.MoveCursorDY(-yMove - spaceForTitle)
			}
			r.canvas.MoveCursorDX(xOffset / cellXPx)
			r.canvas.AddPrefixNextSend([]byte(r.title))
			yOffset = 0
		}

		r.canvas.Send(x+xOffset, yOffset, fb, seqType, endOfFrame)

		r.lastFbHeight = fb.Height()
		if r.lastFbHeight > r.highestFbColumnHeight {
			r.highestFbColumnHeight = r.lastFbHeight
		}
		r.firstRenderCall = false
	}
}

// Close parks the cursor below the tallest column of the last row, the
// Go equivalent of ~MultiColumnRenderer. Callers must invoke it once
// after the last RenderCB-driven image has finished.
func (r *MultiColumnRenderer) Close() {
	if r.currentColumn == 0 {
		return
	}
	down := r.highestFbColumnHeight - r.lastFbHeight
	if down > 0 {
		cellYPx := r.opts.CellYPx
		if cellYPx < 1 {
			cellYPx = 1
		}
		r.canvas.MoveCursorDY(down / cellYPx)
	}
}

// NewRenderer creates a SingleColumnRenderer when cols<=1, otherwise a
// MultiColumnRenderer. Grounded on Renderer::Create.
func NewRenderer(c canvas.Canvas, opts *dopts.DisplayOptions, cols, rows int, waitBetweenImages, waitBetweenRows tclock.Duration, interruptReceived *int32) Renderer {
	if cols > 1 {
		return NewMultiColumnRenderer(c, opts, cols, rows, waitBetweenImages, waitBetweenRows, interruptReceived)
	}
	return NewSingleColumnRenderer(c, opts, waitBetweenImages, interruptReceived)
}
