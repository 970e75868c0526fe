// Package pixel implements the raster data model: RGBA pixel storage,
// color parsing, and linear-space alpha compositing.
package pixel

import (
	"image"
	"image/color"
)

// Framebuffer is a rectangular W x H grid of Color pixels in row-major
// order, top-left origin. It implements image.Image. The canvases do not
// hand it to image/png.Encode directly: the iTerm2 canvas copies it into
// an image.NRGBA first, and the Kitty and Sixel canvases do not use PNG.
type Framebuffer struct {
	width, height int
	pix           []Color

	// rowPointers is built lazily by RowPointers(), mirroring the
	// original's row_data() used for line-oriented scalers.
	rowPointers [][]Color
}

// New creates a W x H framebuffer, initialized to fully transparent black.
// Panics if width or height is non-positive, matching the invariant that
// W>=1, H>=1 always holds for a constructed framebuffer.
func New(width, height int) *Framebuffer {
	if width < 1 || height < 1 {
		panic("pixel: framebuffer dimensions must be >= 1")
	}
	return &Framebuffer{width: width, height: height, pix: make([]Color, width*height)}
}

func (f *Framebuffer) Width() int  { return f.width }
func (f *Framebuffer) Height() int { return f.height }

// Stride returns the primary row stride in pixels (not bytes): always
// equal to Width(). The original's strides_[2] array (primary stride,
// zero sentinel) exists to interoperate with C scalers expecting a
// byte-stride array; this is its Go-native equivalent, one element.
func (f *Framebuffer) Stride() int { return f.width }

func (f *Framebuffer) inBounds(x, y int) bool {
	return x >= 0 && x < f.width && y >= 0 && y < f.height
}

// Set writes a pixel, silently rejecting out-of-bounds coordinates.
func (f *Framebuffer) Set(x, y int, p Color) {
	if !f.inBounds(x, y) {
		return
	}
	f.pix[f.width*y+x] = p
}

// PixelAt returns the pixel at (x,y). Callers must ensure bounds; unlike
// Set, this has no silent-reject path (matches the original's
// assert-on-read semantics for Framebuffer::at()).
func (f *Framebuffer) PixelAt(x, y int) Color {
	if !f.inBounds(x, y) {
		panic("pixel: framebuffer read out of bounds")
	}
	return f.pix[f.width*y+x]
}

// Clear resets every pixel to fully transparent black.
func (f *Framebuffer) Clear() {
	for i := range f.pix {
		f.pix[i] = Transparent
	}
}

// Pix exposes the raw backing slice for iteration, row-major from
// top-left to bottom-right.
func (f *Framebuffer) Pix() []Color { return f.pix }

// RowPointers returns, lazily building and caching it, a slice of per-row
// slices into the backing pixel array -- the Go equivalent of the
// original's row_data() used by line-oriented scalers.
func (f *Framebuffer) RowPointers() [][]Color {
	if f.rowPointers != nil {
		return f.rowPointers
	}
	rows := make([][]Color, f.height)
	for y := 0; y < f.height; y++ {
		rows[y] = f.pix[f.width*y : f.width*(y+1)]
	}
	f.rowPointers = rows
	return rows
}

// Clone returns an independent copy of the framebuffer, used when handing
// ownership across the thread-pool boundary to an async encoder task.
func (f *Framebuffer) Clone() *Framebuffer {
	out := &Framebuffer{width: f.width, height: f.height, pix: make([]Color, len(f.pix))}
	copy(out.pix, f.pix)
	return out
}

// image.Image implementation, so a Framebuffer can be passed straight to
// image/png.Encode.

func (f *Framebuffer) ColorModel() color.Model { return color.NRGBAModel }

func (f *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

func (f *Framebuffer) At(x, y int) color.Color {
	p := f.PixelAt(x, y)
	return color.NRGBA{R: p.R, G: p.G, B: p.B, A: p.A}
}
