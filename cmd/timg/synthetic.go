package main

import "github.com/hzeller/timg-sub000/pixel"

// syntheticTestPattern builds a framebuffer standing in for a decoded
// image: a checkerboard plus diagonal gradient, so every rendered
// backend has something visually distinct to encode. Real image/video
// decoding is not implemented here; this keeps the CLI's wiring of
// framebuffer -> canvas -> sequencer exercisable and testable without
// one.
func syntheticTestPattern(width, height int) *pixel.Framebuffer {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	fb := pixel.New(width, height)
	const cell = 8
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			checker := (x/cell+y/cell)%2 == 0
			r := uint8(255 * x / width)
			b := uint8(255 * y / height)
			g := uint8(128)
			if !checker {
				r, g, b = b, r, g
			}
			fb.Set(x, y, pixel.Color{R: r, G: g, B: b, A: 255})
		}
	}
	return fb
}
