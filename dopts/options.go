// Package dopts holds the read-only configuration consumed by decoders,
// encoders, and the renderer: one DisplayOptions value is created per
// invocation and never mutated afterward.
package dopts

import "github.com/hzeller/timg-sub000/pixel"

// BackgroundGetter is the callback a canvas calls, at most once per
// Send, to resolve the terminal background color on demand.
type BackgroundGetter = pixel.BackgroundGetter

// ScrollDirection selects the axis a scroll animation moves along.
type ScrollDirection int

const (
	ScrollNone ScrollDirection = iota
	ScrollHorizontal
	ScrollVertical
)

// DisplayOptions is the full set of knobs recognized by this
// implementation's encoders and renderer. It is created once (by the
// CLI) and shared read-only thereafter.
type DisplayOptions struct {
	// Target display area, in pixels.
	Width, Height int

	// Pixels per terminal cell for this canvas backend: 1x2 for the
	// unicode-block encoder's half-block mode, 2x2 for quarter-block
	// mode, or protocol-specific for the graphics canvases.
	CellXPx, CellYPx int

	// PNG compression level (0-9) used by the iTerm2 encoder, the only
	// canvas that stages a PNG.
	CompressPixelLevel int

	// WidthStretch corrects for non-square fonts; clamped to [0.2, 5.0].
	WidthStretch float64

	Upscale        bool
	UpscaleInteger bool

	FillWidth  bool
	FillHeight bool

	Antialias bool

	CenterHorizontally bool

	CropBorder bool
	AutoCrop   bool

	ExifRotate bool

	ShowTitle   bool
	TitleFormat string

	ScrollAnimation bool
	ScrollDX        int
	ScrollDY        int
	ScrollDelay     int // milliseconds

	// AllowFrameSkipping enables the sequencer's 250ms skip rule for
	// animation frames that have fallen behind.
	AllowFrameSkipping bool

	// LocalAlphaHandling, when true, means the encoder itself
	// pre-composites alpha against BgColorGetter/BgPatternColor rather
	// than relying on the terminal's own alpha support.
	LocalAlphaHandling bool

	BgColorGetter  BackgroundGetter
	BgPatternColor pixel.Color
	PatternSize    int
}

// ClampWidthStretch returns WidthStretch clamped to [0.2, 5.0], matching
// the original's sanity bound on font-squareness correction.
func (o DisplayOptions) ClampWidthStretch() float64 {
	switch {
	case o.WidthStretch < 0.2:
		return 0.2
	case o.WidthStretch > 5.0:
		return 5.0
	default:
		return o.WidthStretch
	}
}

// FormatTitle substitutes the recognized format tokens in format:
// %f (filename), %b (basename), %w/%h (original pixel dimensions), %D
// (decoder name). Any other %x emits x literally.
func FormatTitle(format, filename, basename string, origW, origH int, decoderName string) string {
	var out []byte
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			out = append(out, c)
			continue
		}
		i++
		switch format[i] {
		case 'f':
			out = append(out, filename...)
		case 'b':
			out = append(out, basename...)
		case 'w':
			out = append(out, itoa(origW)...)
		case 'h':
			out = append(out, itoa(origH)...)
		case 'D':
			out = append(out, decoderName...)
		default:
			out = append(out, format[i])
		}
	}
	return string(out)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
