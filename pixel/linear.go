package pixel

import "math"

// LinearColor is a Color unpacked into linear light, approximating the
// true sRGB curve with x^2 / sqrt(x) (see spec: "gamma-encoded, approximated
// as gamma=2"), matching src/framebuffer.h's LinearColor exactly so that
// compositing results are bit-for-bit reproducible.
type LinearColor struct {
	R, G, B, A float64
}

// Linearize unpacks a gamma-encoded Color into linear space.
func Linearize(c Color) LinearColor {
	return LinearColor{
		R: float64(c.R) * float64(c.R),
		G: float64(c.G) * float64(c.G),
		B: float64(c.B) * float64(c.B),
		A: float64(c.A),
	}
}

// Dist returns the (un-square-rooted) quadratic distance between two linear
// colors, used by the quarter-block glyph selection's "sum of squared
// distances" metric.
func (c LinearColor) Dist(o LinearColor) float64 {
	dr, dg, db := o.R-c.R, o.G-c.G, o.B-c.B
	return dr*dr + dg*dg + db*db
}

func gamma(v float64) uint8 {
	vg := math.Sqrt(v)
	if vg > 255 {
		return 255
	}
	if vg < 0 {
		return 0
	}
	return uint8(vg)
}

// Repack reconstructs a gamma-encoded Color by square-rooting each channel
// back down; alpha is carried through as an integer.
func (c LinearColor) Repack() Color {
	a := c.A
	if a > 255 {
		a = 255
	}
	return Color{gamma(c.R), gamma(c.G), gamma(c.B), uint8(a)}
}

// AlphaBlend blends this (possibly transparent) color over the given
// opaque background:
// out = (src*alpha + bg*(255-alpha)) / 255, with the result always fully
// opaque afterwards.
func (c LinearColor) AlphaBlend(bg LinearColor) LinearColor {
	a := c.A
	inv := 255 - a
	return LinearColor{
		R: (c.R*a + bg.R*inv) / 255,
		G: (c.G*a + bg.G*inv) / 255,
		B: (c.B*a + bg.B*inv) / 255,
		A: 255,
	}
}

// LinearAverage averages a set of linear colors and returns the result
// together with the sum of each input's squared distance from that
// average -- the metric the quarter-block encoder uses to score candidate
// glyph/color-pair approximations (spec §4.F).
func LinearAverage(values ...LinearColor) (avg LinearColor, sumSqDist float64) {
	n := float64(len(values))
	for _, v := range values {
		avg.R += v.R
		avg.G += v.G
		avg.B += v.B
		avg.A += v.A
	}
	avg.R /= n
	avg.G /= n
	avg.B /= n
	avg.A /= n
	for _, v := range values {
		sumSqDist += avg.Dist(v)
	}
	return avg, sumSqDist
}
