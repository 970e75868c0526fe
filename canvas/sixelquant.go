package canvas

import "github.com/hzeller/timg-sub000/pixel"

const sixelMaxColors = 256

// colorBox is one median-cut box: a weighted set of distinct colors
// plus their tallied population, used to derive one palette entry.
type colorBox struct {
	colors []weightedColor
	rmin, rmax, gmin, gmax, bmin, bmax uint8
}

type weightedColor struct {
	c pixel.Color
	n int
}

func newColorBox(entries []weightedColor) colorBox {
	b := colorBox{colors: entries}
	b.rmin, b.gmin, b.bmin = 255, 255, 255
	for _, wc := range entries {
		if wc.c.R < b.rmin {
			b.rmin = wc.c.R
		}
		if wc.c.R > b.rmax {
			b.rmax = wc.c.R
		}
		if wc.c.G < b.gmin {
			b.gmin = wc.c.G
		}
		if wc.c.G > b.gmax {
			b.gmax = wc.c.G
		}
		if wc.c.B < b.bmin {
			b.bmin = wc.c.B
		}
		if wc.c.B > b.bmax {
			b.bmax = wc.c.B
		}
	}
	return b
}

func (b colorBox) widestChannel() int {
	rr := int(b.rmax) - int(b.rmin)
	gr := int(b.gmax) - int(b.gmin)
	br := int(b.bmax) - int(b.bmin)
	switch {
	case rr >= gr && rr >= br:
		return 0
	case gr >= br:
		return 1
	default:
		return 2
	}
}

// average returns the population-weighted mean color of the box. All
// three channels count equally; no luminance weighting is applied.
func (b colorBox) average() pixel.Color {
	var rsum, gsum, bsum, total int64
	for _, wc := range b.colors {
		w := int64(wc.n)
		rsum += int64(wc.c.R) * w
		gsum += int64(wc.c.G) * w
		bsum += int64(wc.c.B) * w
		total += w
	}
	if total == 0 {
		return pixel.Color{}
	}
	return pixel.Color{
		R: uint8(rsum / total),
		G: uint8(gsum / total),
		B: uint8(bsum / total),
		A: 255,
	}
}

func (b colorBox) split() (colorBox, colorBox) {
	ch := b.widestChannel()
	sorted := make([]weightedColor, len(b.colors))
	copy(sorted, b.colors)
	sortWeightedByChannel(sorted, ch)

	var total int
	for _, wc := range sorted {
		total += wc.n
	}
	half := total / 2
	cum := 0
	split := 1
	for i, wc := range sorted {
		cum += wc.n
		if cum >= half {
			split = i + 1
			break
		}
	}
	if split >= len(sorted) {
		split = len(sorted) - 1
	}
	if split < 1 {
		split = 1
	}
	return newColorBox(sorted[:split]), newColorBox(sorted[split:])
}

func sortWeightedByChannel(w []weightedColor, ch int) {
	key := func(c pixel.Color) uint8 {
		switch ch {
		case 0:
			return c.R
		case 1:
			return c.G
		default:
			return c.B
		}
	}
	// Simple insertion sort, quadratic in the number of distinct colors
	// in the box (the first box holds every distinct color of the
	// image); it keeps the quantizer free of any sorting-library
	// dependency.
	for i := 1; i < len(w); i++ {
		v := w[i]
		j := i - 1
		for j >= 0 && key(w[j].c) > key(v.c) {
			w[j+1] = w[j]
			j--
		}
		w[j+1] = v
	}
}

// sixelPalette is a quantized color table (at most sixelMaxColors
// entries, 1-indexed in protocol terms but 0-indexed here) plus a
// lookup from an arbitrary opaque Color to its nearest palette index.
type sixelPalette struct {
	entries []pixel.Color
	cache   map[pixel.Color]int
}

// buildSixelPalette quantizes every non-transparent pixel of fb into
// at most sixelMaxColors colors via median-cut box splitting with a
// population-weighted average per box (the "average-color grouping"
// behavior libsixel calls SIXEL_REP_AVERAGE_COLORS), reimplemented
// here since the original's libsixel dependency isn't in the pack.
func buildSixelPalette(fb *pixel.Framebuffer) *sixelPalette {
	hist := make(map[pixel.Color]int)
	for _, p := range fb.Pix() {
		if isTransparent(p) {
			continue
		}
		opaque := pixel.Color{R: p.R, G: p.G, B: p.B, A: 255}
		hist[opaque]++
	}

	entries := make([]weightedColor, 0, len(hist))
	for c, n := range hist {
		entries = append(entries, weightedColor{c: c, n: n})
	}

	var palette []pixel.Color
	if len(entries) == 0 {
		palette = []pixel.Color{{}}
	} else if len(entries) <= sixelMaxColors {
		palette = make([]pixel.Color, len(entries))
		for i, wc := range entries {
			palette[i] = wc.c
		}
	} else {
		boxes := []colorBox{newColorBox(entries)}
		for len(boxes) < sixelMaxColors {
			// Split the box with the most colors (a simple, effective
			// proxy for "largest population") each round.
			worst := 0
			for i, b := range boxes {
				if len(b.colors) > len(boxes[worst].colors) {
					worst = i
				}
			}
			if len(boxes[worst].colors) <= 1 {
				break
			}
			a, b := boxes[worst].split()
			boxes[worst] = a
			boxes = append(boxes, b)
		}
		palette = make([]pixel.Color, len(boxes))
		for i, b := range boxes {
			palette[i] = b.average()
		}
	}

	return &sixelPalette{entries: palette, cache: make(map[pixel.Color]int)}
}

// indexOf returns the palette index (0-based) nearest to c by squared
// Euclidean RGB distance, memoizing per distinct input color.
func (p *sixelPalette) indexOf(c pixel.Color) int {
	if idx, ok := p.cache[c]; ok {
		return idx
	}
	best, bestDist := 0, -1
	for i, pc := range p.entries {
		dr := int(c.R) - int(pc.R)
		dg := int(c.G) - int(pc.G)
		db := int(c.B) - int(pc.B)
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	p.cache[c] = best
	return best
}
