package pixel

// BackgroundGetter lazily supplies the background color to blend
// transparent pixels against. It is invoked at most once per
// AlphaComposeBackground call, since some terminal background-color
// queries are themselves slow round-trips (see termquery).
type BackgroundGetter func() Color

// AlphaComposeBackground blends every pixel with alpha<255, starting at
// row startRow (in pixel rows, i.e. the scan begins at index
// startRow*Width()), against a background color and optional checkerboard
// pattern color. Grounded on src/framebuffer.cc's AlphaComposeBackground.
//
// If no pixel from startRow onward is transparent, getBg is never called.
// If getBg returns a transparent color, the framebuffer is left untouched
// (explicit request for "no background"). Otherwise: if the pattern color
// is transparent, pw<=0, ph<=0, or the pattern equals the background, every
// sub-opaque pixel blends against the background. Otherwise pixel (x,y)
// blends against the background when (x/pw + y/ph) is even, the pattern
// color otherwise -- a checkerboard.
func (f *Framebuffer) AlphaComposeBackground(getBg BackgroundGetter, pattern Color, pw, ph, startRow int) {
	if getBg == nil {
		return
	}
	start := startRow * f.width
	if start < 0 {
		start = 0
	}
	firstTransparent := -1
	for i := start; i < len(f.pix); i++ {
		if f.pix[i].A < 255 {
			firstTransparent = i
			break
		}
	}
	if firstTransparent < 0 {
		return
	}

	bg := getBg()
	if bg.A == 0 {
		return
	}

	usePattern := pattern.A != 0 && pw > 0 && ph > 0 && pattern != bg
	if !usePattern {
		bgLin := Linearize(bg)
		for i := firstTransparent; i < len(f.pix); i++ {
			if f.pix[i].A == 255 {
				continue
			}
			f.pix[i] = Linearize(f.pix[i]).AlphaBlend(bgLin).Repack()
		}
		return
	}

	bgLin := Linearize(bg)
	patternLin := Linearize(pattern)
	startX := firstTransparent % f.width
	startY := firstTransparent / f.width
	for y := startY; y < f.height; y++ {
		yPattern := y / ph
		xFrom := 0
		if y == startY {
			xFrom = startX
		}
		for x := xFrom; x < f.width; x++ {
			idx := f.width*y + x
			if f.pix[idx].A == 255 {
				continue
			}
			choice := bgLin
			if (x/pw+yPattern)%2 != 0 {
				choice = patternLin
			}
			f.pix[idx] = Linearize(f.pix[idx]).AlphaBlend(choice).Repack()
		}
	}
}
