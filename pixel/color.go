package pixel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Color is an RGBA pixel value. R, G, B are gamma-encoded (sRGB-ish,
// approximated as gamma=2 throughout this package, see Linearize/LinearColor.Repack).
// A is linear: 0 transparent, 255 opaque.
type Color struct {
	R, G, B, A uint8
}

// Transparent is fully transparent black, the cleared-framebuffer value.
var Transparent = Color{}

func clampChannel(v int64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ParseColor parses "#rrggbb", "rgb(r,g,b)", "rgb(0xRR,0xGG,0xBB)", and the
// HTML/X11 color names tcell carries for its own color handling, matching
// it case-insensitively. It never fails outright: unparseable input, the
// empty string, and the literal "none" (a sentinel meaning "no background")
// all return a fully transparent Color without complaint. Successful
// parses are always fully opaque (A=255).
func ParseColor(s string) Color {
	if s == "" || strings.EqualFold(s, "none") {
		return Transparent
	}
	if c, ok := parseHex(s); ok {
		return c
	}
	if c, ok := parseRGBFunc(s); ok {
		return c
	}
	if c, ok := lookupNamedColor(s); ok {
		return c
	}
	return Transparent
}

func parseHex(s string) (Color, bool) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, false
	}
	r, err1 := strconv.ParseUint(s[1:3], 16, 8)
	g, err2 := strconv.ParseUint(s[3:5], 16, 8)
	b, err3 := strconv.ParseUint(s[5:7], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return Color{}, false
	}
	return Color{uint8(r), uint8(g), uint8(b), 255}, true
}

// parseRGBFunc parses "rgb(r, g, b)" where each component is either a
// decimal integer or a "0xNN" hex literal, per the original timg grammar
// (src/framebuffer.cc: ParseColor accepts both "%d" and "0x%x" forms).
func parseRGBFunc(s string) (Color, bool) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "rgb(") || !strings.HasSuffix(s, ")") {
		return Color{}, false
	}
	inner := s[4 : len(s)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return Color{}, false
	}
	var vals [3]int64
	for i, p := range parts {
		p = strings.TrimSpace(p)
		var v int64
		var err error
		if strings.HasPrefix(strings.ToLower(p), "0x") {
			u, e := strconv.ParseUint(p[2:], 16, 32)
			v, err = int64(u), e
		} else {
			v, err = strconv.ParseInt(p, 10, 32)
		}
		if err != nil {
			return Color{}, false
		}
		vals[i] = v
	}
	return Color{clampChannel(vals[0]), clampChannel(vals[1]), clampChannel(vals[2]), 255}, true
}

// lookupNamedColor resolves an X11/HTML color name via tcell's own name
// table (tcell.ColorNames), the only such table already present in the
// dependency graph this module's teacher carries.
func lookupNamedColor(name string) (Color, bool) {
	tc, ok := tcell.ColorNames[strings.ToLower(name)]
	if !ok {
		return Color{}, false
	}
	r, g, b := tc.RGB()
	if r < 0 || g < 0 || b < 0 {
		return Color{}, false
	}
	return Color{uint8(r), uint8(g), uint8(b), 255}, true
}

// Equal reports byte-for-byte equality of all four channels.
func (c Color) Equal(o Color) bool { return c == o }

// String renders the color as "#rrggbb" (or "none" when fully transparent),
// useful for diagnostics and title formatting.
func (c Color) String() string {
	if c.A == 0 {
		return "none"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// As256TermColor maps the color onto the standard xterm 256-color cube
// (16-231), with a grayscale bypass onto the 232-255 ramp when R==G==B,
// matching src/framebuffer.h's As256TermColor.
func (c Color) As256TermColor() uint8 {
	if c.R == c.G && c.G == c.B {
		return 232 + uint8(int(c.R)*23/255)
	}
	v2cube := func(v uint8) int {
		switch {
		case v < 0x5f/2:
			return 0
		case v < (0x5f+0x87)/2:
			return 1
		case v < (0x87+0xaf)/2:
			return 2
		case v < (0xaf+0xd7)/2:
			return 3
		case v < (0xd7+0xff)/2:
			return 4
		default:
			return 5
		}
	}
	return uint8(16 + 36*v2cube(c.R) + 6*v2cube(c.G) + v2cube(c.B))
}
