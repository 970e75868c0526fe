// Package termquery probes the controlling terminal for its cell
// geometry, default background color, and supported inline-graphics
// protocol.
package termquery

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// Size is the result of probing the terminal's cell geometry. Fields
// that could not be determined are left at -1 (cols/rows) or zero
// (cell pixel dimensions), matching TermSizeResult's "not available"
// convention.
type Size struct {
	Cols, Rows   int
	FontWidthPx  int
	FontHeightPx int
}

// TermSize probes TIOCGWINSZ on stdout, stderr, then stdin in turn,
// stopping at the first descriptor that answers. When the reported
// pixel dimensions are present and pass a basic plausibility check
// (enough pixels per cell to be a real font, not a placeholder), the
// font cell size in pixels is derived too. Grounded on
// DetermineTermSize.
func TermSize() Size {
	result := Size{Cols: -1, Rows: -1}
	for _, fd := range []int{int(os.Stdout.Fd()), int(os.Stderr.Fd()), int(os.Stdin.Fd())} {
		ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
		if err != nil {
			continue
		}
		if ws.Xpixel >= 2*ws.Col && ws.Ypixel >= 4*ws.Row && ws.Col > 0 && ws.Row > 0 {
			result.FontWidthPx = int(ws.Xpixel) / int(ws.Col)
			result.FontHeightPx = int(ws.Ypixel) / int(ws.Row)
		}
		result.Cols = int(ws.Col)
		result.Rows = int(ws.Row)
		break
	}
	return result
}

// IsTerminal reports whether fd refers to an interactive terminal,
// wrapping go-isatty for the exit-code-3 "not a terminal" check.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd)
}
