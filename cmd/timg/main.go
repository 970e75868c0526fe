// Command timg renders raster images inside a terminal using the
// escape-sequence and inline-graphics backends in this repository.
// Image/video decoding is intentionally not implemented here: this
// binary wires the full rendering pipeline -- framebuffer, canvas
// encoder, grid renderer, write sequencer -- end to end against a
// synthetic test-pattern source for each file argument it is given, so
// the pipeline is demonstrable and testable without a real decoder.
// Follows cmd/texelation/main.go's run()-returns-error,
// flag.NewFlagSet(ContinueOnError), and signal-forwarding shape.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/hzeller/timg-sub000/canvas"
	"github.com/hzeller/timg-sub000/dopts"
	"github.com/hzeller/timg-sub000/internal/tlog"
	"github.com/hzeller/timg-sub000/pixel"
	"github.com/hzeller/timg-sub000/render"
	"github.com/hzeller/timg-sub000/sequencer"
	"github.com/hzeller/timg-sub000/tclock"
	"github.com/hzeller/timg-sub000/termquery"
	"github.com/hzeller/timg-sub000/workpool"
)

// Exit codes: success, a file/image read failure, a bad command-line
// parameter, or stdout not being a terminal at all.
const (
	exitSuccess       = 0
	exitImageReadErr  = 1
	exitParameterErr  = 2
	exitNotATerminal  = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

type cliOptions struct {
	geometry     string
	grid         string
	protocol     string
	loops        int
	frames       int
	frameOffset  int
	bg           string
	pattern      string
	rotate       string
	center       bool
	upscale      bool
	upscaleInt   bool
	fitWidth     bool
	title        bool
	titleFormat  string
	scroll       bool
	scrollDelay  int
	use256Color  bool
	forceVideo   bool
	forceImage   bool
	files        []string
}

func parseFlags(args []string) (*cliOptions, error) {
	fs := flag.NewFlagSet("timg", flag.ContinueOnError)

	o := &cliOptions{}
	fs.StringVar(&o.geometry, "g", "", "output geometry WxH in pixels; defaults to the probed terminal size")
	fs.StringVar(&o.grid, "grid", "1x1", "grid layout ColsxRows for multiple images")
	fs.StringVar(&o.protocol, "p", "auto", "output protocol: auto, quarter, half, kitty, iterm2, sixel")
	fs.IntVar(&o.loops, "loops", -1, "number of times to loop an animation; -1 = forever")
	fs.IntVar(&o.frames, "frames", 0, "limit the number of frames shown per image; 0 = unlimited")
	fs.IntVar(&o.frameOffset, "frame-offset", 0, "skip this many frames at the start of an animation")
	fs.StringVar(&o.bg, "bg", "", "background color: name, #rrggbb, rgb(r,g,b), or none")
	fs.StringVar(&o.pattern, "pattern", "", "checkerboard pattern color, same grammar as -bg")
	fs.StringVar(&o.rotate, "rotate", "exif", "rotate mode: exif or off")
	fs.BoolVar(&o.center, "center", false, "center the image horizontally")
	fs.BoolVar(&o.upscale, "upscale", false, "allow enlarging images smaller than the geometry")
	fs.BoolVar(&o.upscaleInt, "upscale-integer", false, "when upscaling, use integer-only factors")
	fs.BoolVar(&o.fitWidth, "fit-width", false, "fit to the available width even if that crops height")
	fs.BoolVar(&o.title, "title", false, "show a title line above each image")
	fs.StringVar(&o.titleFormat, "title-format", os.Getenv("TIMG_DEFAULT_TITLE"), "title format string (%f %b %w %h %D)")
	fs.BoolVar(&o.scroll, "scroll", false, "scroll the image instead of a static display")
	fs.IntVar(&o.scrollDelay, "scroll-delay", 50, "milliseconds between scroll steps")
	fs.BoolVar(&o.use256Color, "256-color", false, "quantize to the xterm 256-color palette")
	fs.BoolVar(&o.forceVideo, "V", false, "force treating all arguments as video")
	fs.BoolVar(&o.forceImage, "I", false, "force treating all arguments as still images")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.files = fs.Args()
	return o, nil
}

// run implements the CLI end to end and returns the process exit code,
// so the actual pipeline logic is testable without calling os.Exit.
func run(args []string, out *os.File) int {
	opts, err := parseFlags(args)
	if err != nil {
		if err == flag.ErrHelp {
			return exitSuccess
		}
		return exitParameterErr
	}

	if !termquery.IsTerminal(out.Fd()) {
		tlog.Println("refusing to write graphics to a non-terminal stdout")
		return exitNotATerminal
	}

	width, height, cellXPx, cellYPx, err := resolveGeometry(opts.geometry)
	if err != nil {
		tlog.Printf("%v", err)
		return exitParameterErr
	}
	cols, rows, err := parseGrid(opts.grid)
	if err != nil {
		tlog.Printf("%v", err)
		return exitParameterErr
	}
	if len(opts.files) == 0 {
		tlog.Println("usage: timg [options] FILE...")
		return exitParameterErr
	}

	display := &dopts.DisplayOptions{
		Width:              width,
		Height:             height,
		CellXPx:            cellXPx,
		CellYPx:            cellYPx,
		CompressPixelLevel: 6,
		WidthStretch:       1.0,
		Upscale:            opts.upscale,
		UpscaleInteger:     opts.upscaleInt,
		FillWidth:          opts.fitWidth,
		CenterHorizontally: opts.center,
		ExifRotate:         opts.rotate != "off",
		ShowTitle:          opts.title,
		TitleFormat:        opts.titleFormat,
		ScrollAnimation:    opts.scroll,
		ScrollDelay:        opts.scrollDelay,
		AllowFrameSkipping: true,
		LocalAlphaHandling: true,
		BgPatternColor:     pixel.ParseColor(opts.pattern),
		PatternSize:        4,
	}
	if opts.bg != "" {
		bg := pixel.ParseColor(opts.bg)
		display.BgColorGetter = func() pixel.Color { return bg }
	}

	var interruptFlag int32
	seq := sequencer.New(out, display.AllowFrameSkipping, 64, &interruptFlag)
	pool := workpool.New(4)
	defer pool.Stop()

	c := newCanvas(opts.protocol, opts.use256Color, seq, display, pool)
	if off, ok := c.(interface{ CursorOff() }); ok {
		off.CursorOff()
	}

	stopSignals := forwardInterrupt(&interruptFlag)
	defer stopSignals()

	r := render.NewRenderer(c, display, cols, rows, tclock.Millis(0), tclock.Millis(0), &interruptFlag)

	exitCode := exitSuccess
	for _, file := range opts.files {
		if err := renderOneFile(file, r, display); err != nil {
			tlog.Printf("%s: %v", file, err)
			exitCode = exitImageReadErr
			continue
		}
		r.MaybeWaitBetweenImageSources()
	}

	if mc, ok := r.(*render.MultiColumnRenderer); ok {
		mc.Close()
	}
	if on, ok := c.(interface{ CursorOn() }); ok {
		on.CursorOn()
	}
	c.Destroy()
	seq.Close()
	return exitCode
}

// resolveGeometry parses a "-g WxH" flag, falling back to the probed
// terminal cell size (scaled to pixels by the probed font cell size)
// when no geometry was given.
func resolveGeometry(g string) (width, height, cellXPx, cellYPx int, err error) {
	cellXPx, cellYPx = 8, 16
	if g == "" {
		size := termquery.TermSize()
		if size.Cols <= 0 || size.Rows <= 0 {
			return 0, 0, 0, 0, fmt.Errorf("could not determine terminal size; pass -g WxH")
		}
		if size.FontWidthPx > 0 && size.FontHeightPx > 0 {
			cellXPx, cellYPx = size.FontWidthPx, size.FontHeightPx
		}
		return size.Cols * cellXPx, size.Rows * cellYPx, cellXPx, cellYPx, nil
	}
	w, h, ok := splitDims(g)
	if !ok {
		return 0, 0, 0, 0, fmt.Errorf("invalid -g geometry %q, expected WxH", g)
	}
	return w, h, cellXPx, cellYPx, nil
}

// parseGrid parses a "ColsxRows" grid layout flag.
func parseGrid(g string) (cols, rows int, err error) {
	cols, rows, ok := splitDims(g)
	if !ok || cols <= 0 || rows <= 0 {
		return 0, 0, fmt.Errorf("invalid -grid %q, expected ColsxRows", g)
	}
	return cols, rows, nil
}

// splitDims parses "AxB" into two positive integers.
func splitDims(s string) (a, b int, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != 'x' && s[i] != 'X' {
			continue
		}
		av, aerr := parsePositiveInt(s[:i])
		bv, berr := parsePositiveInt(s[i+1:])
		if aerr != nil || berr != nil {
			return 0, 0, false
		}
		return av, bv, true
	}
	return 0, 0, false
}

func parsePositiveInt(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	v := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		v = v*10 + int(ch-'0')
	}
	if v <= 0 {
		return 0, fmt.Errorf("must be positive: %q", s)
	}
	return v, nil
}

// newCanvas selects a canvas backend by protocol name. "auto" probes
// the terminal for an inline-graphics protocol (Kitty, then
// iTerm2/WezTerm) and falls back to the unicode block encoder, the
// universal fallback, when none is detected.
func newCanvas(protocol string, use256Color bool, seq *sequencer.Sequencer, opts *dopts.DisplayOptions, pool *workpool.Pool) canvas.Canvas {
	if protocol == "auto" {
		switch termquery.QuerySupportedGraphicsProtocol() {
		case termquery.GraphicsKitty:
			protocol = "kitty"
		case termquery.GraphicsITerm2:
			protocol = "iterm2"
		default:
			protocol = "half"
		}
	}
	switch protocol {
	case "kitty":
		return canvas.NewKittyGraphicsCanvas(seq, opts, pool)
	case "iterm2":
		return canvas.NewITerm2GraphicsCanvas(seq, opts, pool)
	case "sixel":
		return canvas.NewSixelCanvas(seq, opts, pool, false)
	case "quarter":
		return canvas.NewQuarterBlockCanvas(seq, use256Color)
	case "half":
		fallthrough
	default:
		return canvas.NewUnicodeBlockCanvas(seq, canvas.UseUpperBlockFromEnv(), use256Color)
	}
}

// renderOneFile opens file (verifying it is readable -- actual decode
// is out of scope) and renders one synthetic test-pattern frame sized
// to display through r.
func renderOneFile(file string, r render.Renderer, display *dopts.DisplayOptions) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	f.Close()

	write := r.RenderCB(file)
	fb := syntheticTestPattern(display.Width, display.Height)
	write(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})
	return nil
}

// forwardInterrupt arms SIGINT/SIGTERM handling: the first signal sets
// the shared interrupt flag, which lets the sequencer drain its
// in-flight queue and exit cleanly instead of the process dying
// mid-write. The returned func disarms it.
func forwardInterrupt(interruptReceived *int32) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			atomic.StoreInt32(interruptReceived, 1)
		case <-done:
		}
	}()
	return func() {
		close(done)
		signal.Stop(sigCh)
	}
}
