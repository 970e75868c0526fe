package render

import (
	"testing"

	"github.com/hzeller/timg-sub000/dopts"
	"github.com/hzeller/timg-sub000/pixel"
	"github.com/hzeller/timg-sub000/sequencer"
	"github.com/hzeller/timg-sub000/tclock"
)

// fakeCanvas records every call it receives, in order, for assertion.
type fakeCanvas struct {
	sends  []sendCall
	dy     []int
	dx     []int
	prefix [][]byte
}

type sendCall struct {
	x, dy  int
	height int
}

func (f *fakeCanvas) CellHeightForPixels(pixels int) int { return pixels }
func (f *fakeCanvas) Destroy()                           {}
func (f *fakeCanvas) AddPrefixNextSend(buf []byte)       { f.prefix = append(f.prefix, buf) }
func (f *fakeCanvas) MoveCursorDY(rows int)              { f.dy = append(f.dy, rows) }
func (f *fakeCanvas) MoveCursorDX(cols int)              { f.dx = append(f.dx, cols) }

func (f *fakeCanvas) Send(x, dy int, fb *pixel.Framebuffer, seqType sequencer.SeqType, endOfFrame tclock.Duration) error {
	f.sends = append(f.sends, sendCall{x: x, dy: dy, height: fb.Height()})
	return nil
}

func testOpts() *dopts.DisplayOptions {
	return &dopts.DisplayOptions{Width: 80, CellXPx: 8, CellYPx: 16}
}

func TestSingleColumnRendererForwardsUnchanged(t *testing.T) {
	fc := &fakeCanvas{}
	r := NewSingleColumnRenderer(fc, testOpts(), tclock.Duration{}, nil)
	write := r.RenderCB("ignored, no title")
	fb := pixel.New(10, 10)
	write(3, -5, fb, sequencer.FrameImmediate, tclock.Duration{})

	if len(fc.sends) != 1 || fc.sends[0].x != 3 || fc.sends[0].dy != -5 {
		t.Fatalf("unexpected sends: %+v", fc.sends)
	}
	if len(fc.prefix) != 0 {
		t.Fatalf("expected no title prefix when ShowTitle is false, got %v", fc.prefix)
	}
}

func TestSingleColumnRendererEmitsTrimmedTitlePrefix(t *testing.T) {
	fc := &fakeCanvas{}
	opts := testOpts()
	opts.ShowTitle = true
	r := NewSingleColumnRenderer(fc, opts, tclock.Duration{}, nil)
	r.RenderCB("my-title")

	if len(fc.prefix) != 1 {
		t.Fatalf("expected exactly one queued prefix, got %d", len(fc.prefix))
	}
	if string(fc.prefix[0]) != "my-title\n" {
		t.Fatalf("got %q", fc.prefix[0])
	}
}

func TestMultiColumnRendererOffsetsByColumn(t *testing.T) {
	fc := &fakeCanvas{}
	opts := testOpts()
	r := NewMultiColumnRenderer(fc, opts, 3, 1, tclock.Duration{}, tclock.Duration{}, nil)

	write0 := r.RenderCB("")
	fb := pixel.New(80, 20)
	write0(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})

	write1 := r.RenderCB("")
	write1(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})

	if len(fc.sends) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(fc.sends))
	}
	if fc.sends[0].x != 0 {
		t.Fatalf("first column x-offset should be 0, got %d", fc.sends[0].x)
	}
	if fc.sends[1].x != 80 {
		t.Fatalf("second column x-offset should be columnWidth=80, got %d", fc.sends[1].x)
	}
	// Second image is in column>0 on its first frame: y-offset pulls up
	// by the previous image's height.
	if fc.sends[1].dy != -20 {
		t.Fatalf("expected y-offset -20 (previous column height), got %d", fc.sends[1].dy)
	}
}

func TestMultiColumnRendererWrapsAfterLastColumn(t *testing.T) {
	fc := &fakeCanvas{}
	opts := testOpts()
	r := NewMultiColumnRenderer(fc, opts, 2, 1, tclock.Duration{}, tclock.Duration{}, nil)

	fb := pixel.New(80, 20)
	r.RenderCB("")(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})
	r.RenderCB("")(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})
	// Third image wraps back to column 0 of a new row.
	r.RenderCB("")(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})

	if len(fc.sends) != 3 {
		t.Fatalf("expected 3 sends, got %d", len(fc.sends))
	}
	if fc.sends[2].x != 0 {
		t.Fatalf("wrapped image should be back at x-offset 0, got %d", fc.sends[2].x)
	}
}

func TestMultiColumnRendererShowTitleMovesCursorAndQueuesPrefix(t *testing.T) {
	fc := &fakeCanvas{}
	opts := testOpts()
	opts.ShowTitle = true
	r := NewMultiColumnRenderer(fc, opts, 2, 1, tclock.Duration{}, tclock.Duration{}, nil)

	fb := pixel.New(80, 32)
	r.RenderCB("first")(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})
	if len(fc.prefix) != 1 || string(fc.prefix[0]) != "first\n" {
		t.Fatalf("expected title prefix queued for first image, got %v", fc.prefix)
	}

	write1 := r.RenderCB("second")
	write1(0, -32, fb, sequencer.FrameImmediate, tclock.Duration{})
	if len(fc.prefix) != 2 || string(fc.prefix[1]) != "second\n" {
		t.Fatalf("expected title prefix queued for second image, got %v", fc.prefix)
	}
	// Column > 0 with a title: cursor must move up before Send, and the
	// title line is placed at the column via MoveCursorDX (Send still
	// receives the column offset in its own x argument for the image).
	if len(fc.dx) == 0 || fc.dx[len(fc.dx)-1] != 80/opts.CellXPx {
		t.Fatalf("expected MoveCursorDX to the second column, got %v", fc.dx)
	}
	if len(fc.dy) == 0 {
		t.Fatalf("expected a MoveCursorDY call to make room for the title")
	}
}

func TestMultiColumnRendererCloseParksCursorBelowTallestColumn(t *testing.T) {
	fc := &fakeCanvas{}
	opts := testOpts()
	r := NewMultiColumnRenderer(fc, opts, 3, 1, tclock.Duration{}, tclock.Duration{}, nil)

	tall := pixel.New(80, 48)
	short := pixel.New(80, 16)
	r.RenderCB("")(0, 0, tall, sequencer.FrameImmediate, tclock.Duration{})
	r.RenderCB("")(0, 0, short, sequencer.FrameImmediate, tclock.Duration{})

	r.Close()
	if len(fc.dy) == 0 {
		t.Fatalf("expected Close to move the cursor down to clear the tallest column")
	}
	want := (48 - 16) / opts.CellYPx
	if got := fc.dy[len(fc.dy)-1]; got != want {
		t.Fatalf("got MoveCursorDY(%d), want %d", got, want)
	}
}

func TestMultiColumnRendererCloseNoOpAtColumnZero(t *testing.T) {
	fc := &fakeCanvas{}
	opts := testOpts()
	r := NewMultiColumnRenderer(fc, opts, 2, 1, tclock.Duration{}, tclock.Duration{}, nil)
	fb := pixel.New(80, 20)
	// Three RenderCB calls on a 2-wide grid: the third wraps back to
	// column 0, so Close() afterwards should be a no-op.
	r.RenderCB("")(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})
	r.RenderCB("")(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})
	r.RenderCB("")(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{})
	before := len(fc.dy)
	r.Close()
	if len(fc.dy) != before {
		t.Fatalf("expected no additional MoveCursorDY at column 0, got %v", fc.dy)
	}
}

func TestNewRendererSelectsByColumnCount(t *testing.T) {
	fc := &fakeCanvas{}
	opts := testOpts()
	if _, ok := NewRenderer(fc, opts, 1, 1, tclock.Duration{}, tclock.Duration{}, nil).(*SingleColumnRenderer); !ok {
		t.Fatalf("expected SingleColumnRenderer for cols<=1")
	}
	if _, ok := NewRenderer(fc, opts, 4, 1, tclock.Duration{}, tclock.Duration{}, nil).(*MultiColumnRenderer); !ok {
		t.Fatalf("expected MultiColumnRenderer for cols>1")
	}
}

func TestMaybeWaitBetweenImageSourcesReturnsImmediatelyWhenZero(t *testing.T) {
	fc := &fakeCanvas{}
	r := NewSingleColumnRenderer(fc, testOpts(), tclock.Duration{}, nil)
	r.MaybeWaitBetweenImageSources() // must not block
}

func TestSleepInterruptibleReturnsEarlyOnInterrupt(t *testing.T) {
	var flag int32 = 1
	sleepInterruptible(tclock.Millis(5000), &flag)
	// If this returns at all within the test's default timeout, the
	// interrupt check short-circuited the sleep.
}
