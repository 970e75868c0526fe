package pixel

import (
	"image/color"
	"testing"
)

func TestNewFramebufferIsClearedTransparent(t *testing.T) {
	fb := New(3, 2)
	if fb.Width() != 3 || fb.Height() != 2 {
		t.Fatalf("unexpected dims %dx%d", fb.Width(), fb.Height())
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if got := fb.PixelAt(x, y); got != Transparent {
				t.Fatalf("(%d,%d) = %+v, want Transparent", x, y, got)
			}
		}
	}
}

func TestNewPanicsOnBadDimensions(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for non-positive dimensions")
		}
	}()
	New(0, 1)
}

func TestSetOutOfBoundsIsSilentlyIgnored(t *testing.T) {
	fb := New(2, 2)
	fb.Set(-1, 0, Color{1, 2, 3, 255})
	fb.Set(5, 5, Color{1, 2, 3, 255})
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := fb.PixelAt(x, y); got != Transparent {
				t.Fatalf("out-of-bounds Set mutated (%d,%d): %+v", x, y, got)
			}
		}
	}
}

func TestPixelAtPanicsOutOfBounds(t *testing.T) {
	fb := New(1, 1)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-bounds read")
		}
	}()
	fb.PixelAt(1, 0)
}

func TestSetThenPixelAt(t *testing.T) {
	fb := New(4, 4)
	c := Color{10, 20, 30, 255}
	fb.Set(2, 3, c)
	if got := fb.PixelAt(2, 3); got != c {
		t.Fatalf("got %+v want %+v", got, c)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	fb := New(2, 2)
	fb.Set(0, 0, Color{1, 1, 1, 255})
	clone := fb.Clone()
	clone.Set(0, 0, Color{9, 9, 9, 255})
	if got := fb.PixelAt(0, 0); got != (Color{1, 1, 1, 255}) {
		t.Fatalf("mutating clone affected original: %+v", got)
	}
}

func TestRowPointersReflectUnderlyingData(t *testing.T) {
	fb := New(3, 2)
	fb.Set(1, 1, Color{7, 7, 7, 255})
	rows := fb.RowPointers()
	if len(rows) != 2 || len(rows[1]) != 3 {
		t.Fatalf("unexpected row shape")
	}
	if got := rows[1][1]; got != (Color{7, 7, 7, 255}) {
		t.Fatalf("row pointer out of sync with pixel data: %+v", got)
	}
}

func TestClearResetsAllPixels(t *testing.T) {
	fb := New(2, 2)
	fb.Set(0, 0, Color{5, 5, 5, 255})
	fb.Set(1, 1, Color{6, 6, 6, 255})
	fb.Clear()
	for _, p := range fb.Pix() {
		if p != Transparent {
			t.Fatalf("Clear left a non-transparent pixel: %+v", p)
		}
	}
}

func TestFramebufferSatisfiesImageImage(t *testing.T) {
	fb := New(2, 2)
	fb.Set(0, 0, Color{1, 2, 3, 255})
	got := fb.At(0, 0)
	want := color.NRGBA{R: 1, G: 2, B: 3, A: 255}
	if got != want {
		t.Fatalf("At(0,0) = %+v, want %+v", got, want)
	}
	b := fb.Bounds()
	if b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("unexpected bounds %+v", b)
	}
}
