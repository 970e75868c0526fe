package canvas

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/hzeller/timg-sub000/dopts"
	"github.com/hzeller/timg-sub000/pixel"
	"github.com/hzeller/timg-sub000/sequencer"
	"github.com/hzeller/timg-sub000/tclock"
	"github.com/hzeller/timg-sub000/workpool"
)

func TestFramebufferToNRGBAForcesOpaqueWithoutAlpha(t *testing.T) {
	fb := pixel.New(2, 2)
	fb.Set(0, 0, pixel.Color{R: 1, G: 2, B: 3, A: 10})

	img := framebufferToNRGBA(fb, false)
	if !img.Opaque() {
		t.Fatalf("expected forced-opaque image when includeAlpha=false")
	}

	img2 := framebufferToNRGBA(fb, true)
	if img2.Opaque() {
		t.Fatalf("expected non-opaque image when includeAlpha=true and a pixel has partial alpha")
	}
}

func TestEncodeITerm2FrameProducesValidPNGAndEscape(t *testing.T) {
	fb := pixel.New(3, 3)
	fillSolid(fb, pixel.Color{R: 44, G: 55, B: 66, A: 255})
	opts := &dopts.DisplayOptions{CellXPx: 1, CellYPx: 2, LocalAlphaHandling: true}

	out, err := encodeITerm2Frame(0, 0, fb, opts)
	if err != nil {
		t.Fatalf("encodeITerm2Frame: %v", err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "\033]1337;File=size=") {
		t.Fatalf("unexpected prefix: %q", s[:40])
	}
	if !strings.Contains(s, ";width=3px;height=3px;inline=1:") {
		t.Fatalf("expected width/height fields, got %q", s)
	}
	if !strings.HasSuffix(s, "\007\n") {
		t.Fatalf("expected BEL+newline terminator, got %q", s[len(s)-4:])
	}

	colonIdx := strings.Index(s, "inline=1:") + len("inline=1:")
	b64 := s[colonIdx : len(s)-2]
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 3 {
		t.Fatalf("decoded PNG has wrong dimensions: %v", img.Bounds())
	}
}

func TestEncodeITerm2FrameRGBAWhenNotLocallyHandled(t *testing.T) {
	fb := pixel.New(2, 2)
	fb.Set(0, 0, pixel.Color{R: 1, G: 2, B: 3, A: 128})
	opts := &dopts.DisplayOptions{CellXPx: 1, CellYPx: 2, LocalAlphaHandling: false}

	out, err := encodeITerm2Frame(0, 0, fb, opts)
	if err != nil {
		t.Fatalf("encodeITerm2Frame: %v", err)
	}
	colonIdx := strings.Index(string(out), "inline=1:") + len("inline=1:")
	b64 := string(out)[colonIdx : len(out)-2]
	raw, _ := base64.StdEncoding.DecodeString(b64)
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not a valid PNG: %v", err)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a == 0xffff {
		t.Fatalf("expected a partially-transparent pixel to survive into the PNG")
	}
}

func TestITerm2CanvasSendEnqueuesFrame(t *testing.T) {
	sink := &sinkWriter{}
	seq := sequencer.New(sink, false, 8, nil)
	seq.DebugNoFrameDelay(true)
	pool := workpool.New(2)
	defer pool.Stop()

	opts := &dopts.DisplayOptions{CellXPx: 1, CellYPx: 2, LocalAlphaHandling: true}
	c := NewITerm2GraphicsCanvas(seq, opts, pool)

	fb := pixel.New(2, 2)
	fillSolid(fb, pixel.Color{R: 7, G: 7, B: 7, A: 255})
	if err := c.Send(0, 0, fb, sequencer.FrameImmediate, tclock.Duration{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	seq.Flush()

	if !strings.HasPrefix(sink.joined(), "\033]1337;File=") {
		t.Fatalf("expected iTerm2 escape sequence, got %q", sink.joined())
	}
}
