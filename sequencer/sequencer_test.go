package sequencer

import (
	"bytes"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hzeller/timg-sub000/tclock"
)

func TestImmediateWritesPreserveOrderAndStats(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, true, 8, nil)

	s.EnqueueBuffer([]byte("A"), FrameImmediate, tclock.Duration{})
	s.EnqueueBuffer([]byte("B"), FrameImmediate, tclock.Duration{})
	s.EnqueueBuffer([]byte("C"), FrameImmediate, tclock.Duration{})
	s.Flush()

	if got := buf.String(); got != "ABC" {
		t.Fatalf("got %q want %q", got, "ABC")
	}
	if s.FramesTotal() != 3 || s.BytesTotal() != 3 || s.FramesSkipped() != 0 {
		t.Fatalf("stats mismatch: frames=%d bytes=%d skipped=%d",
			s.FramesTotal(), s.BytesTotal(), s.FramesSkipped())
	}
}

func TestAnimationFrameTimingNoSkip(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, true, 8, nil)

	s.EnqueueBuffer([]byte("A"), StartOfAnimation, tclock.Duration{})
	s.EnqueueBuffer([]byte("B"), AnimationFrame, tclock.Millis(100))
	s.EnqueueBuffer([]byte("C"), AnimationFrame, tclock.Millis(200))

	start := time.Now()
	s.Flush()
	elapsed := time.Since(start)

	if elapsed < 200*time.Millisecond || elapsed >= 250*time.Millisecond {
		t.Fatalf("expected flush to take [200ms,250ms), took %v", elapsed)
	}
	if s.FramesTotal() != 3 {
		t.Fatalf("expected 3 writes, got %d", s.FramesTotal())
	}
	if got := buf.String(); got != "ABC" {
		t.Fatalf("got %q want %q", got, "ABC")
	}
}

func TestAnimationFrameSkipOnLag(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, true, 8, nil)

	s.EnqueueBuffer([]byte("A"), StartOfAnimation, tclock.Duration{})
	s.Flush()

	// Simulate the worker having fallen behind by 400ms before processing
	// item 2, by sleeping here before enqueueing it: since animation_start
	// was fixed at item 1's processing time, this reproduces the original
	// scenario's "worker delayed 400ms before item 2".
	time.Sleep(400 * time.Millisecond)

	s.EnqueueBuffer([]byte("B"), AnimationFrame, tclock.Millis(100))
	s.EnqueueBuffer([]byte("C"), AnimationFrame, tclock.Millis(200))
	s.Flush()

	if s.FramesSkipped() != 1 {
		t.Fatalf("expected exactly 1 skipped frame, got %d", s.FramesSkipped())
	}
	if s.BytesTotal() != 3 {
		t.Fatalf("skipped frame's bytes must still count toward bytes_total, got %d", s.BytesTotal())
	}
	if got := buf.String(); got != "AC" {
		t.Fatalf("expected skipped frame's bytes to be omitted from the stream, got %q", got)
	}
}

func TestInterruptDiscardsNonControlItems(t *testing.T) {
	var buf bytes.Buffer
	var interrupt int32
	s := New(&buf, true, 8, &interrupt)
	s.DebugNoFrameDelay(true)

	s.EnqueueBuffer([]byte("A"), FrameImmediate, tclock.Duration{})
	s.Flush()

	atomic.StoreInt32(&interrupt, 1)
	s.EnqueueBuffer([]byte("B"), FrameImmediate, tclock.Duration{})
	s.EnqueueBuffer([]byte("C"), FrameImmediate, tclock.Duration{})
	s.Flush()

	if got := buf.String(); got != "A" {
		t.Fatalf("post-interrupt items should be discarded, got %q", got)
	}
	if s.FramesTotal() != 1 || s.BytesTotal() != 1 {
		t.Fatalf("discarded items must not contribute to statistics, got frames=%d bytes=%d",
			s.FramesTotal(), s.BytesTotal())
	}
}

func TestCloseTerminatesWorker(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, false, 4, nil)
	s.EnqueueBuffer([]byte("X"), FrameImmediate, tclock.Duration{})
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "X" {
		t.Fatalf("got %q want %q", got, "X")
	}
}

func TestQueueBlocksProducerWhenFull(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, false, 1, nil)
	defer s.Close()

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			s.EnqueueBuffer([]byte("x"), FrameImmediate, tclock.Duration{})
		}()
	}
	go func() {
		s.Flush()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("flush never completed; producers may have deadlocked")
	}
}
