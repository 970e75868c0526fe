// Package sequencer implements the last step before bytes reach the
// terminal: a bounded FIFO of pending writes, a single writer goroutine,
// and the absolute-deadline animation timing model.
package sequencer

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/hzeller/timg-sub000/tclock"
	"github.com/hzeller/timg-sub000/workpool"
)

// SeqType selects the timing behavior applied to a work item before it
// is written.
type SeqType int

const (
	// StartOfAnimation records the animation's time origin and never waits.
	StartOfAnimation SeqType = iota
	// AnimationFrame waits until animation_start+end_of_frame, unless that
	// deadline has already slipped by more than AllowedSkew and frame
	// skipping is enabled, in which case the write is skipped entirely.
	AnimationFrame
	// FrameImmediate writes without any wait.
	FrameImmediate
	// ControlWrite is a sequencer-internal bookkeeping item (flush
	// sentinel, exit sentinel); it never waits and is excluded from
	// statistics.
	ControlWrite
)

// AllowedSkew is the maximum a frame's deadline may have already passed
// before frame skipping (if enabled) kicks in.
var AllowedSkew = tclock.Millis(250)

// OutBuffer is the payload handed to the sequencer. A nil Buf is the
// internal exit sentinel.
type OutBuffer struct {
	Buf []byte
}

type workItem struct {
	future     *workpool.Future[OutBuffer]
	seqType    SeqType
	endOfFrame tclock.Duration
	ack        chan struct{}
}

// Sequencer owns the only write path to its destination. Exactly one
// goroutine ever calls Write on dst.
type Sequencer struct {
	dst                io.Writer
	allowFrameSkipping bool
	debugNoFrameDelay  bool
	interruptReceived  *int32 // shared atomic flag; nil means "never interrupted"

	queue chan workItem
	done  chan struct{}

	statsMu       sync.Mutex
	bytesTotal    int64
	bytesSkipped  int64
	framesTotal   int64
	framesSkipped int64
	writeErr      error
}

// New starts the sequencer's worker goroutine, writing to dst.
// maxQueueLen bounds how many pending items may be enqueued before
// Enqueue blocks the producer. interruptReceived, if non-nil, is an
// externally-owned flag (set with atomic.StoreInt32) that causes
// in-flight non-ControlWrite items to be discarded once set.
func New(dst io.Writer, allowFrameSkipping bool, maxQueueLen int, interruptReceived *int32) *Sequencer {
	if maxQueueLen < 1 {
		maxQueueLen = 1
	}
	s := &Sequencer{
		dst:                dst,
		allowFrameSkipping: allowFrameSkipping,
		interruptReceived:  interruptReceived,
		queue:              make(chan workItem, maxQueueLen),
		done:               make(chan struct{}),
	}
	go s.run()
	return s
}

// DebugNoFrameDelay disables the WaitUntil sleep in AnimationFrame
// handling, for deterministic tests; it mirrors the original's
// debug_no_frame_delay_ constructor argument.
func (s *Sequencer) DebugNoFrameDelay(v bool) { s.debugNoFrameDelay = v }

// EnqueueFuture pushes a not-yet-resolved write, blocking while the
// queue is full. FIFO order is guaranteed relative to other Enqueue*
// calls on the same Sequencer.
func (s *Sequencer) EnqueueFuture(f *workpool.Future[OutBuffer], seqType SeqType, endOfFrame tclock.Duration) {
	s.queue <- workItem{future: f, seqType: seqType, endOfFrame: endOfFrame}
}

// EnqueueBuffer is a convenience wrapping an already-ready buffer in a
// resolved future.
func (s *Sequencer) EnqueueBuffer(buf []byte, seqType SeqType, endOfFrame tclock.Duration) {
	s.EnqueueFuture(workpool.Resolved(OutBuffer{Buf: buf}), seqType, endOfFrame)
}

// Flush enqueues a one-byte ControlWrite sentinel and blocks until it
// has been processed. Since the worker handles items strictly in FIFO
// order, every item enqueued before Flush was called has by then
// completed its write (or been discarded).
func (s *Sequencer) Flush() {
	ack := make(chan struct{})
	s.queue <- workItem{
		future:  workpool.Resolved(OutBuffer{Buf: []byte{0}}),
		seqType: ControlWrite,
		ack:     ack,
	}
	<-ack
}

// Close flushes, then enqueues the null-buffer exit sentinel and waits
// for the worker goroutine to terminate. The Sequencer must not be used
// afterwards.
func (s *Sequencer) Close() error {
	s.Flush()
	s.queue <- workItem{
		future:  workpool.Resolved(OutBuffer{Buf: nil}),
		seqType: ControlWrite,
	}
	<-s.done
	return s.writeErr
}

func (s *Sequencer) interrupted() bool {
	return s.interruptReceived != nil && atomic.LoadInt32(s.interruptReceived) != 0
}

func (s *Sequencer) run() {
	defer close(s.done)

	var animationStart tclock.Time

	for item := range s.queue {
		out := item.future.Wait()
		if out.Buf == nil {
			return
		}

		if s.interrupted() && item.seqType != ControlWrite {
			// Drain quickly on interrupt, but control bytes (flush/exit
			// sentinels) are never discarded.
			if item.ack != nil {
				close(item.ack)
			}
			continue
		}

		skip := false
		switch item.seqType {
		case StartOfAnimation:
			animationStart = tclock.Now()
		case AnimationFrame:
			// end_of_frame is the absolute time, relative to
			// animation_start, at which this frame's write should
			// complete. A zero value means "no deadline yet" (the
			// first frame of an animation, written without delay).
			if !item.endOfFrame.IsZero() {
				deadline := animationStart.Add(item.endOfFrame)
				skip = s.allowFrameSkipping && deadline.Add(AllowedSkew).Before(tclock.Now())
				if !s.debugNoFrameDelay {
					deadline.WaitUntil()
				}
			}
		case FrameImmediate, ControlWrite:
			// No wait.
		}

		// The flush/exit sentinel's byte value is unspecified upstream;
		// short-circuit the actual write for small control buffers.
		if !skip && !(item.seqType == ControlWrite && len(out.Buf) <= 1) {
			if err := s.reliableWrite(out.Buf); err != nil && s.writeErr == nil {
				s.writeErr = err
			}
		}

		if item.seqType != ControlWrite {
			s.statsMu.Lock()
			s.bytesTotal += int64(len(out.Buf))
			s.framesTotal++
			if skip {
				s.bytesSkipped += int64(len(out.Buf))
				s.framesSkipped++
			}
			s.statsMu.Unlock()
		}

		if item.ack != nil {
			close(item.ack)
		}
	}
}

// reliableWrite loops until the entire buffer is written or an error
// occurs, matching ReliableWrite in the original C++.
func (s *Sequencer) reliableWrite(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	for len(buf) > 0 {
		n, err := s.dst.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		buf = buf[n:]
	}
	return nil
}

func (s *Sequencer) BytesTotal() int64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.bytesTotal
}

func (s *Sequencer) BytesSkipped() int64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.bytesSkipped
}

func (s *Sequencer) FramesTotal() int64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.framesTotal
}

func (s *Sequencer) FramesSkipped() int64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.framesSkipped
}
