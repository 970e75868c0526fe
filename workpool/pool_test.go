package workpool

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestExecAsyncReturnsValue(t *testing.T) {
	p := New(2)
	defer p.Stop()

	f := ExecAsync(p, func() int { return 42 })
	if got := f.Wait(); got != 42 {
		t.Fatalf("got %d want 42", got)
	}
}

func TestExecAsyncRunsConcurrently(t *testing.T) {
	p := New(4)
	defer p.Stop()

	var running int32
	var maxRunning int32
	block := make(chan struct{})

	futures := make([]*Future[struct{}], 0, 4)
	for i := 0; i < 4; i++ {
		futures = append(futures, ExecAsync(p, func() struct{} {
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&maxRunning)
				if n <= old || atomic.CompareAndSwapInt32(&maxRunning, old, n) {
					break
				}
			}
			<-block
			atomic.AddInt32(&running, -1)
			return struct{}{}
		}))
	}
	time.Sleep(20 * time.Millisecond)
	close(block)
	for _, f := range futures {
		f.Wait()
	}
	if atomic.LoadInt32(&maxRunning) < 2 {
		t.Fatalf("expected at least 2 tasks to run concurrently, max was %d", maxRunning)
	}
}

func TestResolvedIsImmediatelyReady(t *testing.T) {
	f := Resolved(7)
	if !f.Ready() {
		t.Fatalf("Resolved future should report Ready immediately")
	}
	if got := f.Wait(); got != 7 {
		t.Fatalf("got %d want 7", got)
	}
}

func TestExecBlocksUntilDone(t *testing.T) {
	p := New(1)
	defer p.Stop()

	var ran int32
	Exec(p, func() { atomic.StoreInt32(&ran, 1) })
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("Exec should not return before fn completes")
	}
}

func TestStopWaitsForInFlightTasks(t *testing.T) {
	p := New(1)
	started := make(chan struct{})
	finished := make(chan struct{})
	ExecAsync(p, func() int {
		close(started)
		time.Sleep(10 * time.Millisecond)
		close(finished)
		return 0
	})
	<-started
	p.Stop()
	select {
	case <-finished:
	default:
		t.Fatalf("Stop returned before in-flight task finished")
	}
}
