package sem

import (
	"sync"
	"testing"

	"safetimer/bsp"
	"safetimer/bsp/mockbsp"
)

func TestSignalAndTake(t *testing.T) {
	m := mockbsp.New[uint32]()
	var s Sem
	s.Init(m)

	if s.TryTake(m) {
		t.Fatal("took a signal from an empty semaphore")
	}
	s.Signal(m)
	s.Signal(m)
	if got := s.Load(m); got != 2 {
		t.Fatalf("expected 2 pending, got %d", got)
	}
	if !s.TryTake(m) || !s.TryTake(m) || s.TryTake(m) {
		t.Error("expected exactly two successful takes")
	}
	if m.Nesting() != 0 {
		t.Errorf("critical section left open, depth %d", m.Nesting())
	}
}

func TestSignalSaturates(t *testing.T) {
	m := mockbsp.New[uint16]()
	var s Sem
	for i := 0; i < 300; i++ {
		s.Signal(m)
	}
	if s != Max {
		t.Errorf("expected saturation at %d, got %d", Max, s)
	}
	s.SignalSafe(m)
	if s != Max {
		t.Errorf("SignalSafe overflowed to %d", s)
	}
}

func TestTimeoutInteraction(t *testing.T) {
	m := mockbsp.New[uint32]()
	var s Sem

	if !s.SetTimeout(m) || !s.TimedOut() {
		t.Fatal("SetTimeout did not mark an empty semaphore")
	}
	if s.TryTake(m) {
		t.Error("took from a timed-out semaphore")
	}

	s.SignalSafe(m)
	if !s.TimedOut() {
		t.Error("SignalSafe cleared the timeout")
	}

	s.Signal(m)
	if s.Load(m) != 1 {
		t.Errorf("Signal on timeout: expected 1, got %d", s.Load(m))
	}

	if s.SetTimeout(m) {
		t.Error("SetTimeout overwrote a pending signal")
	}

	var c Sem = Timeout
	c.ClearTimeout(m)
	if c != 0 {
		t.Errorf("ClearTimeout left %d", c)
	}
	c = 3
	c.ClearTimeout(m)
	if c != 3 {
		t.Errorf("ClearTimeout dropped pending signals: %d", c)
	}
}

// Signals raised from other goroutines are pended by the host board and
// dispatched while the main goroutine leaves its critical sections.
func TestSignalFromInterrupt(t *testing.T) {
	board := bsp.NewBoard[uint32]()
	var s Sem

	const producers, perProducer = 4, 10
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				board.Raise(func() { s.Signal(board) })
			}
		}()
	}
	wg.Wait()

	taken := 0
	for taken < producers*perProducer {
		board.Poll()
		if !s.TryTake(board) {
			t.Fatalf("only %d of %d signals arrived", taken, producers*perProducer)
		}
		taken++
	}
	if s.Load(board) != 0 {
		t.Errorf("expected empty semaphore, got %d", s.Load(board))
	}
}
