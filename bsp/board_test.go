//go:build !tinygo

package bsp

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBoardCounterWraps16(t *testing.T) {
	b := NewBoard[uint16]()
	b.SetTicks(0xFFFE)
	b.Tick()
	b.Tick()

	if got := b.Ticks(); got != 0 {
		t.Errorf("expected counter to wrap to 0, got 0x%04X", got)
	}

	b.Advance(0x20)
	if got := b.Ticks(); got != 0x20 {
		t.Errorf("expected 0x20, got 0x%04X", got)
	}
}

func TestBoardRaisePendsWhileDisabled(t *testing.T) {
	b := NewBoard[uint32]()
	var fired int

	b.EnterCritical()
	b.Raise(func() { fired++ })
	b.Poll()
	if fired != 0 {
		t.Fatal("handler ran with interrupts disabled")
	}

	b.ExitCritical()
	if fired != 1 {
		t.Fatalf("expected handler to run on exit, ran %d times", fired)
	}
	if !b.InterruptsEnabled() {
		t.Error("interrupts left disabled after dispatch")
	}
}

func TestBoardHandlerSeesDisabledInterrupts(t *testing.T) {
	b := NewBoard[uint32]()
	var sawEnabled bool

	b.Raise(func() {
		sawEnabled = b.InterruptsEnabled()
		// A handler may take the critical section itself.
		b.EnterCritical()
		b.ExitCritical()
	})
	b.Poll()

	if sawEnabled {
		t.Error("handler ran with interrupts enabled")
	}
	if !b.InterruptsEnabled() {
		t.Error("handler's critical section left interrupts disabled")
	}
}

func TestBoardRaiseFromGoroutines(t *testing.T) {
	b := NewBoard[uint32]()
	var wg sync.WaitGroup
	count := 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Raise(func() { count++ })
		}()
	}
	wg.Wait()
	b.Poll()

	if count != 8 {
		t.Errorf("expected 8 handlers, got %d", count)
	}
}

func TestBoardRun(t *testing.T) {
	b := NewBoard[uint32]()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		b.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for b.Ticks() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if b.Ticks() < 3 {
		t.Errorf("counter did not advance, ticks=%d", b.Ticks())
	}
}
