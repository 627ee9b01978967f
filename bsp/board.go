package bsp

import (
	"context"
	"time"
)

// Board is the default board support: a Counter driven by a periodic tick
// and a Critical over the system interrupt controller.
type Board[T Tick] struct {
	Counter[T]
	*Critical

	irq *systemIRQ
}

// NewBoard creates a board whose counter starts at zero. Nothing advances
// the counter until Run is started or the caller ticks it by hand.
func NewBoard[T Tick]() *Board[T] {
	irq := newSystemIRQ()
	return &Board[T]{
		Critical: NewCritical(irq),
		irq:      irq,
	}
}

// Run advances the counter once per period until ctx is done. It stands in
// for the hardware tick interrupt and is meant to run in its own goroutine.
func (b *Board[T]) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick()
		}
	}
}
