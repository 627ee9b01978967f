//go:build tinygo

package bsp

import "runtime/interrupt"

// State is the saved interrupt state
type State = interrupt.State

type systemIRQ struct{}

func newSystemIRQ() *systemIRQ {
	return &systemIRQ{}
}

// Disable disables interrupts and returns the previous state
func (q *systemIRQ) Disable() State {
	return interrupt.Disable()
}

// Restore restores the interrupt state
func (q *systemIRQ) Restore(state State) {
	interrupt.Restore(state)
}

// Raise runs isr immediately. On hardware, interrupt handlers are entered by
// the NVIC; this exists so board-independent code can share one call path.
func (b *Board[T]) Raise(isr func()) {
	state := interrupt.Disable()
	isr()
	interrupt.Restore(state)
}

// Poll is a no-op on hardware: real interrupts need no polling.
func (b *Board[T]) Poll() {}

// InterruptsEnabled reports whether interrupts are enabled
func (b *Board[T]) InterruptsEnabled() bool {
	return !interrupt.In() && b.Depth() == 0
}
