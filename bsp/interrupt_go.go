//go:build !tinygo

package bsp

import "sync"

// State is the saved interrupt state on regular Go
type State uintptr

const (
	stateDisabled State = 0
	stateEnabled  State = 1
)

// systemIRQ emulates a single-core interrupt controller. Handlers raised
// from other goroutines are pended and run on the goroutine that owns the
// critical section, at the moment interrupts become enabled again.
type systemIRQ struct {
	enabled bool // only touched by the main loop and the handlers it runs

	mu      sync.Mutex
	pending []func()
}

func newSystemIRQ() *systemIRQ {
	return &systemIRQ{enabled: true}
}

// Disable disables interrupts and returns the previous state
func (q *systemIRQ) Disable() State {
	prev := q.enabled
	q.enabled = false
	if prev {
		return stateEnabled
	}
	return stateDisabled
}

// Restore restores the interrupt state and runs pended handlers if that
// re-enabled interrupts
func (q *systemIRQ) Restore(state State) {
	q.enabled = state == stateEnabled
	if q.enabled {
		q.dispatch()
	}
}

func (q *systemIRQ) raise(isr func()) {
	q.mu.Lock()
	q.pending = append(q.pending, isr)
	q.mu.Unlock()
}

// dispatch runs pended handlers with interrupts disabled, as hardware would
func (q *systemIRQ) dispatch() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		isr := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.enabled = false
		isr()
		q.enabled = true
	}
}

// Raise pends an interrupt handler. It is safe to call from any goroutine;
// the handler runs on the main loop at the next point interrupts are enabled
// (the outermost ExitCritical, or Poll).
func (b *Board[T]) Raise(isr func()) {
	b.irq.raise(isr)
}

// Poll runs pended interrupt handlers if interrupts are currently enabled.
// Call it from the main loop between Process calls.
func (b *Board[T]) Poll() {
	if b.irq.enabled {
		b.irq.dispatch()
	}
}

// InterruptsEnabled reports the emulated interrupt enable flag
func (b *Board[T]) InterruptsEnabled() bool {
	return b.irq.enabled
}
