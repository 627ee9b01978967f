// Package mockbsp is a strict board for tests. Time only moves when the test
// moves it, and an ExitCritical without a matching EnterCritical panics
// instead of being ignored, so balance bugs surface at test time.
package mockbsp

import (
	"fmt"

	"safetimer/bsp"
)

// Stats counts calls into the board
type Stats struct {
	GetTicks      int
	EnterCritical int
	ExitCritical  int
}

// Mock implements bsp.Source over a manual clock and an emulated
// interrupt-enable flag
type Mock[T bsp.Tick] struct {
	ticks      T
	validation bool
	irq        mockIRQ
	cs         *bsp.Critical
	stats      Stats
}

type mockIRQ struct {
	enabled bool
}

func (m *mockIRQ) Disable() bsp.State {
	var prev bsp.State
	if m.enabled {
		prev = 1
	}
	m.enabled = false
	return prev
}

func (m *mockIRQ) Restore(state bsp.State) {
	m.enabled = state != 0
}

// New returns a mock at tick 0 with interrupts enabled and validation on
func New[T bsp.Tick]() *Mock[T] {
	m := &Mock[T]{validation: true}
	m.irq.enabled = true
	m.cs = bsp.NewCritical(&m.irq)
	return m
}

// Ticks returns the mock time
func (m *Mock[T]) Ticks() T {
	m.stats.GetTicks++
	return m.ticks
}

// EnterCritical enters the critical section
func (m *Mock[T]) EnterCritical() {
	m.stats.EnterCritical++
	m.cs.EnterCritical()
}

// ExitCritical leaves the critical section, panicking on imbalance when
// validation is enabled
func (m *Mock[T]) ExitCritical() {
	m.stats.ExitCritical++
	if m.cs.Depth() == 0 && m.validation {
		panic(fmt.Sprintf("mockbsp: ExitCritical without matching EnterCritical (exits=%d enters=%d)",
			m.stats.ExitCritical, m.stats.EnterCritical))
	}
	m.cs.ExitCritical()
}

// SetTicks sets the mock time
func (m *Mock[T]) SetTicks(ticks T) {
	m.ticks = ticks
}

// Advance moves the mock time forward, wrapping at T's width
func (m *Mock[T]) Advance(n T) {
	m.ticks += n
}

// Now returns the mock time without counting it as a board read
func (m *Mock[T]) Now() T {
	return m.ticks
}

// Nesting returns the current critical-section depth
func (m *Mock[T]) Nesting() int {
	return m.cs.Depth()
}

// InterruptsEnabled reports the emulated interrupt-enable flag
func (m *Mock[T]) InterruptsEnabled() bool {
	return m.irq.enabled
}

// SetInterrupts forces the interrupt-enable flag, e.g. to simulate code
// running inside an ISR
func (m *Mock[T]) SetInterrupts(enabled bool) {
	m.irq.enabled = enabled
}

// EnableValidation turns the imbalance check on or off
func (m *Mock[T]) EnableValidation(enable bool) {
	m.validation = enable
}

// Stats returns the call counters
func (m *Mock[T]) Stats() Stats {
	return m.stats
}

// ResetStats clears the call counters
func (m *Mock[T]) ResetStats() {
	m.stats = Stats{}
}
