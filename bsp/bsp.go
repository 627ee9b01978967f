// Package bsp is the board support boundary used by the timer pool: a
// wrapping tick counter and a nestable critical section.
//
// Two builds exist. Under TinyGo the critical section disables real
// interrupts through runtime/interrupt. On a regular Go host interrupts are
// emulated: handlers raised from any goroutine are pended and dispatched on
// the main loop whenever interrupts are enabled.
package bsp

// Tick is the width of the tick counter. A 16-bit counter wraps after ~65 s
// at 1 kHz, a 32-bit one after ~49.7 days.
type Tick interface {
	~uint16 | ~uint32
}

// Ticker reads the current tick count.
type Ticker[T Tick] interface {
	Ticks() T
}

// CriticalSection guards state shared with interrupt handlers.
// Enter/Exit pairs nest; only the outermost Exit restores interrupts.
type CriticalSection interface {
	EnterCritical()
	ExitCritical()
}

// Source is everything the timer pool needs from the board.
type Source[T Tick] interface {
	Ticker[T]
	CriticalSection
}
