// Package sem is a one-byte signal counter shared between interrupt
// handlers and coroutines.
//
// A positive value counts pending signals, zero means none, and Timeout
// marks a coroutine wait that gave up. Every update happens inside the
// board's critical section, so Signal may be called from an interrupt
// handler while the main loop is taking.
package sem

import "safetimer/bsp"

// Sem is a signal counter. The zero value is ready to use.
type Sem int8

const (
	Timeout Sem = -1  // a wait gave up before a signal arrived
	Max     Sem = 127 // Signal saturates here
)

// Init clears the semaphore
func (s *Sem) Init(cs bsp.CriticalSection) {
	cs.EnterCritical()
	*s = 0
	cs.ExitCritical()
}

// Signal records one signal. A timed-out semaphore becomes 1 and a full
// one stays at Max.
func (s *Sem) Signal(cs bsp.CriticalSection) {
	cs.EnterCritical()
	defer cs.ExitCritical()

	switch {
	case *s == Timeout:
		*s = 1
	case *s < Max:
		*s++
	}
}

// SignalSafe is Signal that leaves a timed-out semaphore alone, so the
// waiter can still observe its timeout.
func (s *Sem) SignalSafe(cs bsp.CriticalSection) {
	cs.EnterCritical()
	defer cs.ExitCritical()

	if *s != Timeout && *s < Max {
		*s++
	}
}

// TryTake consumes one pending signal if there is one
func (s *Sem) TryTake(cs bsp.CriticalSection) bool {
	cs.EnterCritical()
	defer cs.ExitCritical()

	if *s <= 0 {
		return false
	}
	*s--
	return true
}

// SetTimeout marks the semaphore timed out unless a signal is pending. It
// reports whether the timeout was set.
func (s *Sem) SetTimeout(cs bsp.CriticalSection) bool {
	cs.EnterCritical()
	defer cs.ExitCritical()

	if *s > 0 {
		return false
	}
	*s = Timeout
	return true
}

// ClearTimeout resets a timed-out semaphore to zero and leaves pending
// signals alone
func (s *Sem) ClearTimeout(cs bsp.CriticalSection) {
	cs.EnterCritical()
	if *s == Timeout {
		*s = 0
	}
	cs.ExitCritical()
}

// Load reads the counter
func (s *Sem) Load(cs bsp.CriticalSection) Sem {
	cs.EnterCritical()
	v := *s
	cs.ExitCritical()
	return v
}

// TimedOut reports whether the last wait on s gave up. It reads without
// the critical section; a single byte load cannot tear.
func (s *Sem) TimedOut() bool {
	return *s == Timeout
}
