package bsp

import "sync/atomic"

// Counter is a monotonic tick counter. Tick is meant to be called from the
// tick interrupt (or the goroutine standing in for it); reads are atomic.
//
// The value is kept in 32 bits and truncated to T on read, so a 16-bit
// counter wraps silently at 0xFFFF exactly like the hardware register would.
type Counter[T Tick] struct {
	value atomic.Uint32
}

// Ticks returns the current tick count
func (c *Counter[T]) Ticks() T {
	return T(c.value.Load())
}

// Tick advances the counter by one tick
func (c *Counter[T]) Tick() {
	c.value.Add(1)
}

// Advance moves the counter forward by n ticks
func (c *Counter[T]) Advance(n T) {
	c.value.Add(uint32(n))
}

// SetTicks sets the current tick count (for testing/hardware integration)
func (c *Counter[T]) SetTicks(ticks T) {
	c.value.Store(uint32(ticks))
}
