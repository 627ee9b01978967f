package bsp

// MaxPeriod is the longest duration that still compares correctly across a
// wraparound: half the counter range minus one.
func MaxPeriod[T Tick]() T {
	return ^T(0) >> 1
}

// Diff returns a-b as a signed distance in T's native width, so the result
// stays correct when the counter wraps between b and a.
func Diff[T Tick](a, b T) int32 {
	d := a - b
	if d <= MaxPeriod[T]() {
		return int32(d)
	}
	// Negative: magnitude is the two's complement in T's width. For uint32
	// the most negative value overflows to MinInt32, which is what we want.
	return -int32(^d + 1)
}

// Reached reports whether deadline is at or before now.
func Reached[T Tick](now, deadline T) bool {
	return Diff(now, deadline) >= 0
}

// Until returns the ticks left before deadline, clamped to zero once it has
// passed.
func Until[T Tick](now, deadline T) T {
	d := Diff(deadline, now)
	if d <= 0 {
		return 0
	}
	return T(d)
}
