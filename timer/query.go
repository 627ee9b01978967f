package timer

import "safetimer/bsp"

// Status reports whether the timer is armed
func (p *Pool[T]) Status(h Handle) (running bool, err error) {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	if !p.allocated(h) {
		return false, ErrInvalidHandle
	}
	return p.slots[h].active, nil
}

// Remaining returns the ticks until the timer fires, zero if it is overdue
// but not yet processed. ErrNotRunning is returned for an inactive timer.
func (p *Pool[T]) Remaining(h Handle) (T, error) {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	if !p.allocated(h) {
		return 0, ErrInvalidHandle
	}
	s := &p.slots[h]
	if !s.active {
		return 0, ErrNotRunning
	}
	return bsp.Until(p.src.Ticks(), s.expire), nil
}

// Usage returns the number of allocated slots and the pool capacity
func (p *Pool[T]) Usage() (used, capacity int) {
	p.src.EnterCritical()
	bitmap := p.used
	p.src.ExitCritical()

	for ; bitmap != 0; bitmap &= bitmap - 1 {
		used++
	}
	return used, int(p.capacity)
}

// CurrentHandle returns the handle whose callback is running, or NoHandle
// outside of Process
func (p *Pool[T]) CurrentHandle() Handle {
	return p.current
}

// Source returns the board the pool reads time from
func (p *Pool[T]) Source() bsp.Source[T] {
	return p.src
}

// Info is a point-in-time copy of one allocated slot
type Info[T bsp.Tick] struct {
	Handle    Handle
	Mode      Mode
	Active    bool
	Period    T
	Expire    T
	Remaining T
}

// Snapshot copies every allocated slot, in slot order
func (p *Pool[T]) Snapshot() []Info[T] {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	now := p.src.Ticks()
	infos := make([]Info[T], 0, p.capacity)
	for i := uint8(0); i < p.capacity; i++ {
		if p.used&(1<<i) == 0 {
			continue
		}
		s := &p.slots[i]
		info := Info[T]{
			Handle: Handle(i),
			Mode:   s.mode,
			Active: s.active,
			Period: s.period,
			Expire: s.expire,
		}
		if s.active {
			info.Remaining = bsp.Until(now, s.expire)
		}
		infos = append(infos, info)
	}
	return infos
}
