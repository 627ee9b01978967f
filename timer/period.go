package timer

import "safetimer/trace"

// SetPeriod changes the period. A running timer is re-armed to fire the new
// period from now, discarding its old phase.
func (p *Pool[T]) SetPeriod(h Handle, period T) error {
	if p.paramCheck {
		if err := p.checkPeriod(period); err != nil {
			return p.reject("set period", h, err)
		}
	}
	if err := p.setPeriod(h, period); err != nil {
		return p.reject("set period", h, err)
	}
	p.Record(trace.EvtPeriod, h, uint32(period), 0)
	return nil
}

func (p *Pool[T]) setPeriod(h Handle, period T) error {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	if !p.allocated(h) {
		return ErrInvalidHandle
	}
	s := &p.slots[h]
	s.period = period
	if s.active {
		s.expire = p.src.Ticks() + period
	}
	return nil
}

// AdvancePeriod changes the period keeping the timer's phase: the next
// expiry becomes the last expiry plus the new period, pushed forward in
// whole periods if that is already in the past. Called from the timer's
// own callback this yields drift-free intervals of varying length. On an
// inactive timer only the period changes.
func (p *Pool[T]) AdvancePeriod(h Handle, period T) error {
	if p.paramCheck {
		if err := p.checkPeriod(period); err != nil {
			return p.reject("advance period", h, err)
		}
	}
	if err := p.advancePeriod(h, period); err != nil {
		return p.reject("advance period", h, err)
	}
	p.Record(trace.EvtPeriod, h, uint32(period), 1)
	return nil
}

func (p *Pool[T]) advancePeriod(h Handle, period T) error {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	if !p.allocated(h) {
		return ErrInvalidHandle
	}
	s := &p.slots[h]
	if s.active {
		now := p.src.Ticks()
		last := s.expire - s.period
		expire := last + period
		if period == 0 {
			// no step to move the phase forward by: due on the next Process
			expire = now
		}
		s.expire = skipMissed(now, expire, period)
	}
	s.period = period
	return nil
}
