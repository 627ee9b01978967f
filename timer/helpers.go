package timer

// CreateStarted creates a timer and starts it. If the start fails the slot
// is released again and NoHandle is returned.
func (p *Pool[T]) CreateStarted(period T, mode Mode, cb Callback, data any) (Handle, error) {
	h, err := p.Create(period, mode, cb, data)
	if err != nil {
		return NoHandle, err
	}
	if err := p.Start(h); err != nil {
		p.Delete(h)
		return NoHandle, err
	}
	return h, nil
}

// CreateStartedBatch creates and starts one timer per callback, all with the
// same period and mode. data may be nil; otherwise data[i] is passed to
// callbacks[i]. handles[i] receives the handle or NoHandle on failure.
//
// It returns the number of timers started and the first error seen. Partial
// success is possible: timers already started are left running.
func (p *Pool[T]) CreateStartedBatch(period T, mode Mode, callbacks []Callback, data []any, handles []Handle) (int, error) {
	if len(handles) < len(callbacks) || (data != nil && len(data) < len(callbacks)) {
		return 0, p.reject("create batch", NoHandle, ErrInvalidParam)
	}

	var firstErr error
	started := 0
	for i, cb := range callbacks {
		var d any
		if data != nil {
			d = data[i]
		}
		h, err := p.CreateStarted(period, mode, cb, d)
		handles[i] = h
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		started++
	}
	return started, firstErr
}
