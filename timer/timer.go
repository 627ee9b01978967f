// Package timer is a fixed-capacity pool of cooperative software timers.
//
// A pool owns up to eight slots and a one-byte allocation bitmap. Nothing
// runs on its own: the main loop calls Process, which fires every due timer
// in ascending slot order. Expiry is compared with a wraparound-safe signed
// difference, so a 16-bit tick counter works as well as a 32-bit one.
//
// Every read-modify-write on a slot happens inside the board's critical
// section. Callbacks always run outside it and may call back into the pool,
// including creating, stopping or deleting their own timer.
package timer

import (
	"fmt"
	"strconv"

	"safetimer/bsp"
	"safetimer/trace"
)

// Mode selects what happens after a timer fires
type Mode uint8

const (
	OneShot Mode = iota // fire once, then go inactive
	Repeat              // re-arm at previous expiry + period
)

func (m Mode) String() string {
	switch m {
	case OneShot:
		return "ONE_SHOT"
	case Repeat:
		return "REPEAT"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Handle identifies an allocated slot by index
type Handle int

// NoHandle is returned when no slot could be allocated
const NoHandle Handle = -1

// Capacity limits
const (
	MaxCapacity     = 8 // bitmap is one byte
	DefaultCapacity = 4
)

// Callback is invoked when a timer fires, with the data given at Create
type Callback func(data any)

// Config holds construction-time pool options
type Config struct {
	// Capacity is the number of slots, 1..MaxCapacity. Zero selects
	// DefaultCapacity.
	Capacity int

	// ParamCheck rejects zero or oversized periods and unknown modes.
	// Handle range checks are always performed.
	ParamCheck bool

	// CatchUp makes a late Repeat timer advance by a single period per
	// firing, so each missed interval is replayed on a later Process call.
	// By default missed intervals are skipped.
	CatchUp bool

	// Trace, when set, receives create/start/stop/delete/fire events
	Trace *trace.Ring

	// Debug, when set, receives a line for every rejected operation
	Debug trace.DebugWriter
}

// DefaultConfig returns a four-slot pool with parameter checking on
func DefaultConfig() Config {
	return Config{
		Capacity:   DefaultCapacity,
		ParamCheck: true,
	}
}

type slot[T bsp.Tick] struct {
	period   T
	expire   T
	callback Callback
	data     any
	mode     Mode
	active   bool
}

// Pool is a fixed set of timer slots driven by Process
type Pool[T bsp.Tick] struct {
	src        bsp.Source[T]
	slots      [MaxCapacity]slot[T]
	used       uint8 // allocation bitmap, bit i = slot i
	capacity   uint8
	paramCheck bool
	catchUp    bool
	trace      *trace.Ring
	debug      trace.DebugWriter
	current    Handle
}

// New creates an empty pool reading time and the critical section from src
func New[T bsp.Tick](src bsp.Source[T], cfg Config) (*Pool[T], error) {
	if src == nil {
		return nil, fmt.Errorf("timer: nil board: %w", ErrInvalidParam)
	}
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < 1 || capacity > MaxCapacity {
		return nil, fmt.Errorf("timer: capacity %d out of range 1..%d: %w", cfg.Capacity, MaxCapacity, ErrInvalidParam)
	}

	return &Pool[T]{
		src:        src,
		capacity:   uint8(capacity),
		paramCheck: cfg.ParamCheck,
		catchUp:    cfg.CatchUp,
		trace:      cfg.Trace,
		debug:      cfg.Debug,
		current:    NoHandle,
	}, nil
}

// Create allocates the lowest free slot. The timer starts inactive.
func (p *Pool[T]) Create(period T, mode Mode, cb Callback, data any) (Handle, error) {
	if p.paramCheck {
		if err := p.checkPeriod(period); err != nil {
			return NoHandle, p.reject("create", NoHandle, err)
		}
		if mode != OneShot && mode != Repeat {
			return NoHandle, p.reject("create", NoHandle, ErrInvalidParam)
		}
	}

	h := p.alloc(period, mode, cb, data)
	if h == NoHandle {
		return NoHandle, p.reject("create", NoHandle, ErrPoolFull)
	}
	p.Record(trace.EvtCreate, h, uint32(period), uint32(mode))
	return h, nil
}

func (p *Pool[T]) alloc(period T, mode Mode, cb Callback, data any) Handle {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	for i := uint8(0); i < p.capacity; i++ {
		if p.used&(1<<i) != 0 {
			continue
		}
		p.used |= 1 << i
		p.slots[i] = slot[T]{
			period:   period,
			callback: cb,
			data:     data,
			mode:     mode,
		}
		return Handle(i)
	}
	return NoHandle
}

// Start arms the timer to fire one period from now. Starting an active
// timer does nothing.
func (p *Pool[T]) Start(h Handle) error {
	started, err := p.start(h)
	if err != nil {
		return p.reject("start", h, err)
	}
	if started {
		p.Record(trace.EvtStart, h, 0, 0)
	}
	return nil
}

func (p *Pool[T]) start(h Handle) (bool, error) {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	if !p.allocated(h) {
		return false, ErrInvalidHandle
	}
	s := &p.slots[h]
	if s.active {
		return false, nil
	}
	s.expire = p.src.Ticks() + s.period
	s.active = true
	return true, nil
}

// Stop disarms the timer and keeps its slot. Stopping an inactive timer
// does nothing.
func (p *Pool[T]) Stop(h Handle) error {
	stopped, err := p.stop(h)
	if err != nil {
		return p.reject("stop", h, err)
	}
	if stopped {
		p.Record(trace.EvtStop, h, 0, 0)
	}
	return nil
}

func (p *Pool[T]) stop(h Handle) (bool, error) {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	if !p.allocated(h) {
		return false, ErrInvalidHandle
	}
	s := &p.slots[h]
	wasActive := s.active
	s.active = false
	return wasActive, nil
}

// Delete stops the timer and releases its slot for reuse
func (p *Pool[T]) Delete(h Handle) error {
	if err := p.free(h); err != nil {
		return p.reject("delete", h, err)
	}
	p.Record(trace.EvtDelete, h, 0, 0)
	return nil
}

func (p *Pool[T]) free(h Handle) error {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	if !p.allocated(h) {
		return ErrInvalidHandle
	}
	p.slots[h] = slot[T]{}
	p.used &^= 1 << uint8(h)
	return nil
}

// Process fires every due timer once, in ascending slot order. It reads the
// tick counter once per call.
//
// Each slot is examined under the critical section only when the scan
// reaches it, so changes made by an earlier callback in the same pass are
// seen: a slot deleted or stopped before it is reached does not fire. Process
// must not be called from a callback.
func (p *Pool[T]) Process() {
	now := p.src.Ticks()
	for i := 0; i < int(p.capacity); i++ {
		h := Handle(i)
		cb, data, fired := p.expire(h, now)
		if !fired {
			continue
		}
		p.recordAt(trace.EvtFire, h, now, 0, 0)
		if cb == nil {
			continue
		}

		p.dispatch(h, cb, data)
	}
}

// dispatch runs cb as slot h, restoring CurrentHandle even if cb panics
func (p *Pool[T]) dispatch(h Handle, cb Callback, data any) {
	prev := p.current
	p.current = h
	defer func() { p.current = prev }()
	cb(data)
}

// expire decides whether slot h fires at now and computes its next state
func (p *Pool[T]) expire(h Handle, now T) (Callback, any, bool) {
	p.src.EnterCritical()
	defer p.src.ExitCritical()

	if !p.allocated(h) {
		return nil, nil, false
	}
	s := &p.slots[h]
	if !s.active || !bsp.Reached(now, s.expire) {
		return nil, nil, false
	}

	if s.mode == OneShot {
		s.active = false
	} else {
		s.expire += s.period
		if !p.catchUp {
			s.expire = skipMissed(now, s.expire, s.period)
		}
	}
	return s.callback, s.data, true
}

// skipMissed advances expire in whole periods until it lies after now
func skipMissed[T bsp.Tick](now, expire, period T) T {
	if period == 0 || !bsp.Reached(now, expire) {
		return expire
	}
	missed := T(uint32(bsp.Diff(now, expire))/uint32(period) + 1)
	return expire + missed*period
}

func (p *Pool[T]) allocated(h Handle) bool {
	if h < 0 || int(h) >= int(p.capacity) {
		return false
	}
	return p.used&(1<<uint8(h)) != 0
}

func (p *Pool[T]) checkPeriod(period T) error {
	if period == 0 || period > bsp.MaxPeriod[T]() {
		return ErrInvalidParam
	}
	return nil
}

func (p *Pool[T]) reject(op string, h Handle, err error) error {
	if p.trace != nil {
		code, _ := StatusOf(err)
		p.Record(trace.EvtReject, h, uint32(uint8(code)), 0)
	}
	if p.debug != nil {
		p.debug("timer: " + op + " h=" + strconv.Itoa(int(h)) + ": " + err.Error())
	}
	return err
}

// Record adds an event to the pool's trace ring, if it has one
func (p *Pool[T]) Record(typ trace.EventType, h Handle, v1, v2 uint32) {
	if p.trace == nil {
		return
	}
	p.recordAt(typ, h, p.src.Ticks(), v1, v2)
}

// recordAt writes the ring inside the critical section, since interrupt
// handlers record through Record too
func (p *Pool[T]) recordAt(typ trace.EventType, h Handle, now T, v1, v2 uint32) {
	if p.trace == nil {
		return
	}
	p.src.EnterCritical()
	p.trace.Record(typ, uint8(h), uint32(now), v1, v2)
	p.src.ExitCritical()
}
