// Package coro turns a Repeat timer callback into a resumable state machine
// (the protothread pattern).
//
// A coroutine embeds a Context and writes its body as a switch over
// resume points. Phases are linked with fallthrough; every wait primitive
// takes the point it suspends at and returns false when the body must
// return, true once it may continue:
//
//	const (
//		ledOn coro.Point = iota + 1
//		ledOff
//	)
//
//	func (b *blinker) run() {
//		for {
//			switch b.Resume() {
//			case coro.Start:
//				b.led.High()
//				fallthrough
//			case ledOn:
//				if !b.Sleep(ledOn, 500) {
//					return
//				}
//				b.led.Low()
//				fallthrough
//			case ledOff:
//				if !b.Sleep(ledOff, 500) {
//					return
//				}
//				b.Goto(coro.Start)
//			}
//		}
//	}
//
// Locals do not survive a suspension; keep them in the coroutine struct.
package coro

import (
	"safetimer/bsp"
	"safetimer/sem"
	"safetimer/timer"
	"safetimer/trace"
)

// Point is a resume point. Applications number their own points from 1.
type Point uint16

const (
	Start Point = 0      // not started, or reset
	Done  Point = 0xFFFF // completed; Step no longer runs the body
)

// State is the coarse lifecycle of a coroutine
type State uint8

const (
	NotStarted State = iota
	Suspended
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Suspended:
		return "SUSPENDED"
	case Completed:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// MaxTimeoutPolls bounds WaitSem's poll count, keeping it clear of the
// semaphore's Timeout sentinel in a signed byte
const MaxTimeoutPolls = 126

// Context is the runtime state of one coroutine. The zero value is a
// coroutine that has not started and is not attached to a pool.
type Context[T bsp.Tick] struct {
	pc        Point
	armed     bool // the wait at pc has begun
	suspended bool // set by a wait primitive during the current Step
	start     T    // tick at which the current Wait began
	polls     uint8

	handle timer.Handle
	bound  bool
	pool   *timer.Pool[T]
	src    bsp.Source[T]
}

// Attach makes the pool the coroutine's scheduler. The governing timer is
// bound on the first Step run from one of its callbacks.
func (c *Context[T]) Attach(pool *timer.Pool[T]) {
	c.pool = pool
	c.src = pool.Source()
}

// AttachSource runs the coroutine without a pool. The caller drives Step
// by hand; Sleep degrades to Wait and poll intervals are whatever the
// caller's Step rate is.
func (c *Context[T]) AttachSource(src bsp.Source[T]) {
	c.pool = nil
	c.src = src
	c.bound = false
}

// Handle returns the governing timer, if bound
func (c *Context[T]) Handle() (timer.Handle, bool) {
	return c.handle, c.bound
}

// Step runs the body once. It binds the governing timer from the pool's
// current callback if that has not happened yet, does nothing once the
// coroutine has completed, and marks it completed when the body returns
// without suspending. It reports whether the coroutine is still alive.
func (c *Context[T]) Step(body func()) bool {
	if c.pc == Done {
		return false
	}
	if !c.bound && c.pool != nil {
		if h := c.pool.CurrentHandle(); h != timer.NoHandle {
			c.handle = h
			c.bound = true
		}
	}

	c.suspended = false
	body()
	if c.pc == Done || !c.suspended {
		c.finish()
		return false
	}
	return true
}

// finish marks completion and stops the governing timer
func (c *Context[T]) finish() {
	c.pc = Done
	c.armed = false
	if c.pool != nil && c.bound {
		c.pool.Stop(c.handle)
		c.pool.Record(trace.EvtCoroDone, c.handle, 0, 0)
	}
}

// Resume returns the point to dispatch on
func (c *Context[T]) Resume() Point {
	return c.pc
}

// State reports the lifecycle state
func (c *Context[T]) State() State {
	switch {
	case c.pc == Done:
		return Completed
	case c.pc == Start && !c.armed:
		return NotStarted
	default:
		return Suspended
	}
}

// Goto moves to p without suspending; the body's dispatch loop continues
// there. Goto(Start) is how an endless coroutine loops.
func (c *Context[T]) Goto(p Point) {
	c.pc = p
	c.armed = false
}

// Yield suspends for one period of the governing timer
func (c *Context[T]) Yield(p Point) bool {
	if c.resumed(p) {
		return true
	}
	c.suspend(p)
	return false
}

// Wait suspends until ms ticks have passed since the wait began. The
// start tick is captured once, so polling never restarts the count. ms is
// capped at bsp.MaxPeriod, the longest span the wrapping counter can tell
// apart from a deadline already passed.
func (c *Context[T]) Wait(p Point, ms T) bool {
	ms = min(ms, bsp.MaxPeriod[T]())
	now := c.src.Ticks()
	if !c.waiting(p) {
		c.begin(p)
		c.start = now
	}
	if bsp.Reached(now, c.start+ms) {
		c.armed = false
		return true
	}
	c.suspended = true
	return false
}

// Sleep suspends for ms ticks by re-arming the governing timer to fire ms
// after its previous expiry, so consecutive sleeps do not drift. ms is
// capped at bsp.MaxPeriod like Wait.
func (c *Context[T]) Sleep(p Point, ms T) bool {
	ms = min(ms, bsp.MaxPeriod[T]())
	if c.pool == nil || !c.bound {
		return c.Wait(p, ms)
	}
	if c.resumed(p) {
		return true
	}
	if err := c.pool.AdvancePeriod(c.handle, ms); err != nil {
		return c.Wait(p, ms)
	}
	c.suspend(p)
	return false
}

// WaitUntil polls cond every poll ticks and continues once it holds. cond
// is checked immediately on entry.
func (c *Context[T]) WaitUntil(p Point, cond func() bool, poll T) bool {
	if !c.waiting(p) {
		c.begin(p)
		c.setPoll(poll)
	}
	if cond() {
		c.armed = false
		return true
	}
	c.suspended = true
	return false
}

// WaitSem takes one signal from s, polling every poll ticks. After
// timeoutPolls empty polls (clamped to 1..MaxTimeoutPolls) it marks s as
// timed out and continues; the body checks s.TimedOut() to tell the cases
// apart. A timeout left over from an earlier wait is cleared on entry.
func (c *Context[T]) WaitSem(p Point, s *sem.Sem, poll T, timeoutPolls int) bool {
	if timeoutPolls < 1 {
		timeoutPolls = 1
	}
	if timeoutPolls > MaxTimeoutPolls {
		timeoutPolls = MaxTimeoutPolls
	}

	if !c.waiting(p) {
		s.ClearTimeout(c.src)
		if s.TryTake(c.src) {
			return true
		}
		c.begin(p)
		c.polls = 0
		c.setPoll(poll)
		c.suspended = true
		return false
	}

	if s.TryTake(c.src) {
		c.armed = false
		return true
	}
	c.polls++
	if int(c.polls) >= timeoutPolls {
		if s.SetTimeout(c.src) {
			c.armed = false
			if c.pool != nil {
				c.pool.Record(trace.EvtTimeout, c.handle, uint32(c.polls), 0)
			}
			return true
		}
		// a signal landed between the take and the timeout
		if s.TryTake(c.src) {
			c.armed = false
			return true
		}
	}
	c.suspended = true
	return false
}

// WaitSemForever is WaitSem without a timeout
func (c *Context[T]) WaitSemForever(p Point, s *sem.Sem, poll T) bool {
	if !c.waiting(p) {
		s.ClearTimeout(c.src)
		if s.TryTake(c.src) {
			return true
		}
		c.begin(p)
		c.setPoll(poll)
		c.suspended = true
		return false
	}
	if s.TryTake(c.src) {
		c.armed = false
		return true
	}
	c.suspended = true
	return false
}

// Exit completes the coroutine from inside its body. The body must return
// right after.
func (c *Context[T]) Exit() {
	c.pc = Done
	c.armed = false
}

// Reset sends the coroutine back to Start from inside its body. The body
// must return right after; the next Step begins from the top.
func (c *Context[T]) Reset() {
	c.pc = Start
	c.armed = false
	c.suspended = true
}

// Restart resets the coroutine from outside its body, including after it
// completed, and starts its governing timer again if it was stopped
func (c *Context[T]) Restart() {
	c.pc = Start
	c.armed = false
	if c.pool != nil && c.bound {
		c.pool.Start(c.handle)
	}
}

// Exited reports whether the coroutine has completed
func (c *Context[T]) Exited() bool {
	return c.pc == Done
}

func (c *Context[T]) waiting(p Point) bool {
	return c.pc == p && c.armed
}

func (c *Context[T]) resumed(p Point) bool {
	if c.waiting(p) {
		c.armed = false
		return true
	}
	return false
}

func (c *Context[T]) begin(p Point) {
	c.pc = p
	c.armed = true
}

func (c *Context[T]) suspend(p Point) {
	c.begin(p)
	c.suspended = true
}

func (c *Context[T]) setPoll(poll T) {
	if c.pool != nil && c.bound {
		c.pool.SetPeriod(c.handle, poll)
	}
}

// Spawn creates a Repeat timer that runs body every period, binds it to c
// and starts it
func Spawn[T bsp.Tick](pool *timer.Pool[T], period T, c *Context[T], body func()) (timer.Handle, error) {
	c.Attach(pool)
	h, err := pool.Create(period, timer.Repeat, func(any) { c.Step(body) }, nil)
	if err != nil {
		return timer.NoHandle, err
	}
	c.handle = h
	c.bound = true
	if err := pool.Start(h); err != nil {
		pool.Delete(h)
		c.bound = false
		return timer.NoHandle, err
	}
	return h, nil
}
