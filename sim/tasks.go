package sim

import (
	"fmt"

	"safetimer/bsp"
	"safetimer/coro"
	"safetimer/sem"
	"safetimer/timer"
	"safetimer/trace"
)

// Task is one running timer or coroutine
type Task interface {
	Name() string
	Kind() string
	// Slot is the governing timer
	Slot() timer.Handle
	// Status is a short human-readable state
	Status() string
}

type base struct {
	spec   TaskSpec
	handle timer.Handle
}

func (b *base) Name() string { return b.spec.Name }
func (b *base) Kind() string { return b.spec.Kind }
func (b *base) Slot() timer.Handle { return b.handle }

// timerTask counts the firings of a plain timer
type timerTask struct {
	base
	fires int
}

func (t *timerTask) Status() string {
	return fmt.Sprintf("fired %d", t.fires)
}

func spawnTimer[T bsp.Tick](pool *timer.Pool[T], spec TaskSpec) (*timerTask, error) {
	mode, err := parseMode(spec.Mode)
	if err != nil {
		return nil, err
	}
	t := &timerTask{base: base{spec: spec}}
	t.handle, err = pool.CreateStarted(T(spec.Period), mode, func(data any) {
		data.(*timerTask).fires++
	}, t)
	return t, err
}

const (
	ptOn coro.Point = iota + 1
	ptOff
	ptTake
	ptReady
)

// blinkTask toggles an LED with drift-free sleeps
type blinkTask[T bsp.Tick] struct {
	base
	coro.Context[T]
	on      bool
	toggles int
}

func (b *blinkTask[T]) run() {
	for {
		switch b.Resume() {
		case coro.Start:
			b.set(true)
			fallthrough
		case ptOn:
			if !b.Sleep(ptOn, T(b.spec.On)) {
				return
			}
			b.set(false)
			fallthrough
		case ptOff:
			if !b.Sleep(ptOff, T(b.spec.Off)) {
				return
			}
			b.Goto(coro.Start)
		}
	}
}

func (b *blinkTask[T]) set(on bool) {
	b.on = on
	b.toggles++
}

func (b *blinkTask[T]) Status() string {
	led := "off"
	if b.on {
		led = "ON"
	}
	return fmt.Sprintf("led %s, %d toggles", led, b.toggles)
}

// consumerTask takes signals raised by a producer interrupt
type consumerTask[T bsp.Tick] struct {
	base
	coro.Context[T]
	pool     *timer.Pool[T]
	sig      sem.Sem
	signals  int
	taken    int
	timeouts int
}

func (c *consumerTask[T]) run() {
	for {
		switch c.Resume() {
		case coro.Start:
			fallthrough
		case ptTake:
			if !c.WaitSem(ptTake, &c.sig, T(c.spec.Poll), c.spec.TimeoutPolls) {
				return
			}
			if c.sig.TimedOut() {
				c.timeouts++
			} else {
				c.taken++
			}
			c.Goto(coro.Start)
		}
	}
}

// isr is the producer interrupt handler
func (c *consumerTask[T]) isr() {
	c.sig.Signal(c.pool.Source())
	c.signals++
	c.pool.Record(trace.EvtSignal, c.handle, uint32(c.signals), 0)
}

func (c *consumerTask[T]) Status() string {
	return fmt.Sprintf("signals %d, taken %d, timeouts %d", c.signals, c.taken, c.timeouts)
}

// untilTask waits for the simulation clock to reach a tick, then completes
type untilTask[T bsp.Tick] struct {
	base
	coro.Context[T]
	elapsed func() uint32
	readyAt uint32
}

func (u *untilTask[T]) run() {
	switch u.Resume() {
	case coro.Start:
		fallthrough
	case ptReady:
		if !u.WaitUntil(ptReady, u.ready, T(u.spec.Poll)) {
			return
		}
		u.readyAt = u.elapsed()
	}
}

func (u *untilTask[T]) ready() bool {
	return u.elapsed() >= u.spec.At
}

func (u *untilTask[T]) Status() string {
	if u.Exited() {
		return fmt.Sprintf("ready at %d", u.readyAt)
	}
	return fmt.Sprintf("waiting for %d", u.spec.At)
}
