package sim

import (
	"context"
	"fmt"
	"io"
	"time"

	"safetimer/bsp"
	"safetimer/coro"
	"safetimer/timer"
	"safetimer/trace"
)

// Engine owns a host board, a pool and the scenario's tasks
type Engine[T bsp.Tick] struct {
	sc        *Scenario
	board     *bsp.Board[T]
	pool      *timer.Pool[T]
	ring      *trace.Ring
	tasks     []Task
	producers []producer

	out     trace.DebugWriter
	enc     *trace.Encoder
	encErr  error
	seen    uint32
	elapsed uint32
}

type producer struct {
	every uint32
	isr   func()
}

// NewEngine builds the board and pool and spawns every task. out receives
// one line per trace event and may be nil. T must match the scenario width.
func NewEngine[T bsp.Tick](sc *Scenario, out trace.DebugWriter) (*Engine[T], error) {
	if got := widthOf[T](); got != sc.Width {
		return nil, fmt.Errorf("sim: scenario %q wants a %d-bit tick, engine is %d-bit", sc.Name, sc.Width, got)
	}

	e := &Engine[T]{
		sc:    sc,
		board: bsp.NewBoard[T](),
		ring:  trace.NewRing(),
		out:   out,
	}
	e.board.SetTicks(T(sc.Start))

	pool, err := timer.New[T](e.board, timer.Config{
		Capacity:   sc.Capacity,
		ParamCheck: true,
		CatchUp:    sc.CatchUp,
		Trace:      e.ring,
		Debug:      out,
	})
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	e.pool = pool

	for _, spec := range sc.Tasks {
		if err := e.spawn(spec); err != nil {
			return nil, fmt.Errorf("sim: task %q: %w", spec.Name, err)
		}
	}
	return e, nil
}

func (e *Engine[T]) spawn(spec TaskSpec) error {
	var (
		task Task
		h    timer.Handle
		err  error
	)

	switch spec.Kind {
	case KindTimer:
		var t *timerTask
		t, err = spawnTimer(e.pool, spec)
		task = t
	case KindBlink:
		b := &blinkTask[T]{base: base{spec: spec}}
		h, err = coro.Spawn(e.pool, T(spec.Period), &b.Context, b.run)
		b.handle = h
		task = b
	case KindConsumer:
		c := &consumerTask[T]{base: base{spec: spec}, pool: e.pool}
		h, err = coro.Spawn(e.pool, T(spec.Period), &c.Context, c.run)
		c.handle = h
		task = c
		if spec.ProducerEvery > 0 {
			e.producers = append(e.producers, producer{every: spec.ProducerEvery, isr: c.isr})
		}
	case KindUntil:
		u := &untilTask[T]{base: base{spec: spec}, elapsed: e.Elapsed}
		h, err = coro.Spawn(e.pool, T(spec.Period), &u.Context, u.run)
		u.handle = h
		task = u
	default:
		return fmt.Errorf("unknown kind %q", spec.Kind)
	}
	if err != nil {
		return err
	}
	e.tasks = append(e.tasks, task)
	return nil
}

// SetTraceOutput encodes every new trace event into frames written to w
func (e *Engine[T]) SetTraceOutput(w io.Writer) {
	e.enc = trace.NewEncoder(w)
}

// Step advances virtual time by one tick: producers due at this tick raise
// their interrupt, pending handlers run, then the pool is processed.
func (e *Engine[T]) Step() {
	e.board.Tick()
	e.elapsed++
	for _, p := range e.producers {
		if e.elapsed%p.every == 0 {
			e.board.Raise(p.isr)
		}
	}
	e.board.Poll()
	e.pool.Process()
	e.flush()
}

// Advance runs n virtual ticks
func (e *Engine[T]) Advance(n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

// RunVirtual runs the scenario's whole duration in virtual time
func (e *Engine[T]) RunVirtual() error {
	for e.elapsed < e.sc.Duration {
		e.Step()
	}
	return e.encErr
}

// Run drives the scenario in real time: the board ticks every tick, each
// producer raises its interrupt from its own goroutine, and the main loop
// processes the pool twice per tick. It returns when ctx is done or the
// scenario duration has elapsed.
func (e *Engine[T]) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		return fmt.Errorf("sim: tick must be positive, got %v", tick)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go e.board.Run(ctx, tick)
	for _, p := range e.producers {
		go raiseEvery(ctx, e.board, time.Duration(p.every)*tick, p.isr)
	}

	last := e.board.Ticks()
	loop := time.NewTicker(tick / 2)
	defer loop.Stop()
	for {
		select {
		case <-ctx.Done():
			return e.encErr
		case <-loop.C:
		}

		e.board.Poll()
		e.pool.Process()
		now := e.board.Ticks()
		e.elapsed += uint32(now - last)
		last = now
		e.flush()
		if e.elapsed >= e.sc.Duration {
			return e.encErr
		}
	}
}

func raiseEvery[T bsp.Tick](ctx context.Context, board *bsp.Board[T], every time.Duration, isr func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			board.Raise(isr)
		}
	}
}

// flush hands new trace events to the writer and the frame encoder
func (e *Engine[T]) flush() {
	events, seen := e.ring.Since(e.seen)
	e.seen = seen
	if len(events) == 0 {
		return
	}
	for _, evt := range events {
		if e.out != nil {
			e.out("[" + e.sc.Name + "] " + evt.String())
		}
		if e.enc != nil && e.encErr == nil {
			e.encErr = e.enc.Encode(evt)
		}
	}
	if e.enc != nil && e.encErr == nil {
		e.encErr = e.enc.Flush()
	}
}

// Elapsed returns the ticks simulated so far
func (e *Engine[T]) Elapsed() uint32 {
	return e.elapsed
}

// Done reports whether the scenario duration has elapsed
func (e *Engine[T]) Done() bool {
	return e.elapsed >= e.sc.Duration
}

// Tasks returns the spawned tasks in scenario order
func (e *Engine[T]) Tasks() []Task {
	return e.tasks
}

// Pool returns the engine's timer pool
func (e *Engine[T]) Pool() *timer.Pool[T] {
	return e.pool
}

// Trace returns the engine's event ring
func (e *Engine[T]) Trace() *trace.Ring {
	return e.ring
}

// Summary writes one line per task
func (e *Engine[T]) Summary(w trace.DebugWriter) {
	used, capacity := e.pool.Usage()
	w(fmt.Sprintf("%s: %d ticks, %d/%d slots, %d events", e.sc.Name, e.elapsed, used, capacity, e.ring.Total()))
	for _, t := range e.tasks {
		w(fmt.Sprintf("  [%d] %-12s %-9s %s", t.Slot(), t.Name(), t.Kind(), t.Status()))
	}
}

func widthOf[T bsp.Tick]() int {
	if uint32(bsp.MaxPeriod[T]()) == 0x7FFF {
		return 16
	}
	return 32
}
