package sim

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"safetimer/timer"
	"safetimer/trace"
)

func load(t *testing.T, path string) *Scenario {
	t.Helper()
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario(%s) failed: %v", path, err)
	}
	return sc
}

func task[K Task](t *testing.T, tasks []Task, name string) K {
	t.Helper()
	for _, tk := range tasks {
		if tk.Name() == name {
			k, ok := tk.(K)
			if !ok {
				t.Fatalf("task %q has type %T", name, tk)
			}
			return k
		}
	}
	t.Fatalf("no task %q", name)
	var zero K
	return zero
}

func TestRunVirtualDemo(t *testing.T) {
	var lines []string
	e, err := NewEngine[uint32](load(t, "testdata/demo.yaml"), func(s string) { lines = append(lines, s) })
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if err := e.RunVirtual(); err != nil {
		t.Fatalf("RunVirtual failed: %v", err)
	}
	if !e.Done() || e.Elapsed() != 2000 {
		t.Fatalf("expected 2000 elapsed ticks, got %d", e.Elapsed())
	}

	tasks := e.Tasks()
	if hb := task[*timerTask](t, tasks, "heartbeat"); hb.fires != 8 {
		t.Errorf("heartbeat: expected 8 fires at 250..2000, got %d", hb.fires)
	}

	// on at 10, off 510, on 810, off 1310, on 1610
	led := task[*blinkTask[uint32]](t, tasks, "led")
	if led.toggles != 5 || !led.on {
		t.Errorf("led: expected 5 toggles ending on, got %d (on=%v)", led.toggles, led.on)
	}

	// Signals at every 300th tick land on a 10-tick poll and are taken at
	// once; each gap of 20 empty polls times out (210, 500, ..., 2000).
	uart := task[*consumerTask[uint32]](t, tasks, "uart")
	if uart.signals != 6 || uart.taken != 6 || uart.timeouts != 7 {
		t.Errorf("uart: %s", uart.Status())
	}

	// checked at 10, then every 20 ticks from 30
	ready := task[*untilTask[uint32]](t, tasks, "ready")
	if !ready.Exited() || ready.readyAt != 710 {
		t.Errorf("ready: %s (exited=%v)", ready.Status(), ready.Exited())
	}
	if running, _ := e.Pool().Status(ready.Slot()); running {
		t.Error("completed coroutine left its timer running")
	}

	joined := strings.Join(lines, "\n")
	for _, want := range []string{"[demo] CREATE h=0", "[demo] FIRE h=0 clock=250", "[demo] TIMEOUT", "[demo] CORO_DONE h=3"} {
		if !strings.Contains(joined, want) {
			t.Errorf("debug output lacks %q", want)
		}
	}
}

func TestRunVirtualWraps16Bit(t *testing.T) {
	sc := load(t, "testdata/wrap16.yaml")
	e, err := NewEngine[uint16](sc, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if err := e.RunVirtual(); err != nil {
		t.Fatal(err)
	}

	if hb := task[*timerTask](t, e.Tasks(), "heartbeat"); hb.fires != 8 {
		t.Errorf("heartbeat across the wrap: expected 8 fires, got %d", hb.fires)
	}
	if ready := task[*untilTask[uint16]](t, e.Tasks(), "ready"); ready.readyAt != 710 {
		t.Errorf("ready across the wrap: %s", ready.Status())
	}
	if now := e.View().Now; now != 1464 {
		t.Errorf("expected the board to wrap to 1464, got %d", now)
	}
}

func TestNewEngineWidthMismatch(t *testing.T) {
	if _, err := NewEngine[uint16](load(t, "testdata/demo.yaml"), nil); err == nil {
		t.Error("expected a 32-bit scenario to be refused by a 16-bit engine")
	}
	if _, err := NewEngine[uint32](load(t, "testdata/wrap16.yaml"), nil); err == nil {
		t.Error("expected a 16-bit scenario to be refused by a 32-bit engine")
	}
}

func TestNewEngineOneShot(t *testing.T) {
	sc, err := ParseYAML([]byte(`
duration: 500
tasks:
  - {name: once, kind: timer, mode: oneshot, period: 100}
`))
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine[uint32](sc, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.RunVirtual()

	once := task[*timerTask](t, e.Tasks(), "once")
	if once.fires != 1 || once.Status() != "fired 1" {
		t.Errorf("expected one-shot to fire once, got %s", once.Status())
	}
	if used, _ := e.Pool().Usage(); used != 1 {
		t.Errorf("expected the one-shot slot to stay allocated, used=%d", used)
	}
}

func TestTraceOutputDecodes(t *testing.T) {
	e, err := NewEngine[uint32](load(t, "testdata/demo.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	e.SetTraceOutput(&buf)
	if err := e.RunVirtual(); err != nil {
		t.Fatal(err)
	}

	var got []trace.Event
	if err := trace.ReadEvents(&buf, func(evt trace.Event) { got = append(got, evt) }); err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if uint32(len(got)) != e.Trace().Total() {
		t.Fatalf("decoded %d events, recorded %d", len(got), e.Trace().Total())
	}
	fires := 0
	for _, evt := range got {
		if evt.Type == trace.EvtFire && evt.Handle == 0 {
			fires++
		}
	}
	if fires != 8 {
		t.Errorf("expected 8 heartbeat fires in the stream, got %d", fires)
	}
}

func TestViewAndSummary(t *testing.T) {
	e, err := NewEngine[uint32](load(t, "testdata/demo.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	e.Advance(100)

	v := e.View()
	if v.Scenario != "demo" || v.Elapsed != 100 || v.Used != 4 || v.Capacity != 4 {
		t.Fatalf("unexpected view header: %+v", v)
	}
	if len(v.Slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(v.Slots))
	}
	hb := v.Slots[0]
	if hb.Task != "heartbeat" || hb.Kind != KindTimer || !hb.Active || hb.Period != 250 || hb.Remaining != 150 {
		t.Errorf("unexpected heartbeat slot: %+v", hb)
	}
	if led := v.Slots[1]; led.Task != "led" || led.Mode != timer.Repeat.String() || led.Period != 500 {
		t.Errorf("unexpected led slot: %+v", led)
	}
	if len(v.Events) == 0 {
		t.Error("view carries no events")
	}

	var lines []string
	e.Summary(func(s string) { lines = append(lines, s) })
	if len(lines) != 5 || !strings.HasPrefix(lines[0], "demo: 100 ticks, 4/4 slots") {
		t.Errorf("unexpected summary:\n%s", strings.Join(lines, "\n"))
	}
}

func TestRunRealTime(t *testing.T) {
	sc, err := ParseYAML([]byte(`
duration: 40
tasks:
  - {name: hb, kind: timer, period: 5}
`))
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine[uint32](sc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Run(context.Background(), 0); err == nil {
		t.Error("expected a zero tick to be refused")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Run(ctx, time.Millisecond); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !e.Done() {
		t.Fatalf("Run returned before the duration elapsed: %d", e.Elapsed())
	}
	if hb := task[*timerTask](t, e.Tasks(), "hb"); hb.fires < 1 {
		t.Errorf("expected the timer to fire in real time, got %d", hb.fires)
	}
}
