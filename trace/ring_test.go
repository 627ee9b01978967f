package trace

import (
	"strings"
	"testing"
)

func TestRingKeepsNewest(t *testing.T) {
	r := NewRing()
	for i := 0; i < RingSize+5; i++ {
		r.Record(EvtFire, uint8(i%8), uint32(i), 0, 0)
	}

	events := r.Events()
	if len(events) != RingSize {
		t.Fatalf("expected %d events, got %d", RingSize, len(events))
	}
	if events[0].Clock != 5 {
		t.Errorf("expected oldest clock 5, got %d", events[0].Clock)
	}
	if events[len(events)-1].Clock != RingSize+4 {
		t.Errorf("expected newest clock %d, got %d", RingSize+4, events[len(events)-1].Clock)
	}
	if r.Total() != RingSize+5 {
		t.Errorf("expected total %d, got %d", RingSize+5, r.Total())
	}
}

func TestRingSince(t *testing.T) {
	r := NewRing()
	r.Record(EvtCreate, 0, 1, 0, 0)
	r.Record(EvtStart, 0, 2, 0, 0)

	events, seen := r.Since(0)
	if len(events) != 2 || seen != 2 {
		t.Fatalf("expected 2 events, got %d (seen=%d)", len(events), seen)
	}

	r.Record(EvtFire, 0, 3, 0, 0)
	events, seen = r.Since(seen)
	if len(events) != 1 || events[0].Type != EvtFire {
		t.Errorf("expected only the FIRE event, got %v", events)
	}

	events, _ = r.Since(seen)
	if len(events) != 0 {
		t.Errorf("expected no new events, got %d", len(events))
	}
}

func TestRingDisabledAndNil(t *testing.T) {
	var nilRing *Ring
	nilRing.Record(EvtFire, 0, 0, 0, 0) // must not panic

	r := NewRing()
	r.SetEnabled(false)
	r.Record(EvtFire, 0, 0, 0, 0)
	if r.Total() != 0 {
		t.Error("disabled ring recorded an event")
	}
}

func TestRingDump(t *testing.T) {
	r := NewRing()
	r.Record(EvtFire, 2, 500, 1000, 0)

	var lines []string
	r.Dump(func(s string) { lines = append(lines, s) })

	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[2], "FIRE h=2 clock=500 v1=1000") {
		t.Errorf("unexpected event line %q", lines[2])
	}

	r.Clear()
	if len(r.Events()) != 0 {
		t.Error("ring not empty after Clear")
	}
}
