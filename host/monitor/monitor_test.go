package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"safetimer/trace"
)

func encode(t *testing.T, events []trace.Event) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := trace.NewEncoder(&buf).WriteEvents(events); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}
	return buf.Bytes()
}

func stream() []trace.Event {
	return []trace.Event{
		{Type: trace.EvtCreate, Handle: 0},
		{Type: trace.EvtStart, Handle: 0, Clock: 0, Value1: 100},
		{Type: trace.EvtFire, Handle: 0, Clock: 100},
		{Type: trace.EvtFire, Handle: 0, Clock: 200},
		{Type: trace.EvtReject, Handle: 5, Clock: 250, Value1: 1},
		{Type: trace.EvtFire, Handle: 0, Clock: 301},
		{Type: trace.EvtStop, Handle: 0, Clock: 310},
	}
}

type chunked struct {
	data  []byte
	chunk int
	err   error // returned once data is exhausted
}

func (c *chunked) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, c.err
	}
	n := min(c.chunk, len(p), len(c.data))
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func (c *chunked) Close() error { return nil }

func TestListenCapture(t *testing.T) {
	m := New()
	m.Attach(&chunked{data: encode(t, stream()), chunk: 3, err: io.EOF}, false)

	var seen []trace.Event
	if err := m.Listen(context.Background(), func(e trace.Event) { seen = append(seen, e) }); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	if len(seen) != 7 || m.Events() != 7 {
		t.Fatalf("expected 7 events, got %d (counted %d)", len(seen), m.Events())
	}
	if m.Count(trace.EvtFire) != 3 || m.Count(trace.EvtReject) != 1 {
		t.Errorf("unexpected counts: fire=%d reject=%d", m.Count(trace.EvtFire), m.Count(trace.EvtReject))
	}
	if good, corrupt := m.Frames(); good == 0 || corrupt != 0 {
		t.Errorf("unexpected frames: %d good, %d corrupt", good, corrupt)
	}

	timers := m.Timers()
	if len(timers) != 2 || timers[0].Handle != 0 || timers[1].Handle != 5 {
		t.Fatalf("unexpected timers: %+v", timers)
	}
	hb := timers[0]
	if hb.Fires != 3 || hb.Interval != 101 || hb.LastFire != 301 || hb.Active {
		t.Errorf("unexpected stats for slot 0: %+v", hb)
	}
	if timers[1].Rejects != 1 {
		t.Errorf("unexpected stats for slot 5: %+v", timers[1])
	}
}

func TestListenSkipsNoise(t *testing.T) {
	data := append([]byte{0x01, 0x02, 0x7E}, encode(t, stream())...)
	m := New()
	m.Attach(&chunked{data: data, chunk: 64, err: io.EOF}, false)
	if err := m.Listen(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if m.Events() != 7 {
		t.Errorf("expected the frames after the noise to decode, got %d events", m.Events())
	}
	if _, corrupt := m.Frames(); corrupt == 0 {
		t.Error("expected the noise to count as corrupt")
	}
}

func TestListenFollowStopsOnCancel(t *testing.T) {
	m := New()
	m.Attach(&chunked{data: encode(t, stream()), chunk: 16, err: io.EOF}, true)

	ctx, cancel := context.WithCancel(context.Background())
	err := m.Listen(ctx, func(e trace.Event) {
		if e.Type == trace.EvtStop {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if m.Events() != 7 {
		t.Errorf("expected 7 events before cancel, got %d", m.Events())
	}
}

func TestListenReadError(t *testing.T) {
	boom := errors.New("unplugged")
	m := New()
	m.Attach(&chunked{err: boom}, true)
	if err := m.Listen(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("expected the read error, got %v", err)
	}
}

func TestListenWithoutSource(t *testing.T) {
	if err := New().Listen(context.Background(), nil); err == nil {
		t.Error("expected an error without a source")
	}
	if err := New().Close(); err != nil {
		t.Errorf("Close without a source failed: %v", err)
	}
}

func TestOpenFileMissing(t *testing.T) {
	if err := New().OpenFile(t.TempDir() + "/none.bin"); err == nil {
		t.Error("expected an error for a missing capture")
	}
}

func TestRejectReason(t *testing.T) {
	evt := trace.Event{Type: trace.EvtReject, Value1: 0xFD}
	if got := RejectReason(evt); got != "POOL_FULL" {
		t.Errorf("expected POOL_FULL, got %s", got)
	}
}
