// Package monitor reads trace frames from a board or a capture file and
// keeps per-timer statistics.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"safetimer/host/serial"
	"safetimer/timer"
	"safetimer/trace"
)

// Monitor decodes a trace stream
type Monitor struct {
	src    io.ReadCloser
	follow bool // keep reading past EOF, for serial read timeouts

	dec    *trace.Decoder
	events uint32
	byType map[trace.EventType]uint32
	timers map[uint8]*TimerStats
}

// TimerStats summarises the events of one slot
type TimerStats struct {
	Handle   uint8
	Fires    uint32
	Rejects  uint32
	LastFire uint32
	Interval uint32 // clock difference between the last two fires
	Active   bool
}

// New creates a monitor with no source
func New() *Monitor {
	return &Monitor{
		dec:    trace.NewDecoder(),
		byType: make(map[trace.EventType]uint32),
		timers: make(map[uint8]*TimerStats),
	}
}

// ConnectWithConfig opens a serial device
func (m *Monitor) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	m.Attach(port, true)
	return nil
}

// OpenFile reads a capture written by safetimer-sim -trace-out
func (m *Monitor) OpenFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	m.Attach(f, false)
	return nil
}

// Attach uses r as the source. With follow set, io.EOF is treated as a read
// timeout and reading continues.
func (m *Monitor) Attach(r io.ReadCloser, follow bool) {
	m.src = r
	m.follow = follow
}

// Close closes the source
func (m *Monitor) Close() error {
	if m.src == nil {
		return nil
	}
	err := m.src.Close()
	m.src = nil
	return err
}

// Listen decodes events until ctx is done, the source ends or a read
// fails. fn, if set, sees every event after the statistics are updated.
func (m *Monitor) Listen(ctx context.Context, fn func(trace.Event)) error {
	if m.src == nil {
		return fmt.Errorf("monitor: no source attached")
	}

	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := m.src.Read(buf)
		if n > 0 {
			m.feed(buf[:n], fn)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if m.follow {
					continue
				}
				return nil
			}
			return fmt.Errorf("monitor: read: %w", err)
		}
	}
	return nil
}

func (m *Monitor) feed(data []byte, fn func(trace.Event)) {
	m.dec.Feed(data)
	for {
		events, ok := m.dec.Next()
		if !ok {
			return
		}
		for _, evt := range events {
			m.observe(evt)
			if fn != nil {
				fn(evt)
			}
		}
	}
}

func (m *Monitor) observe(evt trace.Event) {
	m.events++
	m.byType[evt.Type]++

	ts := m.timers[evt.Handle]
	if ts == nil {
		ts = &TimerStats{Handle: evt.Handle}
		m.timers[evt.Handle] = ts
	}
	switch evt.Type {
	case trace.EvtStart:
		ts.Active = true
	case trace.EvtStop, trace.EvtDelete, trace.EvtCoroDone:
		ts.Active = false
	case trace.EvtFire:
		if ts.Fires > 0 {
			ts.Interval = evt.Clock - ts.LastFire
		}
		ts.Fires++
		ts.LastFire = evt.Clock
	case trace.EvtReject:
		ts.Rejects++
	}
}

// RejectReason names the status code carried by a REJECT event
func RejectReason(evt trace.Event) string {
	return timer.Status(int8(uint8(evt.Value1))).String()
}

// Events returns the number of events decoded
func (m *Monitor) Events() uint32 {
	return m.events
}

// Count returns the number of events of one type
func (m *Monitor) Count(typ trace.EventType) uint32 {
	return m.byType[typ]
}

// Frames returns the good and corrupt frame counts
func (m *Monitor) Frames() (good, corrupt uint32) {
	return m.dec.Frames(), m.dec.Errors()
}

// Timers returns per-slot statistics ordered by handle
func (m *Monitor) Timers() []TimerStats {
	out := make([]TimerStats, 0, len(m.timers))
	for _, ts := range m.timers {
		out = append(out, *ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// PrintStats prints a summary of the stream
func (m *Monitor) PrintStats() {
	good, corrupt := m.Frames()
	fmt.Println("\n=== Trace Summary ===")
	fmt.Printf("Frames: %d good, %d corrupt\n", good, corrupt)
	fmt.Printf("Events: %d\n", m.events)

	types := make([]trace.EventType, 0, len(m.byType))
	for typ := range m.byType {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, typ := range types {
		fmt.Printf("  %-10s %d\n", typ, m.byType[typ])
	}

	fmt.Println("\nTimers:")
	for _, ts := range m.Timers() {
		state := "stopped"
		if ts.Active {
			state = "running"
		}
		fmt.Printf("  [%d] %-7s fires=%d interval=%d rejects=%d\n", ts.Handle, state, ts.Fires, ts.Interval, ts.Rejects)
	}
	fmt.Println("=====================")
}
