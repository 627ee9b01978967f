// Package trace captures timer events for post-mortem analysis and encodes
// them into CRC-checked frames for a host-side monitor.
package trace

import "strconv"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// EventType identifies what happened to a timer
type EventType uint8

// Event type codes
const (
	EvtCreate   EventType = 1 // timer allocated
	EvtStart    EventType = 2 // timer armed
	EvtStop     EventType = 3 // timer disarmed
	EvtDelete   EventType = 4 // slot released
	EvtFire     EventType = 5 // callback dispatched
	EvtPeriod   EventType = 6 // period changed
	EvtReject   EventType = 7 // operation refused (v1 = status code)
	EvtSignal   EventType = 8 // semaphore signalled
	EvtTimeout  EventType = 9 // semaphore wait timed out
	EvtCoroDone EventType = 10
)

// String returns the event's short name
func (e EventType) String() string {
	switch e {
	case EvtCreate:
		return "CREATE"
	case EvtStart:
		return "START"
	case EvtStop:
		return "STOP"
	case EvtDelete:
		return "DELETE"
	case EvtFire:
		return "FIRE"
	case EvtPeriod:
		return "PERIOD"
	case EvtReject:
		return "REJECT!"
	case EvtSignal:
		return "SIGNAL"
	case EvtTimeout:
		return "TIMEOUT"
	case EvtCoroDone:
		return "CORO_DONE"
	default:
		return "UNKNOWN"
	}
}

// Event captures one timer event
type Event struct {
	Type   EventType
	Handle uint8  // timer slot
	Clock  uint32 // tick at the event
	Value1 uint32 // context-dependent value
	Value2 uint32 // context-dependent value
}

// String formats the event on one line
func (e Event) String() string {
	return e.Type.String() +
		" h=" + strconv.Itoa(int(e.Handle)) +
		" clock=" + strconv.FormatUint(uint64(e.Clock), 10) +
		" v1=" + strconv.FormatUint(uint64(e.Value1), 10) +
		" v2=" + strconv.FormatUint(uint64(e.Value2), 10)
}

// RingSize is the number of events a Ring keeps
const RingSize = 32

// Ring keeps the most recent RingSize events. Recording never blocks and
// never allocates. It does no locking: writers shared with an interrupt
// handler must hold a critical section, as timer.Pool does.
type Ring struct {
	events  [RingSize]Event
	head    uint8 // next write position
	count   uint32
	enabled bool
}

// NewRing returns an enabled ring
func NewRing() *Ring {
	return &Ring{enabled: true}
}

// SetEnabled turns recording on or off
func (r *Ring) SetEnabled(enabled bool) {
	r.enabled = enabled
}

// Record captures an event in the ring buffer
func (r *Ring) Record(typ EventType, handle uint8, clock, value1, value2 uint32) {
	if r == nil || !r.enabled {
		return
	}
	idx := r.head
	r.events[idx] = Event{
		Type:   typ,
		Handle: handle,
		Clock:  clock,
		Value1: value1,
		Value2: value2,
	}
	r.head = (idx + 1) % RingSize
	r.count++
}

// Total returns how many events were ever recorded, including overwritten ones
func (r *Ring) Total() uint32 {
	return r.count
}

// Events returns the retained events from oldest to newest
func (r *Ring) Events() []Event {
	n := int(r.count)
	if n > RingSize {
		n = RingSize
	}
	out := make([]Event, 0, n)
	start := int(r.head) - n
	if start < 0 {
		start += RingSize
	}
	for i := 0; i < n; i++ {
		out = append(out, r.events[(start+i)%RingSize])
	}
	return out
}

// Since returns the events recorded after the first `seen` events, and the
// new total. Events that were already overwritten are skipped.
func (r *Ring) Since(seen uint32) ([]Event, uint32) {
	if seen >= r.count {
		return nil, r.count
	}
	events := r.Events()
	missing := r.count - seen
	if missing < uint32(len(events)) {
		events = events[len(events)-int(missing):]
	}
	return events, r.count
}

// Dump writes the retained events, oldest first (call on shutdown/error)
func (r *Ring) Dump(w DebugWriter) {
	if w == nil {
		return
	}
	w("[TRACE] === Timer Ring Dump ===")
	w("[TRACE] Total events recorded: " + strconv.FormatUint(uint64(r.count), 10))
	for _, evt := range r.Events() {
		w("[TRACE] " + evt.String())
	}
	w("[TRACE] === End Dump ===")
}

// Clear clears the ring
func (r *Ring) Clear() {
	for i := range r.events {
		r.events[i] = Event{}
	}
	r.head = 0
	r.count = 0
}
