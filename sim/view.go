package sim

import "safetimer/trace"

// View is a width-independent snapshot of an engine, for display
type View struct {
	Scenario string
	Width    int
	Now      uint32 // board tick
	Elapsed  uint32
	Duration uint32
	Used     int
	Capacity int
	Slots    []SlotView
	Events   []trace.Event // most recent last
}

// SlotView describes one allocated slot and the task running on it
type SlotView struct {
	Handle    int
	Task      string
	Kind      string
	Status    string
	Mode      string
	Active    bool
	Period    uint32
	Remaining uint32
}

// View snapshots the engine
func (e *Engine[T]) View() View {
	used, capacity := e.pool.Usage()
	v := View{
		Scenario: e.sc.Name,
		Width:    e.sc.Width,
		Now:      uint32(e.board.Ticks()),
		Elapsed:  e.elapsed,
		Duration: e.sc.Duration,
		Used:     used,
		Capacity: capacity,
		Events:   e.ring.Events(),
	}

	byHandle := make(map[int]Task, len(e.tasks))
	for _, t := range e.tasks {
		byHandle[int(t.Slot())] = t
	}
	for _, info := range e.pool.Snapshot() {
		s := SlotView{
			Handle:    int(info.Handle),
			Mode:      info.Mode.String(),
			Active:    info.Active,
			Period:    uint32(info.Period),
			Remaining: uint32(info.Remaining),
		}
		if t, ok := byHandle[s.Handle]; ok {
			s.Task = t.Name()
			s.Kind = t.Kind()
			s.Status = t.Status()
		}
		v.Slots = append(v.Slots, s)
	}
	return v
}
