// Package sim runs timer pools and coroutines on the host board from a
// scenario file, either in virtual time (one tick per Step) or in real time.
package sim

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"safetimer/coro"
	"safetimer/timer"
)

// Task kinds
const (
	KindTimer    = "timer"    // plain callback timer counting its firings
	KindBlink    = "blink"    // coroutine alternating on/off with Sleep
	KindConsumer = "consumer" // coroutine taking semaphore signals raised by an ISR
	KindUntil    = "until"    // coroutine waiting for a tick with WaitUntil
)

// TaskSpec describes one timer or coroutine
type TaskSpec struct {
	Name string `yaml:"name" toml:"name"`
	Kind string `yaml:"kind" toml:"kind"`

	// Period of a plain timer, or the first period of a coroutine
	Period uint32 `yaml:"period,omitempty" toml:"period,omitempty"`
	// Mode of a plain timer: repeat or oneshot
	Mode string `yaml:"mode,omitempty" toml:"mode,omitempty"`

	// blink
	On  uint32 `yaml:"on,omitempty" toml:"on,omitempty"`
	Off uint32 `yaml:"off,omitempty" toml:"off,omitempty"`

	// consumer and until
	Poll         uint32 `yaml:"poll,omitempty" toml:"poll,omitempty"`
	TimeoutPolls int    `yaml:"timeout_polls,omitempty" toml:"timeout_polls,omitempty"`
	// ProducerEvery raises the producer interrupt every N ticks; 0 never
	ProducerEvery uint32 `yaml:"producer_every,omitempty" toml:"producer_every,omitempty"`

	// At is the elapsed tick at which an until task's condition turns true
	At uint32 `yaml:"at,omitempty" toml:"at,omitempty"`
}

// Scenario is a complete simulation setup
type Scenario struct {
	Name     string     `yaml:"name" toml:"name"`
	Width    int        `yaml:"width,omitempty" toml:"width,omitempty"` // tick counter bits, 16 or 32
	Capacity int        `yaml:"capacity,omitempty" toml:"capacity,omitempty"`
	CatchUp  bool       `yaml:"catch_up,omitempty" toml:"catch_up,omitempty"`
	Start    uint32     `yaml:"start,omitempty" toml:"start,omitempty"`       // initial tick, e.g. just before a wrap
	Duration uint32     `yaml:"duration,omitempty" toml:"duration,omitempty"` // ticks to simulate
	Tasks    []TaskSpec `yaml:"tasks" toml:"tasks"`
}

// ParseYAML decodes and validates a YAML scenario
func ParseYAML(data []byte) (*Scenario, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("sim: scenario is empty")
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("sim: decode scenario: %w", err)
	}
	return finish(&sc)
}

// ParseTOML decodes and validates a TOML scenario
func ParseTOML(data []byte) (*Scenario, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("sim: scenario is empty")
	}
	var sc Scenario
	if err := toml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("sim: decode scenario: %w", err)
	}
	return finish(&sc)
}

// LoadScenario reads a .yaml, .yml or .toml scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sim: read %s: %w", path, err)
	}

	var sc *Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		sc, err = ParseYAML(data)
	case ".toml":
		sc, err = ParseTOML(data)
	default:
		return nil, fmt.Errorf("sim: %s: unknown scenario format", path)
	}
	if err != nil {
		return nil, fmt.Errorf("sim: %s: %w", path, err)
	}
	return sc, nil
}

func finish(sc *Scenario) (*Scenario, error) {
	applyDefaults(sc)
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// applyDefaults fills in missing values
func applyDefaults(sc *Scenario) {
	if sc.Name == "" {
		sc.Name = "scenario"
	}
	if sc.Width == 0 {
		sc.Width = 32
	}
	if sc.Capacity == 0 {
		sc.Capacity = timer.DefaultCapacity
		if len(sc.Tasks) > sc.Capacity {
			sc.Capacity = min(len(sc.Tasks), timer.MaxCapacity)
		}
	}
	if sc.Duration == 0 {
		sc.Duration = 5000
	}

	for i := range sc.Tasks {
		t := &sc.Tasks[i]
		t.Kind = strings.ToLower(strings.TrimSpace(t.Kind))
		switch t.Kind {
		case KindTimer:
			if t.Period == 0 {
				t.Period = 1000
			}
			if t.Mode == "" {
				t.Mode = "repeat"
			}
		case KindBlink:
			if t.On == 0 {
				t.On = 500
			}
			if t.Off == 0 {
				t.Off = t.On
			}
		case KindConsumer:
			if t.Poll == 0 {
				t.Poll = 10
			}
			if t.TimeoutPolls == 0 {
				t.TimeoutPolls = 50
			}
		case KindUntil:
			if t.Poll == 0 {
				t.Poll = 20
			}
		}
		if t.Period == 0 {
			t.Period = 10 // first invocation of a coroutine
		}
	}
}

// Validate checks a scenario with defaults applied
func (sc *Scenario) Validate() error {
	if sc.Width != 16 && sc.Width != 32 {
		return fmt.Errorf("sim: width must be 16 or 32, got %d", sc.Width)
	}
	if sc.Capacity < 1 || sc.Capacity > timer.MaxCapacity {
		return fmt.Errorf("sim: capacity must be 1..%d, got %d", timer.MaxCapacity, sc.Capacity)
	}
	if sc.Width == 16 && sc.Start > 0xFFFF {
		return fmt.Errorf("sim: start %d does not fit a 16-bit tick", sc.Start)
	}
	if len(sc.Tasks) == 0 {
		return fmt.Errorf("sim: scenario has no tasks")
	}
	if len(sc.Tasks) > sc.Capacity {
		return fmt.Errorf("sim: %d tasks do not fit a pool of %d", len(sc.Tasks), sc.Capacity)
	}

	maxPeriod := uint32(0x7FFFFFFF)
	if sc.Width == 16 {
		maxPeriod = 0x7FFF
	}
	seen := make(map[string]bool, len(sc.Tasks))
	for _, t := range sc.Tasks {
		if t.Name == "" {
			return fmt.Errorf("sim: task of kind %q has no name", t.Kind)
		}
		if seen[t.Name] {
			return fmt.Errorf("sim: duplicate task name %q", t.Name)
		}
		seen[t.Name] = true

		switch t.Kind {
		case KindTimer:
			if _, err := parseMode(t.Mode); err != nil {
				return fmt.Errorf("sim: task %q: %w", t.Name, err)
			}
		case KindBlink, KindUntil:
		case KindConsumer:
			if t.TimeoutPolls < 1 || t.TimeoutPolls > coro.MaxTimeoutPolls {
				return fmt.Errorf("sim: task %q: timeout_polls must be 1..%d", t.Name, coro.MaxTimeoutPolls)
			}
		default:
			return fmt.Errorf("sim: task %q: unknown kind %q", t.Name, t.Kind)
		}

		for _, p := range []uint32{t.Period, t.On, t.Off, t.Poll} {
			if p > maxPeriod {
				return fmt.Errorf("sim: task %q: period %d exceeds %d for a %d-bit tick", t.Name, p, maxPeriod, sc.Width)
			}
		}
	}
	return nil
}

func parseMode(s string) (timer.Mode, error) {
	switch strings.ToLower(s) {
	case "repeat":
		return timer.Repeat, nil
	case "oneshot", "one_shot", "one-shot":
		return timer.OneShot, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}
