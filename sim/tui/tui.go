// Package tui shows a running simulation in the terminal: one progress bar
// per timer slot and the most recent trace events.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"safetimer/sim"
)

// Sim is the part of sim.Engine the view drives
type Sim interface {
	Advance(n int)
	View() sim.View
	Done() bool
}

const (
	maxSpeed   = 4096
	eventLines = 8
)

type tickMsg time.Time

// Model is the bubbletea model. Every refresh advances the simulation by
// speed ticks unless paused.
type Model struct {
	sim      Sim
	interval time.Duration
	speed    int
	paused   bool
	width    int
	bar      progress.Model
}

// New returns a model refreshing every interval
func New(s Sim, interval time.Duration) *Model {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Model{
		sim:      s,
		interval: interval,
		speed:    10,
		width:    80,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(30)),
	}
}

// Init starts the refresh loop
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles refreshes, resizes and keys
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(40, msg.Width-50))
		return m, nil

	case tickMsg:
		if !m.paused && !m.sim.Done() {
			m.sim.Advance(m.speed)
		}
		if m.sim.Done() {
			return m, nil
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "+", "=":
			m.speed = min(maxSpeed, m.speed*2)
		case "-", "_":
			m.speed = max(1, m.speed/2)
		case "s", "right":
			if m.paused && !m.sim.Done() {
				m.sim.Advance(1)
			}
		}
	}
	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	rejectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// View renders the current snapshot
func (m *Model) View() string {
	v := m.sim.View()

	state := fmt.Sprintf("x%d", m.speed)
	switch {
	case m.sim.Done():
		state = "done"
	case m.paused:
		state = "paused"
	}
	title := titleStyle.Render(fmt.Sprintf("%s  %d-bit  tick %d  elapsed %d/%d  slots %d/%d  [%s]",
		v.Scenario, v.Width, v.Now, v.Elapsed, v.Duration, v.Used, v.Capacity, state))

	slots := make([]string, 0, len(v.Slots))
	for _, s := range v.Slots {
		slots = append(slots, m.renderSlot(s))
	}

	events := v.Events
	if len(events) > eventLines {
		events = events[len(events)-eventLines:]
	}
	evLines := make([]string, 0, len(events))
	for _, e := range events {
		line := e.String()
		if strings.HasPrefix(line, "REJECT") {
			line = rejectStyle.Render(line)
		}
		evLines = append(evLines, line)
	}
	if len(evLines) == 0 {
		evLines = append(evLines, idleStyle.Render("no events yet"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		boxStyle.Render(strings.Join(slots, "\n")),
		boxStyle.Render(headStyle.Render("events")+"\n"+strings.Join(evLines, "\n")),
		hintStyle.Render("space pause  s step  +/- speed  q quit"),
	)
}

func (m *Model) renderSlot(s sim.SlotView) string {
	label := fmt.Sprintf("[%d] %-12s %-8s", s.Handle, s.Task, s.Kind)
	if !s.Active {
		return idleStyle.Render(fmt.Sprintf("%s %-*s  %s", label, m.bar.Width, "stopped", s.Status))
	}
	return fmt.Sprintf("%s %s %6d/%-6d %s", label, m.bar.ViewAs(Elapsed(s)), s.Remaining, s.Period, s.Status)
}

// Elapsed is the fraction of the current period already passed
func Elapsed(s sim.SlotView) float64 {
	if s.Period == 0 || s.Remaining >= s.Period {
		return 0
	}
	return 1 - float64(s.Remaining)/float64(s.Period)
}
