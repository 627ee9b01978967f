// Command safetimer-sim runs a timer scenario on the host board.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"safetimer/bsp"
	"safetimer/sim"
	"safetimer/sim/tui"
)

var (
	scenario = flag.String("scenario", "scenarios/blink.yaml", "Scenario file (.yaml, .yml or .toml)")
	width    = flag.Int("width", 0, "Override the scenario's tick width (16 or 32)")
	useTUI   = flag.Bool("tui", false, "Show the live dashboard")
	realtime = flag.Bool("realtime", false, "Run in real time instead of virtual time")
	tick     = flag.Duration("tick", time.Millisecond, "Real-time tick period")
	refresh  = flag.Duration("refresh", 50*time.Millisecond, "Dashboard refresh period")
	traceOut = flag.String("trace-out", "", "Write trace frames to this file")
	quiet    = flag.Bool("quiet", false, "Only print the summary")
)

func main() {
	flag.Parse()

	sc, err := sim.LoadScenario(*scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *width != 0 {
		sc.Width = *width
		if err := sc.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if sc.Width == 16 {
		err = run[uint16](sc)
	} else {
		err = run[uint32](sc)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run[T bsp.Tick](sc *sim.Scenario) error {
	var out func(string)
	if !*quiet && !*useTUI {
		out = func(s string) { fmt.Println(s) }
	}

	e, err := sim.NewEngine[T](sc, out)
	if err != nil {
		return err
	}

	if *traceOut != "" {
		f, err := os.Create(*traceOut)
		if err != nil {
			return fmt.Errorf("create trace output: %w", err)
		}
		defer f.Close()
		e.SetTraceOutput(f)
	}

	fmt.Printf("SafeTimer simulator - %s (%d-bit, %d ticks)\n", sc.Name, sc.Width, sc.Duration)

	switch {
	case *useTUI:
		if _, err := tea.NewProgram(tui.New(e, *refresh), tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
	case *realtime:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := e.Run(ctx, *tick); err != nil {
			return err
		}
	default:
		if err := e.RunVirtual(); err != nil {
			return err
		}
	}

	fmt.Println()
	e.Summary(func(s string) { fmt.Println(s) })
	if !*quiet {
		e.Trace().Dump(func(s string) { fmt.Println(s) })
	}
	return nil
}
