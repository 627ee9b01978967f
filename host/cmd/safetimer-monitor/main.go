package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"safetimer/host/monitor"
	"safetimer/host/serial"
	"safetimer/trace"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	file    = flag.String("file", "", "Read a capture file instead of a device")
	verbose = flag.Bool("verbose", false, "Print every event")
	fires   = flag.Bool("fires", false, "Print FIRE events (noisy)")
)

func main() {
	flag.Parse()

	fmt.Println("SafeTimer Monitor - trace frame decoder")
	fmt.Println("=======================================")

	m := monitor.New()
	if *file != "" {
		fmt.Printf("Reading capture %s...\n", *file)
		if err := m.OpenFile(*file); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("Connecting to %s...\n", *device)
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		if err := m.ConnectWithConfig(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Connected, press Ctrl-C to stop")
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := m.Listen(ctx, func(evt trace.Event) {
		switch {
		case evt.Type == trace.EvtReject:
			fmt.Printf("! %s (%s)\n", evt, monitor.RejectReason(evt))
		case evt.Type == trace.EvtFire && !*fires:
		case *verbose || evt.Type != trace.EvtFire:
			fmt.Println(evt)
		}
	})
	m.PrintStats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
