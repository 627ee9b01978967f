//go:build rp2040

package main

import (
	"machine"
	"time"

	"safetimer/bsp"
	"safetimer/coro"
	"safetimer/timer"
	"safetimer/trace"
)

var (
	board = bsp.NewBoard[uint32]()
	ring  = trace.NewRing()
	pool  *timer.Pool[uint32]

	led   = &blinker{led: machine.LED, on: 500, off: 500}
	btn   = &button{pin: machine.GP15}
	accel = &motion{threshold: 64}

	// Debug counters
	panics      uint32
	traceErrors uint32
)

func main() {
	// Disable the watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	initUSB()
	updateTicks()

	var err error
	pool, err = timer.New[uint32](board, timer.Config{
		Capacity:   timer.DefaultCapacity,
		ParamCheck: true,
		Trace:      ring,
	})
	if err != nil {
		halt()
	}

	led.led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	btn.blink = led
	if _, err := coro.Spawn(pool, 1, &led.Context, led.run); err != nil {
		halt()
	}
	if _, err := coro.Spawn(pool, 1, &btn.Context, btn.run); err != nil {
		halt()
	}
	if err := btn.configure(); err != nil {
		halt()
	}

	// ADXL345 on I2C0, SDA=GP4 SCL=GP5
	if err := machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.GP4,
		SCL:       machine.GP5,
	}); err == nil {
		accel.configure(machine.I2C0)
		coro.Spawn(pool, 100, &accel.Context, accel.run)
	}

	enc := trace.NewEncoder(&usbWriter{})
	var seen uint32

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					panics++
				}
			}()

			updateTicks()
			pool.Process()

			// the button ISR records into the ring too
			board.EnterCritical()
			var events []trace.Event
			events, seen = ring.Since(seen)
			board.ExitCritical()
			if len(events) > 0 {
				if err := enc.WriteEvents(events); err != nil {
					traceErrors++
					enc = trace.NewEncoder(&usbWriter{})
				}
			}
		}()

		// Yield to other goroutines
		time.Sleep(100 * time.Microsecond)
	}
}

// halt blinks the LED fast forever; startup failed before the pool ran
func halt() {
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		machine.LED.Set(!machine.LED.Get())
		time.Sleep(100 * time.Millisecond)
	}
}
