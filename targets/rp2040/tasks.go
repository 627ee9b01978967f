//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/adxl345"

	"safetimer/coro"
	"safetimer/sem"
	"safetimer/timer"
	"safetimer/trace"
)

const (
	ptOn coro.Point = iota + 1
	ptOff
	ptPress
	ptDebounce
	ptMotion
	ptSettle
)

// blinker toggles the on-board LED with drift-free sleeps
type blinker struct {
	coro.Context[uint32]
	led     machine.Pin
	on, off uint32
}

func (b *blinker) run() {
	for {
		switch b.Resume() {
		case coro.Start:
			b.led.High()
			fallthrough
		case ptOn:
			if !b.Sleep(ptOn, b.on) {
				return
			}
			b.led.Low()
			fallthrough
		case ptOff:
			if !b.Sleep(ptOff, b.off) {
				return
			}
			b.Goto(coro.Start)
		}
	}
}

// button takes presses signalled by the GPIO interrupt. A press flashes the
// LED by shortening the blinker's period; a timeout restores it.
type button struct {
	coro.Context[uint32]
	pin     machine.Pin
	presses sem.Sem
	blink   *blinker
	count   uint32
}

func (b *button) configure() error {
	b.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	b.presses.Init(board)
	return b.pin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		board.Raise(b.isr)
	})
}

func (b *button) isr() {
	b.presses.Signal(board)
	b.count++
	pool.Record(trace.EvtSignal, b.slot(), b.count, 0)
}

func (b *button) slot() timer.Handle {
	h, _ := b.Handle()
	return h
}

func (b *button) run() {
	for {
		switch b.Resume() {
		case coro.Start:
			fallthrough
		case ptPress:
			if !b.WaitSem(ptPress, &b.presses, 10, 100) {
				return
			}
			if b.presses.TimedOut() {
				b.blink.on, b.blink.off = 500, 500
				b.Goto(coro.Start)
				continue
			}
			b.blink.on, b.blink.off = 100, 100
			fallthrough
		case ptDebounce:
			if !b.Wait(ptDebounce, 50) {
				return
			}
			b.Goto(coro.Start)
		}
	}
}

// motion waits for the accelerometer to move past a threshold from its
// resting reading, records the jolt, then settles before re-arming
type motion struct {
	coro.Context[uint32]
	sensor     adxl345.Device
	rest       [3]int32
	threshold  int32
	lastJolt   int32
	detections uint32
}

func (m *motion) configure(bus *machine.I2C) {
	m.sensor = adxl345.New(bus)
	m.sensor.Configure()
	m.sensor.SetRate(adxl345.RATE_100HZ)
	m.sensor.SetRange(adxl345.RANGE_4G)
	m.calibrate()
}

func (m *motion) calibrate() {
	x, y, z := m.sensor.ReadRawAcceleration()
	m.rest = [3]int32{x, y, z}
}

func (m *motion) moved() bool {
	x, y, z := m.sensor.ReadRawAcceleration()
	jolt := abs(x-m.rest[0]) + abs(y-m.rest[1]) + abs(z-m.rest[2])
	if jolt < m.threshold {
		return false
	}
	m.lastJolt = jolt
	return true
}

func (m *motion) run() {
	for {
		switch m.Resume() {
		case coro.Start:
			fallthrough
		case ptMotion:
			if !m.WaitUntil(ptMotion, m.moved, 10) {
				return
			}
			m.detections++
			h, _ := m.Handle()
			pool.Record(trace.EvtSignal, h, m.detections, uint32(m.lastJolt))
			fallthrough
		case ptSettle:
			if !m.Sleep(ptSettle, 1000) {
				return
			}
			m.calibrate()
			m.Goto(coro.Start)
		}
	}
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
