//go:build rp2040

package main

import (
	"errors"
	"machine"
)

var errUSBStalled = errors.New("usb: no progress")

// initUSB configures machine.Serial, which is USB CDC on the RP2040
func initUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

// usbWriter sends trace frames to the host. After repeated failures the
// host is assumed gone and frames are dropped until a write succeeds.
type usbWriter struct {
	failures     uint32
	disconnected bool
	dropped      uint32
}

func (w *usbWriter) Write(data []byte) (int, error) {
	if w.disconnected && !w.reconnect() {
		w.dropped++
		return len(data), nil
	}

	written := 0
	for written < len(data) {
		n, err := machine.Serial.Write(data[written:])
		if err == nil && n == 0 {
			err = errUSBStalled
		}
		if err != nil {
			w.failures++
			if w.failures > 10 {
				w.disconnected = true
				w.failures = 0
			}
			// the encoder stops on error, so report success and drop
			w.dropped++
			return len(data), nil
		}
		written += n
	}
	w.failures = 0
	return written, nil
}

// reconnect retries after a disconnect once the host drains the endpoint
func (w *usbWriter) reconnect() bool {
	if err := machine.Serial.WriteByte(0x7E); err != nil {
		return false
	}
	w.disconnected = false
	return true
}
