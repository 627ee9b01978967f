package serial

import (
	"io"
)

// Port is a serial port carrying trace frames from a board.
// Implementations:
// - Native serial (using github.com/tarm/serial)
// - any io.ReadWriteCloser with a no-op Flush, for tests
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration the RP2040 target uses
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

// Validate checks a configuration before opening
func (c *Config) Validate() error {
	switch {
	case c.Device == "":
		return errNoDevice
	case c.Baud <= 0:
		return errBadBaud
	case c.ReadTimeout < 0:
		return errBadTimeout
	}
	return nil
}
