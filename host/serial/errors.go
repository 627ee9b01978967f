package serial

import "errors"

var (
	errNoDevice   = errors.New("serial: device path is empty")
	errBadBaud    = errors.New("serial: baud rate must be positive")
	errBadTimeout = errors.New("serial: read timeout cannot be negative")
)
