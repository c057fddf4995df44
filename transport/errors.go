package transport

import "errors"

var (
	ErrPortUnavailable = errors.New("serial port is not available")
	ErrPortOpen        = errors.New("unable to open serial port")
	ErrPortClosed      = errors.New("serial port is closed")
	ErrUnknownDriver   = errors.New("unknown transport driver")
)
