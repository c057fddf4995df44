package rs232

import (
	"errors"

	"github.com/allbin/go-rs232/transport"
)

// Predefined error types for robust error handling
var (
	ErrAlreadyConnected = errors.New("device already connected")
	ErrNotConnected     = errors.New("device not connected")
	ErrDeviceClosed     = errors.New("device is closed")
	ErrNilData          = errors.New("nil data")
	ErrTransportIO      = errors.New("serial transport I/O failed")
	ErrMarshalling      = errors.New("call marshalling failed")
	ErrInvalidConfig    = errors.New("invalid device configuration")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")

	// Raised by transports while connecting
	ErrPortUnavailable = transport.ErrPortUnavailable
	ErrPortOpen        = transport.ErrPortOpen
)
