// Package bugst is the portable serial driver backed by go.bug.st/serial.
// It registers itself as "bugst" and is the default driver of the rs232
// package.
package bugst

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.bug.st/serial"

	"github.com/allbin/go-rs232/transport"
)

// Name is the registry name of this driver
const Name = "bugst"

// DefaultReadTimeout bounds a Read so the goroutine that owns the port is
// never parked on an idle line
const DefaultReadTimeout = 100 * time.Millisecond

// allow tests to override the library entry points
var (
	openPort     = func(name string, mode *serial.Mode) (port, error) { return serial.Open(name, mode) }
	getPortsList = serial.GetPortsList
)

type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Drain() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

func init() {
	transport.Register(Name, func() transport.Transport { return New() })
}

// Transport opens ports through go.bug.st/serial
type Transport struct {
	// ReadTimeout is applied to every opened port. Zero blocks until data
	// arrives.
	ReadTimeout time.Duration
}

// Ensure Transport implements transport.Transport at compile time
var _ transport.Transport = (*Transport)(nil)

// New returns the driver
func New() *Transport {
	return &Transport{ReadTimeout: DefaultReadTimeout}
}

// List returns the ports reported by the operating system
func (t *Transport) List() ([]string, error) {
	ports, err := getPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerating serial ports: %w", err)
	}
	return ports, nil
}

// Open opens name at baud, 8 data bits, no parity, one stop bit
func (t *Transport) Open(name string, baud int) (transport.Handle, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := openPort(name, mode)
	if err != nil {
		return nil, classify(name, err)
	}
	if t.ReadTimeout > 0 {
		if err := p.SetReadTimeout(t.ReadTimeout); err != nil {
			p.Close()
			return nil, fmt.Errorf("%w: %q: setting read timeout: %v", transport.ErrPortOpen, name, err)
		}
	}
	return &handle{port: p}, nil
}

// classify maps library and OS errors onto the transport sentinels
func classify(name string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound, serial.PortBusy, serial.PermissionDenied, serial.InvalidSerialPort:
			return fmt.Errorf("%w: %q: %v", transport.ErrPortUnavailable, name, err)
		default:
			return fmt.Errorf("%w: %q: %v", transport.ErrPortOpen, name, err)
		}
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %q: %v", transport.ErrPortUnavailable, name, err)
	}
	return fmt.Errorf("%w: %q: %v", transport.ErrPortOpen, name, err)
}

type handle struct {
	port port
}

func (h *handle) Read(p []byte) (int, error)  { return h.port.Read(p) }
func (h *handle) Write(p []byte) (int, error) { return h.port.Write(p) }
func (h *handle) Flush() error                { return h.port.Drain() }
func (h *handle) Close() error                { return h.port.Close() }
