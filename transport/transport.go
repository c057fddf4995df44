// Package transport defines the byte-level port drivers a device runs on.
//
// A Transport enumerates and opens ports; the Handle it returns exposes the
// port's input stream (io.Reader) and output stream (io.Writer plus Flush).
// Handles are not safe for concurrent use. Callers are expected to confine
// them to one goroutine, which is what the rs232 package does.
//
// Drivers register themselves by name from an init function:
//
//	import _ "github.com/allbin/go-rs232/transport/bugst"
//
//	tr, err := transport.Lookup("bugst")
//
// The reserved port name MOCK selects the in-memory Null transport
// regardless of driver.
package transport

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// NullPortName is the reserved port identifier that selects the Null transport
const NullPortName = "MOCK"

// Transport is a serial port driver
type Transport interface {
	// List returns the identifiers of the ports that can currently be opened
	List() ([]string, error)
	// Open acquires the named port at 8N1 framing with the given baud rate.
	// Errors wrap ErrPortUnavailable or ErrPortOpen.
	Open(name string, baud int) (Handle, error)
}

// Initializer is implemented by transports that need one-time setup before
// the first Open. Init runs on the same goroutine that will later call Open.
//
// A transport that also implements io.Closer is closed when the device using
// it is closed, on the goroutine that ran Init.
type Initializer interface {
	Init() error
}

// Handle is an open port
type Handle interface {
	io.Reader
	io.Writer
	// Flush blocks until written output has been handed to the hardware
	Flush() error
	Close() error
}

// Factory builds a transport instance
type Factory func() Transport

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a driver available by name. Registering the same name twice
// panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name = strings.ToLower(name)
	if factory == nil {
		panic("transport: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("transport: Register called twice for driver " + name)
	}
	registry[name] = factory
}

// Lookup returns a new instance of the named driver
func Lookup(name string) (Transport, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownDriver, name, strings.Join(Drivers(), ", "))
	}
	return factory(), nil
}

// Drivers returns the sorted names of the registered drivers
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsNull reports whether name selects the Null transport
func IsNull(name string) bool {
	return strings.EqualFold(name, NullPortName)
}

// Exists reports whether tr lists a port called name
func Exists(tr Transport, name string) (bool, error) {
	ports, err := tr.List()
	if err != nil {
		return false, err
	}
	for _, p := range ports {
		if p == name {
			return true, nil
		}
	}
	return false, nil
}
