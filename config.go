package rs232

import (
	"go.uber.org/zap"

	"github.com/allbin/go-rs232/internal/affinity"
	"github.com/allbin/go-rs232/transport"
	"github.com/allbin/go-rs232/transport/bugst"
)

// Config holds the configuration for a device
type Config struct {
	BaudRate int
	// Affinity routes every port operation through one dedicated worker
	// goroutine. When false, operations run on the caller's goroutine under a
	// per-device mutex.
	Affinity bool
	// Driver names a registered transport. Ignored when Transport is set or
	// the port is the null port.
	Driver    string
	Transport transport.Transport
	QueueSize int
	Logger    *zap.Logger
}

// Option is a functional option for configuring a device
type Option func(*Config) error

// DefaultConfig returns 9600 baud on the portable driver with affinity enabled
func DefaultConfig() Config {
	return Config{
		BaudRate:  9600,
		Affinity:  true,
		Driver:    bugst.Name,
		QueueSize: affinity.DefaultQueueSize,
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if rate <= 0 {
			return ErrInvalidBaudRate
		}
		c.BaudRate = rate
		return nil
	}
}

// WithAffinity selects between the dedicated worker (true) and direct
// execution under a mutex (false)
func WithAffinity(enabled bool) Option {
	return func(c *Config) error {
		c.Affinity = enabled
		return nil
	}
}

// WithDirect is shorthand for WithAffinity(false)
func WithDirect() Option {
	return WithAffinity(false)
}

// WithDriver selects a registered transport by name
func WithDriver(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return ErrInvalidConfig
		}
		c.Driver = name
		return nil
	}
}

// WithTransport uses tr instead of a registered driver
func WithTransport(tr transport.Transport) Option {
	return func(c *Config) error {
		if tr == nil {
			return ErrInvalidConfig
		}
		c.Transport = tr
		return nil
	}
}

// WithQueueSize sets how many calls may wait for the worker before callers
// block
func WithQueueSize(size int) Option {
	return func(c *Config) error {
		if size <= 0 {
			return ErrInvalidConfig
		}
		c.QueueSize = size
		return nil
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.Logger = logger
		return nil
	}
}
