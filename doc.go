// Package rs232 provides serialized access to a serial device from any number
// of goroutines.
//
// Serial drivers are rarely reentrant and some insist on being driven from a
// single OS thread. A Device hides that: every port operation (driver
// initialization, open, close, write, read) runs on one dedicated worker
// goroutine, in the order it was submitted, while the caller blocks exactly as
// if the call were local.
//
// # Basic Usage
//
// Create a device at the default 9600 8N1 and connect:
//
//	dev, err := rs232.New("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	if err := dev.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	err = dev.SendBytes([]byte{0x01, 0x02, 0x03})
//
// SendBytes, Connect and Disconnect are safe to call from any goroutine.
//
// # Configuration Options
//
//	dev, err := rs232.New("/dev/ttyUSB0",
//	    rs232.WithBaudRate(115200),
//	    rs232.WithDriver("termios"),
//	    rs232.WithLogger(logger),
//	)
//
// # Execution Modes
//
// Affinity mode (default) marshals each call into a FIFO queue consumed by a
// worker goroutine locked to one OS thread. Direct mode (WithDirect) runs the
// call on the caller's goroutine under a per-device mutex. Both give the same
// results and the same errors; pick direct mode when the driver does not care
// which thread calls it.
//
// The Context variants (ConnectContext, SendBytesContext, ...) let a caller
// stop waiting. The operation itself is never cancelled once queued.
//
// # Testing Without Hardware
//
// The reserved port name MOCK selects an in-memory transport:
//
//	dev, _ := rs232.New(transport.NullPortName)
//	dev.Connect()
//	dev.SendBytes([]byte{0x01, 0x02, 0x03})
//	dev.Disconnect()
//
// # Error Handling
//
// Use errors.Is() for error type checking:
//
//	if errors.Is(err, rs232.ErrAlreadyConnected) {
//	    // already open, keep going
//	}
//
// Disconnect on a device that is not connected is a no-op. Sending or
// receiving while disconnected fails with ErrNotConnected.
//
// # Shutdown
//
// Close disconnects and stops the worker. Calls still queued at that point
// fail with ErrDeviceClosed rather than blocking forever.
//
// # Default Configuration
//
//   - BaudRate: 9600
//   - Framing: 8N1 (fixed)
//   - Affinity: enabled
//   - Driver: bugst (go.bug.st/serial)
//   - QueueSize: 64
package rs232
