package rs232

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/allbin/go-rs232/internal/affinity"
	"github.com/allbin/go-rs232/transport"
)

// Status is a snapshot of the device state
type Status struct {
	Port        string
	BaudRate    int
	Affinity    bool
	Initialized bool
	Connected   bool
	// Worker counters, zero in direct mode
	Worker WorkerStats
}

// WorkerStats counts calls handled by the affinity worker
type WorkerStats struct {
	Submitted uint64
	Executed  uint64
	Failed    uint64
	Pending   int
}

// outputStream is the writable half of an open port
type outputStream interface {
	io.Writer
	Flush() error
}

// Device is a serial device whose port operations are serialized.
//
// In affinity mode (the default) every operation is marshalled onto one
// dedicated worker goroutine, locked to a single OS thread, and the caller
// blocks until it has run. In direct mode operations run on the caller's
// goroutine while holding a per-device mutex. Either way at most one
// goroutine touches the port at a time and errors reach the caller unchanged.
type Device struct {
	port      string
	config    Config
	transport transport.Transport
	logger    *zap.Logger

	mu     sync.Mutex // serializes direct mode
	worker *affinity.Worker
	closed atomic.Bool

	// Owned by the worker goroutine in affinity mode and by mu in direct
	// mode. Never touched anywhere else.
	handle      transport.Handle
	in          io.Reader
	out         outputStream
	initialized bool
	connected   bool
}

// New creates and initializes a device for port. The port is not opened
// until Connect. Use transport.NullPortName for a device without hardware.
func New(port string, opts ...Option) (*Device, error) {
	if port == "" {
		return nil, fmt.Errorf("%w: port name is required", ErrInvalidConfig)
	}

	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("port", port))

	tr, err := resolveTransport(port, config)
	if err != nil {
		return nil, err
	}

	d := &Device{
		port:      port,
		config:    config,
		transport: tr,
		logger:    logger,
	}

	logger.Debug("initializing device",
		zap.Int("baud", config.BaudRate),
		zap.Bool("affinity", config.Affinity),
		zap.String("transport", fmt.Sprintf("%T", tr)),
	)

	if config.Affinity {
		d.worker = affinity.NewWorker(affinity.HandlerFunc(d.dispatch),
			affinity.WithQueueSize(config.QueueSize),
			affinity.WithLogger(logger.Named("affinity")),
		)
		d.worker.Start()
	}

	if _, err := d.invoke(context.Background(), affinity.OpInitialize); err != nil {
		if d.worker != nil {
			d.worker.Stop()
		}
		return nil, err
	}
	return d, nil
}

func resolveTransport(port string, config Config) (transport.Transport, error) {
	switch {
	case config.Transport != nil:
		return config.Transport, nil
	case transport.IsNull(port):
		return transport.NewNull(), nil
	default:
		tr, err := transport.Lookup(config.Driver)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return tr, nil
	}
}

// Port returns the port identifier the device was created for
func (d *Device) Port() string {
	return d.port
}

// Affinity reports whether calls are marshalled onto the worker goroutine
func (d *Device) Affinity() bool {
	return d.worker != nil
}

// Connect opens the port. It fails with ErrAlreadyConnected if the device is
// connected, leaving the existing connection untouched.
func (d *Device) Connect() error {
	return d.ConnectContext(context.Background())
}

// ConnectContext is Connect with a bound on how long the caller waits.
// Giving up does not cancel the connect; it still runs.
func (d *Device) ConnectContext(ctx context.Context) error {
	_, err := d.invoke(ctx, affinity.OpConnect)
	return err
}

// Disconnect closes the port. It does nothing if the device is not connected.
func (d *Device) Disconnect() error {
	return d.DisconnectContext(context.Background())
}

// DisconnectContext is Disconnect with a bound on how long the caller waits
func (d *Device) DisconnectContext(ctx context.Context) error {
	_, err := d.invoke(ctx, affinity.OpDisconnect)
	return err
}

// SendBytes writes data to the port and flushes it
func (d *Device) SendBytes(data []byte) error {
	return d.SendBytesContext(context.Background(), data)
}

// SendBytesContext is SendBytes with a bound on how long the caller waits.
// data is copied before it is queued.
func (d *Device) SendBytesContext(ctx context.Context, data []byte) error {
	if data == nil {
		return ErrNilData
	}
	_, err := d.invoke(ctx, affinity.OpSend, bytes.Clone(data))
	return err
}

// SendByte writes a single byte
func (d *Device) SendByte(b byte) error {
	return d.SendBytes([]byte{b})
}

// Receive reads whatever the port has available, up to len(buf) bytes
func (d *Device) Receive(buf []byte) (int, error) {
	return d.ReceiveContext(context.Background(), buf)
}

// ReceiveContext is Receive with a bound on how long the caller waits. buf is
// only written to if the read completes before ctx ends.
func (d *Device) ReceiveContext(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	v, err := d.invoke(ctx, affinity.OpReceive, len(buf))
	data, _ := v.([]byte)
	n := copy(buf, data)
	return n, err
}

// Status returns the device state as seen by the goroutine that owns it
func (d *Device) Status() (Status, error) {
	v, err := d.invoke(context.Background(), affinity.OpStatus)
	if err != nil {
		return Status{}, err
	}
	st := v.(Status)
	if d.worker != nil {
		ws := d.worker.Stats()
		st.Worker = WorkerStats{
			Submitted: ws.Submitted,
			Executed:  ws.Executed,
			Failed:    ws.Failed,
			Pending:   ws.Pending,
		}
	}
	return st, nil
}

// IsConnected reports whether the port is open. A closed device is never
// connected.
func (d *Device) IsConnected() bool {
	st, err := d.Status()
	return err == nil && st.Connected
}

// ListPorts returns the ports the device's transport can see
func (d *Device) ListPorts() ([]string, error) {
	return d.transport.List()
}

// PortExists reports whether the transport lists a port called name
func (d *Device) PortExists(name string) bool {
	ok, err := transport.Exists(d.transport, name)
	return err == nil && ok
}

// Close disconnects, releases the transport and, in affinity mode, stops the
// worker. Calls still waiting for the worker fail with ErrDeviceClosed.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return ErrDeviceClosed
	}

	_, err := d.call(context.Background(), affinity.OpDisconnect)
	_, relErr := d.call(context.Background(), affinity.OpRelease)
	err = multierr.Append(err, relErr)
	if d.worker != nil {
		d.worker.Stop()
	}
	d.logger.Debug("device closed")
	return err
}

// invoke is the entry point of every public operation
func (d *Device) invoke(ctx context.Context, op affinity.Op, args ...any) (any, error) {
	if d.closed.Load() {
		return nil, ErrDeviceClosed
	}
	return d.call(ctx, op, args...)
}

func (d *Device) call(ctx context.Context, op affinity.Op, args ...any) (any, error) {
	if d.worker == nil {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.dispatch(affinity.NewCall(op, args...))
	}

	v, err := d.worker.Call(ctx, op, args...)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, affinity.ErrStopped):
		return nil, ErrDeviceClosed
	case errors.Is(err, affinity.ErrResubmitted), errors.Is(err, affinity.ErrBadArgument):
		d.logger.Error("error marshalling call to worker", zap.Stringer("op", op), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrMarshalling, err)
	default:
		return v, err
	}
}

// dispatch runs one operation against the device state. It is only ever
// executed by the worker goroutine or under mu.
func (d *Device) dispatch(c *affinity.Call) (any, error) {
	if d.closed.Load() && c.Op != affinity.OpDisconnect && c.Op != affinity.OpRelease {
		return nil, ErrDeviceClosed
	}

	switch c.Op {
	case affinity.OpInitialize:
		return nil, d.initializeImpl()
	case affinity.OpConnect:
		return nil, d.connectImpl()
	case affinity.OpDisconnect:
		return nil, d.disconnectImpl()
	case affinity.OpSend:
		data, err := affinity.Arg[[]byte](c, 0)
		if err != nil {
			return nil, err
		}
		return nil, d.sendBytesImpl(data)
	case affinity.OpReceive:
		size, err := affinity.Arg[int](c, 0)
		if err != nil {
			return nil, err
		}
		return d.receiveImpl(size)
	case affinity.OpStatus:
		return d.statusImpl(), nil
	case affinity.OpRelease:
		return nil, d.releaseImpl()
	default:
		return nil, fmt.Errorf("%w: unknown operation %s", affinity.ErrBadArgument, c.Op)
	}
}

func (d *Device) initializeImpl() error {
	if d.initialized {
		return nil
	}
	d.logger.Debug("loading serial driver")
	if initer, ok := d.transport.(transport.Initializer); ok {
		if err := initer.Init(); err != nil {
			return fmt.Errorf("initializing transport: %w", err)
		}
	}
	d.initialized = true
	return nil
}

func (d *Device) releaseImpl() error {
	if !d.initialized {
		return nil
	}
	d.initialized = false
	if closer, ok := d.transport.(io.Closer); ok {
		d.logger.Debug("releasing serial driver")
		if err := closer.Close(); err != nil {
			return fmt.Errorf("releasing transport: %w", err)
		}
	}
	return nil
}

func (d *Device) connectImpl() error {
	d.logger.Debug("connecting")
	if d.connected {
		return ErrAlreadyConnected
	}

	h, err := d.transport.Open(d.port, d.config.BaudRate)
	if err != nil {
		return err
	}

	d.handle = h
	d.in = h
	d.out = h
	d.connected = true
	d.logger.Info("connected", zap.Int("baud", d.config.BaudRate))
	return nil
}

func (d *Device) disconnectImpl() error {
	if !d.connected {
		return nil
	}

	err := d.handle.Close()
	d.handle = nil
	d.in = nil
	d.out = nil
	d.connected = false

	if err != nil {
		d.logger.Warn("error closing port", zap.Error(err))
		return fmt.Errorf("%w: closing port: %v", ErrTransportIO, err)
	}
	d.logger.Info("disconnected")
	return nil
}

func (d *Device) sendBytesImpl(data []byte) error {
	if !d.connected {
		return ErrNotConnected
	}
	d.logger.Debug("sending", zap.Int("len", len(data)), zap.String("data", fmt.Sprintf("% X", data)))

	n, err := d.out.Write(data)
	if err != nil {
		return fmt.Errorf("%w: write: %v", ErrTransportIO, err)
	}
	if n < len(data) {
		return fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrTransportIO, n, len(data), io.ErrShortWrite)
	}
	if err := d.out.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrTransportIO, err)
	}
	return nil
}

func (d *Device) receiveImpl(size int) ([]byte, error) {
	if !d.connected {
		return nil, ErrNotConnected
	}

	buf := make([]byte, size)
	n, err := d.in.Read(buf)
	if err == io.EOF {
		return buf[:n], io.EOF
	}
	if err != nil {
		return buf[:n], fmt.Errorf("%w: read: %v", ErrTransportIO, err)
	}
	return buf[:n], nil
}

func (d *Device) statusImpl() Status {
	return Status{
		Port:        d.port,
		BaudRate:    d.config.BaudRate,
		Affinity:    d.worker != nil,
		Initialized: d.initialized,
		Connected:   d.connected,
	}
}
