package rs232

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/allbin/go-rs232/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTransport records everything a device does to it and fails on demand
type fakeTransport struct {
	mu         sync.Mutex
	ports      []string
	openErr    error
	initErr    error
	releaseErr error
	writeErr   error
	flushErr   error
	closeErr   error
	shortWrite bool
	// gate, when set, blocks every Write until it is closed
	gate chan struct{}

	written  bytes.Buffer
	input    bytes.Buffer
	inits    int
	releases int
	opens    int
	closes   int

	inflight atomic.Int32
	peak     atomic.Int32
	writing  chan struct{}
}

var (
	_ transport.Transport   = (*fakeTransport)(nil)
	_ transport.Initializer = (*fakeTransport)(nil)
)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		ports:   []string{"/dev/ttyFAKE0", "/dev/ttyFAKE1"},
		writing: make(chan struct{}, 1024),
	}
}

func (f *fakeTransport) List() ([]string, error) {
	return f.ports, nil
}

func (f *fakeTransport) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return f.initErr
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	return f.releaseErr
}

func (f *fakeTransport) Open(name string, baud int) (transport.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	return &fakeHandle{f: f}, nil
}

func (f *fakeTransport) set(fn func(f *fakeTransport)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeTransport) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return bytes.Clone(f.written.Bytes())
}

func (f *fakeTransport) counts() (inits, opens, closes, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits, f.opens, f.closes, f.releases
}

type fakeHandle struct {
	f *fakeTransport
}

// enter tracks how many goroutines are inside the handle at once
func (h *fakeHandle) enter() func() {
	n := h.f.inflight.Inc()
	for {
		p := h.f.peak.Load()
		if n <= p || h.f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() { h.f.inflight.Dec() }
}

func (h *fakeHandle) Read(p []byte) (int, error) {
	defer h.enter()()
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	return h.f.input.Read(p)
}

func (h *fakeHandle) Write(p []byte) (int, error) {
	defer h.enter()()

	h.f.mu.Lock()
	gate := h.f.gate
	h.f.mu.Unlock()
	if gate != nil {
		h.f.writing <- struct{}{}
		<-gate
	}
	// widen the window for overlapping writers
	time.Sleep(10 * time.Microsecond)

	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	if h.f.writeErr != nil {
		return 0, h.f.writeErr
	}
	if h.f.shortWrite && len(p) > 1 {
		h.f.written.Write(p[:1])
		return 1, nil
	}
	return h.f.written.Write(p)
}

func (h *fakeHandle) Flush() error {
	defer h.enter()()
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	return h.f.flushErr
}

func (h *fakeHandle) Close() error {
	defer h.enter()()
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	h.f.closes++
	return h.f.closeErr
}

type mode struct {
	name string
	opts []Option
}

var modes = []mode{
	{"affinity", nil},
	{"direct", []Option{WithDirect()}},
}

// newTestDevice builds a device on tr that is closed when the test ends
func newTestDevice(t *testing.T, port string, tr transport.Transport, opts ...Option) *Device {
	t.Helper()
	all := []Option{WithLogger(zaptest.NewLogger(t))}
	if tr != nil {
		all = append(all, WithTransport(tr))
	}
	d, err := New(port, append(all, opts...)...)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", port, err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func frame(sender, seq int) []byte {
	return []byte{0xAA, byte(sender), byte(seq >> 8), byte(seq)}
}
