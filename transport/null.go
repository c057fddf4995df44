package transport

import (
	"bytes"
	"io"
	"sync"
)

// Null is a memory-backed transport. Writes accumulate in an output buffer
// and reads are served from data handed to Feed. Every handle opened from the
// same Null shares those buffers, so the output survives reconnects.
type Null struct {
	mu      sync.Mutex
	out     bytes.Buffer
	in      bytes.Buffer
	opens   int
	flushes int
}

// Ensure Null implements Transport at compile time
var _ Transport = (*Null)(nil)

// NewNull returns an empty Null transport
func NewNull() *Null {
	return &Null{}
}

// List returns the reserved null port name
func (n *Null) List() ([]string, error) {
	return []string{NullPortName}, nil
}

// Open returns a handle onto the shared buffers. It never fails.
func (n *Null) Open(name string, baud int) (Handle, error) {
	n.mu.Lock()
	n.opens++
	n.mu.Unlock()
	return &nullHandle{n: n}, nil
}

// Feed queues data to be returned by reads
func (n *Null) Feed(data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.in.Write(data)
}

// Written returns a copy of everything written so far
func (n *Null) Written() []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return bytes.Clone(n.out.Bytes())
}

// Opens returns how many handles have been opened
func (n *Null) Opens() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.opens
}

// Flushes returns how many times any handle was flushed
func (n *Null) Flushes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.flushes
}

type nullHandle struct {
	n      *Null
	closed bool
}

func (h *nullHandle) Read(p []byte) (int, error) {
	h.n.mu.Lock()
	defer h.n.mu.Unlock()
	if h.closed {
		return 0, ErrPortClosed
	}
	if h.n.in.Len() == 0 {
		return 0, io.EOF
	}
	return h.n.in.Read(p)
}

func (h *nullHandle) Write(p []byte) (int, error) {
	h.n.mu.Lock()
	defer h.n.mu.Unlock()
	if h.closed {
		return 0, ErrPortClosed
	}
	return h.n.out.Write(p)
}

func (h *nullHandle) Flush() error {
	h.n.mu.Lock()
	defer h.n.mu.Unlock()
	if h.closed {
		return ErrPortClosed
	}
	h.n.flushes++
	return nil
}

func (h *nullHandle) Close() error {
	h.n.mu.Lock()
	defer h.n.mu.Unlock()
	if h.closed {
		return ErrPortClosed
	}
	h.closed = true
	return nil
}
