// Package affinity confines a set of operations to one dedicated goroutine.
//
// Callers submit a Call envelope and block on its completion channel while a
// single Worker dequeues envelopes in FIFO order and executes them through a
// Handler. The Worker goroutine is locked to one OS thread for its lifetime so
// that drivers which care about thread identity always see the same thread.
package affinity

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// Op identifies the operation carried by a Call
type Op int

const (
	OpInitialize Op = iota
	OpConnect
	OpDisconnect
	OpSend
	OpReceive
	OpStatus
	OpRelease
)

func (o Op) String() string {
	switch o {
	case OpInitialize:
		return "initialize"
	case OpConnect:
		return "connect"
	case OpDisconnect:
		return "disconnect"
	case OpSend:
		return "send"
	case OpReceive:
		return "receive"
	case OpStatus:
		return "status"
	case OpRelease:
		return "release"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Result is what a Handler produced for one Call
type Result struct {
	Value any
	Err   error
}

// Call is a single pending operation: what to run, with which arguments, and
// where to report the outcome. A Call is single use.
type Call struct {
	Op   Op
	Args []any

	seq       uint64
	submitted atomic.Bool
	once      sync.Once
	done      chan Result
}

// NewCall builds an envelope for op with the given arguments
func NewCall(op Op, args ...any) *Call {
	return &Call{
		Op:   op,
		Args: args,
		done: make(chan Result, 1), // never blocks the worker
	}
}

// Seq returns the submission sequence number assigned by the worker, zero if
// the call was never accepted.
func (c *Call) Seq() uint64 {
	return c.seq
}

// Done is signaled exactly once with the outcome of the call
func (c *Call) Done() <-chan Result {
	return c.done
}

// complete records the outcome. Only the first invocation has any effect.
func (c *Call) complete(res Result) bool {
	signaled := false
	c.once.Do(func() {
		c.done <- res
		signaled = true
	})
	return signaled
}

// Arg returns argument i as T
func Arg[T any](c *Call, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(c.Args) {
		return zero, fmt.Errorf("%w: %s has %d arguments, wanted index %d", ErrBadArgument, c.Op, len(c.Args), i)
	}
	v, ok := c.Args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s argument %d is %T", ErrBadArgument, c.Op, i, c.Args[i])
	}
	return v, nil
}
