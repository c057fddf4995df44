package affinity

import "context"

// DefaultQueueSize is the envelope capacity used when none is configured.
// Producers block once it is reached.
const DefaultQueueSize = 64

// Queue is a FIFO of pending calls with many producers and one consumer
type Queue struct {
	ch chan *Call
}

// NewQueue creates a queue holding up to size calls
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan *Call, size)}
}

// Enqueue appends c to the tail. It only blocks while the queue is full.
func (q *Queue) Enqueue(ctx context.Context, c *Call) error {
	select {
	case q.ch <- c:
		return nil
	default:
	}

	select {
	case q.ch <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue removes the head, waiting until one is available or ctx ends.
// Use a context with a deadline for a bounded wait.
func (q *Queue) Dequeue(ctx context.Context) (*Call, error) {
	select {
	case c := <-q.ch:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Drain removes every call currently queued without waiting
func (q *Queue) Drain() []*Call {
	var calls []*Call
	for {
		select {
		case c := <-q.ch:
			calls = append(calls, c)
		default:
			return calls
		}
	}
}

// Len returns the number of queued calls
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return cap(q.ch)
}
