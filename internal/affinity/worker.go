package affinity

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Handler executes calls on the worker goroutine
type Handler interface {
	Handle(c *Call) (any, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(c *Call) (any, error)

func (f HandlerFunc) Handle(c *Call) (any, error) { return f(c) }

// Option configures a Worker
type Option func(*Worker)

// WithQueueSize sets the envelope queue capacity
func WithQueueSize(size int) Option {
	return func(w *Worker) {
		w.queue = NewQueue(size)
	}
}

// WithLogger sets the logger used for dispatch and failure reporting
func WithLogger(logger *zap.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithoutThreadLock lets the runtime move the worker goroutine between OS
// threads. Execution is still confined to a single goroutine.
func WithoutThreadLock() Option {
	return func(w *Worker) {
		w.lockThread = false
	}
}

// Stats is a snapshot of worker counters
type Stats struct {
	Submitted uint64
	Executed  uint64
	Failed    uint64
	Pending   int
}

// Worker owns the goroutine that executes every submitted call, one at a
// time, in submission order.
type Worker struct {
	handler    Handler
	queue      *Queue
	logger     *zap.Logger
	lockThread bool

	// stopped is only written under mu.Lock; Submit holds mu.RLock while
	// enqueuing so nothing can slip into the queue after the final drain.
	mu      sync.RWMutex
	stopped bool

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once

	seq      atomic.Uint64
	executed atomic.Uint64
	failed   atomic.Uint64
}

// NewWorker creates a worker for h. Call Start to begin executing.
func NewWorker(h Handler, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		handler:    h,
		queue:      NewQueue(DefaultQueueSize),
		logger:     zap.NewNop(),
		lockThread: true,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker goroutine. Calls submitted before Start wait in
// the queue.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.run()
	})
}

// Submit enqueues c. It fails if c was submitted before or the worker has
// been stopped, and only blocks while the queue is full.
func (w *Worker) Submit(ctx context.Context, c *Call) error {
	if !c.submitted.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrResubmitted, c.Op)
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return ErrStopped
	}

	c.seq = w.seq.Inc()
	if err := w.queue.Enqueue(ctx, c); err != nil {
		return err
	}
	return nil
}

// Call submits op and blocks until the worker has executed it. The handler's
// error is returned unchanged. If ctx ends first the caller stops waiting but
// the call still runs.
func (w *Worker) Call(ctx context.Context, op Op, args ...any) (any, error) {
	c := NewCall(op, args...)
	if err := w.Submit(ctx, c); err != nil {
		return nil, err
	}

	select {
	case res := <-c.Done():
		return res.Value, res.Err
	case <-ctx.Done():
		w.logger.Debug("caller stopped waiting",
			zap.Stringer("op", op),
			zap.Uint64("seq", c.seq),
			zap.Error(ctx.Err()),
		)
		return nil, ctx.Err()
	}
}

// Stop rejects new submissions, wakes the worker and waits for it to exit.
// Calls still queued are completed with ErrStopped. Stop must not be called
// from a Handler.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()

		w.cancel()
		if w.started.Load() {
			<-w.done
			return
		}
		w.failPending()
	})
}

// Running reports whether the worker goroutine is alive
func (w *Worker) Running() bool {
	if !w.started.Load() {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Stats returns the current counters
func (w *Worker) Stats() Stats {
	return Stats{
		Submitted: w.seq.Load(),
		Executed:  w.executed.Load(),
		Failed:    w.failed.Load(),
		Pending:   w.queue.Len(),
	}
}

func (w *Worker) run() {
	defer close(w.done)

	if w.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	w.logger.Debug("affinity worker started")
	for {
		c, err := w.queue.Dequeue(w.ctx)
		if err != nil {
			w.failPending()
			w.logger.Debug("affinity worker stopped")
			return
		}
		if w.ctx.Err() != nil {
			w.reject(c)
			continue
		}
		w.execute(c)
	}
}

func (w *Worker) execute(c *Call) {
	log := w.logger.With(zap.Stringer("op", c.Op), zap.Uint64("seq", c.seq))
	log.Debug("executing call")

	value, err := w.dispatch(c)
	w.executed.Inc()
	if err != nil {
		w.failed.Inc()
		log.Debug("call failed", zap.Error(err))
	}

	if !c.complete(Result{Value: value, Err: err}) {
		log.Error("call was already completed, result dropped")
	}
}

func (w *Worker) dispatch(c *Call) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("operation panicked",
				zap.Stringer("op", c.Op),
				zap.Uint64("seq", c.seq),
				zap.Any("panic", r),
			)
			value = nil
			err = fmt.Errorf("%w: %s: %v", ErrPanicked, c.Op, r)
		}
	}()
	return w.handler.Handle(c)
}

func (w *Worker) reject(c *Call) {
	w.logger.Debug("rejecting call after stop", zap.Stringer("op", c.Op), zap.Uint64("seq", c.seq))
	c.complete(Result{Err: ErrStopped})
}

func (w *Worker) failPending() {
	for _, c := range w.queue.Drain() {
		w.reject(c)
	}
}
