package affinity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"
)

var errBoom = errors.New("boom")

func newTestWorker(t *testing.T, h HandlerFunc, opts ...Option) *Worker {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	w := NewWorker(h, opts...)
	w.Start()
	t.Cleanup(w.Stop)
	return w
}

func TestWorkerExecutesInSubmissionOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got []int
	)
	w := newTestWorker(t, func(c *Call) (any, error) {
		n, err := Arg[int](c, 0)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		return n, nil
	})

	const count = 50
	calls := make([]*Call, count)
	for i := range calls {
		calls[i] = NewCall(OpSend, i)
		require.NoError(t, w.Submit(context.Background(), calls[i]))
	}
	for i, c := range calls {
		res := <-c.Done()
		require.NoError(t, res.Err)
		assert.Equal(t, i, res.Value)
		assert.Equal(t, uint64(i+1), c.Seq())
	}

	mu.Lock()
	defer mu.Unlock()
	for i, n := range got {
		assert.Equal(t, i, n)
	}
}

func TestWorkerMutualExclusion(t *testing.T) {
	var inflight, peak atomic.Int32
	w := newTestWorker(t, func(c *Call) (any, error) {
		n := inflight.Inc()
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Microsecond)
		inflight.Dec()
		return nil, nil
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := w.Call(context.Background(), OpSend, i)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, uint64(200), w.Stats().Executed)
}

func TestWorkerPropagatesErrorsAndStaysAlive(t *testing.T) {
	w := newTestWorker(t, func(c *Call) (any, error) {
		if c.Op == OpConnect {
			return nil, errBoom
		}
		return "ok", nil
	})

	_, err := w.Call(context.Background(), OpConnect)
	assert.ErrorIs(t, err, errBoom)

	v, err := w.Call(context.Background(), OpStatus)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.True(t, w.Running())

	st := w.Stats()
	assert.Equal(t, uint64(2), st.Submitted)
	assert.Equal(t, uint64(2), st.Executed)
	assert.Equal(t, uint64(1), st.Failed)
}

func TestWorkerRecoversPanics(t *testing.T) {
	w := newTestWorker(t, func(c *Call) (any, error) {
		if c.Op == OpSend {
			panic("driver exploded")
		}
		return nil, nil
	})

	_, err := w.Call(context.Background(), OpSend)
	require.ErrorIs(t, err, ErrPanicked)
	assert.Contains(t, err.Error(), "driver exploded")

	_, err = w.Call(context.Background(), OpStatus)
	assert.NoError(t, err)
	assert.True(t, w.Running())
}

func TestWorkerRejectsResubmission(t *testing.T) {
	w := newTestWorker(t, func(c *Call) (any, error) { return nil, nil })

	c := NewCall(OpStatus)
	require.NoError(t, w.Submit(context.Background(), c))
	<-c.Done()

	err := w.Submit(context.Background(), c)
	assert.ErrorIs(t, err, ErrResubmitted)
}

func TestWorkerCallerStopsWaiting(t *testing.T) {
	release := make(chan struct{})
	var ran atomic.Bool
	w := newTestWorker(t, func(c *Call) (any, error) {
		<-release
		ran.Store(true)
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := w.Call(ctx, OpSend)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	// the abandoned call still runs
	_, err = w.Call(context.Background(), OpStatus)
	require.NoError(t, err)
	assert.True(t, ran.Load())
}

func TestWorkerStopFailsPendingCalls(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	w := NewWorker(HandlerFunc(func(c *Call) (any, error) {
		if c.Op == OpConnect {
			close(entered)
			<-release
		}
		return "done", nil
	}), WithLogger(zaptest.NewLogger(t)))
	w.Start()

	blocking := NewCall(OpConnect)
	require.NoError(t, w.Submit(context.Background(), blocking))
	<-entered

	pending := []*Call{NewCall(OpSend), NewCall(OpSend), NewCall(OpStatus)}
	for _, c := range pending {
		require.NoError(t, w.Submit(context.Background(), c))
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		return errors.Is(w.Submit(ctx, NewCall(OpStatus)), ErrStopped)
	}, time.Second, time.Millisecond)
	close(release)
	<-stopped

	res := <-blocking.Done()
	assert.NoError(t, res.Err)
	assert.Equal(t, "done", res.Value)
	for _, c := range pending {
		res := <-c.Done()
		assert.ErrorIs(t, res.Err, ErrStopped)
	}
	assert.False(t, w.Running())
}

func TestWorkerStopWithoutStart(t *testing.T) {
	w := NewWorker(HandlerFunc(func(c *Call) (any, error) { return nil, nil }))

	c := NewCall(OpStatus)
	require.NoError(t, w.Submit(context.Background(), c))
	assert.Equal(t, 1, w.Stats().Pending)

	w.Stop()
	res := <-c.Done()
	assert.ErrorIs(t, res.Err, ErrStopped)
	assert.False(t, w.Running())

	_, err := w.Call(context.Background(), OpStatus)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	w := NewWorker(HandlerFunc(func(c *Call) (any, error) { return nil, nil }))
	w.Start()
	assert.True(t, w.Running())
	w.Stop()
	w.Stop()
	assert.False(t, w.Running())
}

func TestWorkerQueueSizeOption(t *testing.T) {
	w := NewWorker(HandlerFunc(func(c *Call) (any, error) { return nil, nil }), WithQueueSize(3), WithoutThreadLock())
	defer w.Stop()
	assert.Equal(t, 3, w.queue.Cap())
	assert.False(t, w.lockThread)
}
