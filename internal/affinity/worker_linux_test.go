//go:build linux

package affinity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWorkerRunsOnOneThread(t *testing.T) {
	var (
		mu   sync.Mutex
		tids = map[int]struct{}{}
	)
	w := newTestWorker(t, func(c *Call) (any, error) {
		mu.Lock()
		tids[unix.Gettid()] = struct{}{}
		mu.Unlock()
		return nil, nil
	})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := w.Call(context.Background(), OpStatus)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, tids, 1)
	_, callerThread := tids[unix.Gettid()]
	assert.False(t, callerThread)
}
