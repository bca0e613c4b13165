package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoolSubmit(t *testing.T) {
	pool, err := New(&Config{Workers: 4}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Shutdown()

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, int64(50), atomic.LoadInt64(&counter))
	stats := pool.Stats()
	assert.Equal(t, int64(50), stats.Submitted)
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	pool, err := New(nil, zap.NewNop())
	require.NoError(t, err)

	pool.Shutdown()
	assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolClosed)
}

func TestPoolPanicRecovery(t *testing.T) {
	pool, err := New(&Config{Workers: 2}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, pool.Submit(func() {
		defer wg.Done()
		panic("boom")
	}))
	wg.Wait()

	// panic 被 ants 的 panic handler 吸收，池仍然可用
	done := make(chan struct{})
	require.NoError(t, pool.Submit(func() { close(done) }))
	<-done
}
