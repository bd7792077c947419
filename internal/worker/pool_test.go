package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockResult struct {
	err error
}

func (r *mockResult) GetError() error {
	return r.err
}

type mockTask struct {
	duration  time.Duration
	shouldErr bool
	executed  *int32
	started   chan struct{}
}

func (j *mockTask) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.started != nil {
		close(j.started)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &mockResult{err: errors.New("task error")}
	}
	return &mockResult{}
}

func TestNewPool_Defaults(t *testing.T) {
	p := NewPool(context.Background(), 0, 0)
	assert.Equal(t, 1, p.workers)
	assert.Equal(t, 2, cap(p.tasks))

	p = NewPool(context.Background(), 5, 50)
	assert.Equal(t, 5, p.workers)
	assert.Equal(t, 50, cap(p.tasks))
}

func TestPool_Execution(t *testing.T) {
	ctx := context.Background()
	pool := NewPool(ctx, 2, 10)
	pool.Start()

	var executed int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(ctx, &mockTask{executed: &executed}))
	}

	results := pool.Wait()
	assert.Len(t, results, 10)
	assert.Equal(t, int32(10), atomic.LoadInt32(&executed))
}

func TestPool_Concurrency(t *testing.T) {
	ctx := context.Background()
	workers := 4
	pool := NewPool(ctx, workers, 40)
	pool.Start()

	var current, maxSeen int32
	for i := 0; i < 40; i++ {
		require.NoError(t, pool.Submit(ctx, taskFunc(func(context.Context) Result {
			n := atomic.AddInt32(&current, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return &mockResult{}
		})))
	}

	assert.Len(t, pool.Wait(), 40)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(workers))
}

// taskFunc adapts a function to Task
type taskFunc func(context.Context) Result

func (f taskFunc) Execute(ctx context.Context) Result { return f(ctx) }

func TestPool_Errors(t *testing.T) {
	ctx := context.Background()
	pool := NewPool(ctx, 2, 0)
	pool.Start()

	require.NoError(t, pool.Submit(ctx, &mockTask{shouldErr: true}))
	require.NoError(t, pool.Submit(ctx, &mockTask{}))

	failed := 0
	for _, r := range pool.Wait() {
		if r.GetError() != nil {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestPool_SubmitAfterClose(t *testing.T) {
	ctx := context.Background()
	pool := NewPool(ctx, 2, 0)
	pool.Start()
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(ctx, &mockTask{}), ErrPoolClosed)
	assert.False(t, pool.TrySubmit(&mockTask{}))
}

func TestPool_TrySubmitFullQueue(t *testing.T) {
	ctx := context.Background()
	pool := NewPool(ctx, 1, 1)
	// Not started: the single queue slot fills up
	assert.True(t, pool.TrySubmit(&mockTask{}))
	assert.False(t, pool.TrySubmit(&mockTask{}))
	pool.Shutdown()
}

func TestPool_ShutdownCancelsRunning(t *testing.T) {
	ctx := context.Background()
	pool := NewPool(ctx, 1, 0)
	pool.Start()

	started := make(chan struct{})
	require.NoError(t, pool.Submit(ctx, &mockTask{duration: 5 * time.Second, started: started}))
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not cancel the running task")
	}

	// Results is closed
	for range pool.Results() {
	}
}

func TestPool_ParentContextCancels(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	pool := NewPool(parent, 1, 0)
	pool.Start()

	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), &mockTask{duration: 5 * time.Second, started: started}))
	<-started
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("parent cancellation did not stop the pool")
	}
}
