// Package worker runs fill requests concurrently: a bounded pool for
// asynchronous API jobs and batch files, and a per-client rate limiter.
package worker

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// ErrPoolClosed is returned when submitting to a stopped pool
var ErrPoolClosed = eris.New("worker pool closed")

// Task is a unit of work executed by the pool
type Task interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a task
type Result interface {
	GetError() error
}

// Pool runs tasks on a fixed number of goroutines. Results are delivered on
// Results() and must be drained by the caller.
type Pool struct {
	workers    int
	tasks      chan Task
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	mu       sync.RWMutex // guards closed against concurrent Submit and close
	closed   bool
	stopOnce sync.Once
}

// NewPool creates a pool whose tasks run under a context derived from parent.
// queueSize bounds the number of submitted tasks waiting for a worker; a
// non-positive value means twice the worker count.
func NewPool(parent context.Context, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}
	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		tasks:      make(chan Task, queueSize),
		results:    make(chan Result, queueSize),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			result := task.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a task, blocking while the queue is full
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-p.ctx.Done():
		return ErrPoolClosed
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "submit task")
	}
}

// TrySubmit queues a task without blocking; false means the queue is full
// or the pool is closed
func (p *Pool) TrySubmit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Results returns the result channel. It is closed once every worker exited.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting tasks; queued tasks still run. Results is closed
// when the last one finished.
func (p *Pool) Close() {
	p.closeTasks()
	go func() {
		p.wg.Wait()
		p.stopOnce.Do(func() { close(p.results) })
	}()
}

// Wait closes the pool and collects every remaining result
func (p *Pool) Wait() []Result {
	p.Close()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

// Shutdown cancels running tasks and returns when every worker exited
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.closeTasks()
	p.wg.Wait()
	p.stopOnce.Do(func() { close(p.results) })
}

func (p *Pool) closeTasks() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
}
