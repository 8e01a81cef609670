package sketchpad

import (
	"context"
	"sync"
)

// Executor runs blocking work (network, decoding) off the update loop. A task
// receives a context and returns a completion that must run back on the
// loop; the completion may be nil.
type Executor interface {
	Go(task func(ctx context.Context) func())
}

// InlineExecutor runs tasks and their completions immediately on the calling
// goroutine. Useful for tests and command-line tools.
type InlineExecutor struct{}

// Go runs task and its completion synchronously.
func (InlineExecutor) Go(task func(ctx context.Context) func()) {
	if done := task(context.Background()); done != nil {
		done()
	}
}

// AsyncExecutor runs each task on its own goroutine and queues completions
// until the loop calls Drain.
type AsyncExecutor struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan func()
	wg     sync.WaitGroup
}

// NewAsyncExecutor creates an executor whose tasks are cancelled by Close.
func NewAsyncExecutor() *AsyncExecutor {
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncExecutor{ctx: ctx, cancel: cancel, done: make(chan func(), 64)}
}

// Go starts task on a new goroutine.
func (a *AsyncExecutor) Go(task func(ctx context.Context) func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn := task(a.ctx)
		if fn == nil {
			return
		}
		select {
		case a.done <- fn:
		case <-a.ctx.Done():
		}
	}()
}

// Drain runs every queued completion on the calling goroutine and returns how
// many ran. Call once per frame from the update loop.
func (a *AsyncExecutor) Drain() int {
	n := 0
	for {
		select {
		case fn := <-a.done:
			fn()
			n++
		default:
			return n
		}
	}
}

// Wait blocks until all started tasks finished, running completions as they
// arrive. Used on shutdown to flush pending saves.
func (a *AsyncExecutor) Wait() {
	finished := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(finished)
	}()
	for {
		select {
		case fn := <-a.done:
			fn()
		case <-finished:
			a.Drain()
			return
		}
	}
}

// Close cancels in-flight tasks. Completions not yet drained are dropped.
func (a *AsyncExecutor) Close() {
	a.cancel()
}
