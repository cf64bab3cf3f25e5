package core

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool runs jobs on goroutines with a fixed number of concurrent slots
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a pool with the given number of slots.
// Zero or negative means one slot per CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Go runs job once a slot is free. If ctx ends first, job is not run and
// onSkip receives the context error.
func (p *Pool) Go(ctx context.Context, job func(), onSkip func(error)) {
	go func() {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			onSkip(err)
			return
		}
		defer p.sem.Release(1)
		job()
	}()
}
