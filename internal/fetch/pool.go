package fetch

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize is the number of concurrent fetches allowed per process.
const DefaultPoolSize = 10

// Pool bounds the number of fetches in flight across every request served by
// the process. Create one at startup and share it.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a pool with size slots. Sizes below 1 use
// DefaultPoolSize.
func NewPool(size int) *Pool {
	if size < 1 {
		size = DefaultPoolSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release frees a slot obtained by Acquire.
func (p *Pool) Release() {
	p.sem.Release(1)
}
