package fanout

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds CPU-bound helper work to a fixed number of workers.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a pool with size workers, or GOMAXPROCS when size <= 0.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Map applies fn to every item on the pool and returns results in input
// order. It stops early only when ctx is cancelled.
func Map[I, T any](ctx context.Context, p *Pool, items []I, fn func(I) T) ([]T, error) {
	out := make([]T, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		if err := p.sem.Acquire(gctx, 1); err != nil {
			_ = g.Wait()
			return nil, err
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			out[i] = fn(item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, ctx.Err()
}
