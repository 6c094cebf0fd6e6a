// Package concurrency provides a bounded worker pool for independent jobs.
package concurrency

import (
	"context"
	"sync"
)

// DefaultWorkers is used when Options.MaxWorkers is not positive.
const DefaultWorkers = 4

// Options configures parallel processing.
type Options struct {
	// MaxWorkers is the maximum number of items processed at the same time.
	MaxWorkers int
}

// ProcessParallel calls fn for every item on at most opts.MaxWorkers goroutines
// and returns the results in input order. Once ctx is done no further item is
// started; the results of items never started are the zero value of R and
// started reports false for them.
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts Options,
	fn func(ctx context.Context, index int, item T) R,
) (results []R, started []bool) {
	results = make([]R, len(items))
	started = make([]bool, len(items))
	if len(items) == 0 {
		return results, started
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Each index is written by exactly one worker.
				results[i] = fn(ctx, i, items[i])
				started[i] = true
			}
		}()
	}

feed:
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return results, started
}
