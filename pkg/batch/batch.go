// Package batch runs a fixed-size worker pool over a slice of items,
// mirroring the semaphore-bounded goroutine fan-out the teacher uses in
// pkg/mirror/batch and the original engine's scoped_threadpool::Pool: a
// bounded number of workers in flight, a shared failure counter, and a
// single channel carrying progress messages to one renderer goroutine.
package batch

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"tcmirror/pkg/progress"
)

// Work is the per-item unit of work a batch runs. A non-nil error counts
// as a failure and is reported via progress.Println before the item's
// Increment; Work must not send on progressCh itself.
type Work[T any] func(ctx context.Context, item T) error

// Run executes work over items using up to maxGoroutines concurrent
// workers, reporting one Increment per completed item (success or
// failure) on progressCh. It returns the number of items whose Work call
// returned a non-nil error.
//
// Concurrency is bounded by a weighted semaphore rather than a buffered
// channel: Acquire respects ctx cancellation directly, so a caller that
// cancels mid-batch stops admitting new workers without a separate
// select/done branch per item.
func Run[T any](ctx context.Context, items []T, maxGoroutines int, work Work[T], progressCh chan<- progress.Msg, describe func(T) string) int {
	if maxGoroutines < 1 {
		maxGoroutines = 1
	}

	var wg sync.WaitGroup
	var failures int64
	sem := semaphore.NewWeighted(int64(maxGoroutines))

	for _, item := range items {
		item := item
		if err := sem.Acquire(ctx, 1); err != nil {
			// ctx was cancelled; let in-flight workers finish and stop
			// admitting new ones.
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := work(ctx, item); err != nil {
				atomic.AddInt64(&failures, 1)
				if progressCh != nil {
					progressCh <- progress.Msg{Kind: progress.Println, Text: describe(item) + " failed: " + err.Error()}
				}
			}
			if progressCh != nil {
				progressCh <- progress.Msg{Kind: progress.Increment}
			}
		}()
	}

	wg.Wait()
	return int(atomic.LoadInt64(&failures))
}
