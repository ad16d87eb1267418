// Package workers runs independent tasks on a bounded number of goroutines.
//
// A Pool is sized once when it is created; Run starts at most Size
// goroutines at a time, one per item. Every item is processed even when some
// fail, and failures are reported in item order.
package workers

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/bulldog/observability"
)

// Task processes one item. Tasks run concurrently and must not share mutable
// memory with each other or with the caller.
type Task[T any] func(ctx context.Context, item T) error

// Pool holds the concurrency limit and the observer used by Run.
type Pool struct {
	size     int
	observer observability.Observer
}

// NewPool creates a pool running up to size tasks at once. A size of zero
// or less selects runtime.NumCPU(). A nil observer discards events.
func NewPool(size int, observer observability.Observer) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &Pool{size: size, observer: observer}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return p.size
}

type indexedError struct {
	index int
	err   error
}

// Run applies task to every item and blocks until all of them finished.
// It returns a *ParallelError listing each failed item, or nil.
//
// A failing task does not cancel the others. There is no cancellation beyond
// what task itself does with ctx: a task that never returns blocks Run
// forever.
func Run[T any](ctx context.Context, p *Pool, items []T, task Task[T]) error {
	p.observer.OnEvent(ctx, observability.NewEvent(EventPoolStart, observability.LevelVerbose, "workers.Run", map[string]any{
		"item_count":  len(items),
		"concurrency": min(p.size, len(items)),
	}))

	var (
		mu     sync.Mutex
		failed []indexedError
	)

	var g errgroup.Group
	g.SetLimit(p.size)
	for i, item := range items {
		g.Go(func() error {
			if err := processItem(ctx, p, i, item, task); err != nil {
				mu.Lock()
				failed = append(failed, indexedError{index: i, err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // task errors are collected in failed

	p.observer.OnEvent(ctx, observability.NewEvent(EventPoolComplete, observability.LevelVerbose, "workers.Run", map[string]any{
		"items_processed": len(items),
		"items_failed":    len(failed),
	}))

	if len(failed) == 0 {
		return nil
	}
	return newParallelError(items, failed)
}

func processItem[T any](ctx context.Context, p *Pool, index int, item T, task Task[T]) error {
	p.observer.OnEvent(ctx, observability.NewEvent(EventWorkerStart, observability.LevelVerbose, "workers.Run", map[string]any{
		"item_index": index,
	}))

	err := task(ctx, item)

	p.observer.OnEvent(ctx, observability.NewEvent(EventWorkerComplete, observability.LevelVerbose, "workers.Run", map[string]any{
		"item_index": index,
		"error":      err != nil,
	}))

	return err
}
