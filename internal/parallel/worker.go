// Package parallel runs independent work items on a bounded pool of goroutines.
//
// Results come back in input order. The first failing item cancels the context handed
// to the others, and items not yet started are skipped.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool bounds how many items run at once.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a pool. A non-positive count uses runtime.NumCPU().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// ProcessIndexed runs worker over items in parallel using a fan-out/fan-in pattern and
// returns the results in input order. When an item fails, the error of the lowest failing
// index is returned together with the results gathered so far. Cancelling ctx stops
// dispatching and returns ctx's error if any item was left unprocessed.
func ProcessIndexed[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(ctx context.Context, index int, item T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	itemCh := make(chan indexedItem[T])
	resultCh := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for range min(wp.numWorkers, len(items)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				result, err := worker(ctx, item.index, item.value)
				if err != nil {
					cancel()
				}
				resultCh <- indexedResult[R]{index: item.index, result: result, err: err}
			}
		}()
	}

	// Send items to workers
	go func() {
		defer close(itemCh)
		for i, item := range items {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	// Close result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	processed := 0
	failed := len(items)
	var firstErr error
	for r := range resultCh {
		processed++
		results[r.index] = r.result
		if r.err != nil && r.index < failed {
			failed, firstErr = r.index, r.err
		}
	}

	if firstErr != nil {
		return results, firstErr
	}
	if processed < len(items) {
		return results, parent.Err()
	}
	return results, nil
}

// indexedItem holds an item with its index
type indexedItem[T any] struct {
	index int
	value T
}

// indexedResult holds a result with its index
type indexedResult[R any] struct {
	index  int
	result R
	err    error
}
