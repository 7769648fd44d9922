package parallel_test

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/tablebench/internal/parallel"
)

func TestNewWorkerPool(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), parallel.NewWorkerPool(0).Workers())
	assert.Equal(t, runtime.NumCPU(), parallel.NewWorkerPool(-1).Workers())
	assert.Equal(t, 4, parallel.NewWorkerPool(4).Workers())
}

func TestProcessIndexed(t *testing.T) {
	pool := parallel.NewWorkerPool(3)
	input := []string{"a", "b", "c", "d", "e"}

	results, err := parallel.ProcessIndexed(context.Background(), pool, input,
		func(_ context.Context, index int, value string) (string, error) {
			// Later items finish first.
			time.Sleep(time.Duration(len(input)-index) * time.Millisecond)
			return value + string(rune('0'+index)), nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "b1", "c2", "d3", "e4"}, results)
}

func TestProcessIndexedEmpty(t *testing.T) {
	results, err := parallel.ProcessIndexed(context.Background(), parallel.NewWorkerPool(2), []int{},
		func(context.Context, int, int) (int, error) { return 0, nil })
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestProcessIndexedBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 20)

	_, err := parallel.ProcessIndexed(context.Background(), parallel.NewWorkerPool(2), items,
		func(context.Context, int, int) (int, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return 0, nil
		})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestProcessIndexedError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	items := make([]int, 100)

	results, err := parallel.ProcessIndexed(context.Background(), parallel.NewWorkerPool(1), items,
		func(_ context.Context, index int, _ int) (int, error) {
			calls.Add(1)
			if index == 2 {
				return 0, boom
			}
			return index + 1, nil
		})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, results[:2])
	assert.Less(t, calls.Load(), int32(len(items)), "items after the failure are skipped")
}

func TestProcessIndexedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parallel.ProcessIndexed(ctx, parallel.NewWorkerPool(2), []int{1, 2, 3},
		func(context.Context, int, int) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, context.Canceled)
}
