// Package executor fans per-draw work out to a bounded pool of goroutines and
// collects the results in input order.
package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task computes the result for one id.
type Task[T any] func(ctx context.Context, id int) (T, error)

// Map runs fn for every id with at most workers calls in flight. Results are
// returned in the order of ids regardless of completion order. The first
// failure cancels the shared context, and Map returns that error with no
// partial results.
func Map[T any](ctx context.Context, workers int, ids []int, fn Task[T]) ([]T, error) {
	if workers < 1 {
		return nil, fmt.Errorf("executor: worker count must be at least 1, got %d", workers)
	}
	results := make([]T, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, id := range ids {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := fn(groupCtx, id)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Range returns the ids 0..n-1.
func Range(n int) []int {
	if n <= 0 {
		return nil
	}
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}
