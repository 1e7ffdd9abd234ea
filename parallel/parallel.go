// Package parallel runs independent queries with bounded concurrency.
//
// A failing query never affects its siblings: errors, timeouts and panics all
// become outcome values. The caller receives outcomes in completion order and
// has to correlate them by item.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrTimeout marks an outcome whose query exceeded the per-item timeout.
	ErrTimeout = errors.New("query timed out")

	// ErrPanic marks an outcome whose query panicked.
	ErrPanic = errors.New("query panicked")
)

// Options of a RunAll call.
type Options struct {
	// Limit is the maximum number of queries in flight.
	// Zero or a negative value runs every item at once.
	Limit int

	// Timeout bounds every single query. Zero means no per-item bound.
	Timeout time.Duration
}

// Outcome of a single item's query.
type Outcome[T, R any] struct {
	Item  T
	Value R
	Err   error
}

// Failed tells whether the query returned an error.
func (o Outcome[T, R]) Failed() bool {
	return o.Err != nil
}

// RunAll runs op for every item and returns outcomes as they complete.
//
// Cancelling c abandons items that have not started yet, as well as in-flight
// items cut off by the cancellation. Outcomes completed before that are returned.
func RunAll[T, R any](c context.Context, items []T, op func(context.Context, T) (R, error), opts Options) []Outcome[T, R] {
	if len(items) == 0 {
		return nil
	}

	limit := opts.Limit
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	var (
		sem      = semaphore.NewWeighted(int64(limit))
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes = make([]Outcome[T, R], 0, len(items))
	)

	for _, item := range items {
		if c.Err() != nil {
			break
		}

		if err := sem.Acquire(c, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer sem.Release(1)

			o, ok := runOne(c, item, op, opts.Timeout)
			if !ok {
				return
			}

			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
		}(item)
	}

	wg.Wait()

	return outcomes
}

// runOne returns false when the outcome was cut off by cancellation of c.
func runOne[T, R any](c context.Context, item T, op func(context.Context, T) (R, error), timeout time.Duration) (Outcome[T, R], bool) {
	var (
		ic     context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ic, cancel = context.WithTimeout(c, timeout)
	} else {
		ic, cancel = context.WithCancel(c)
	}
	defer cancel()

	// Buffered so that an op ignoring its context can finish after we gave up on it.
	done := make(chan Outcome[T, R], 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Outcome[T, R]{Item: item, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()

		v, err := op(ic, item)
		done <- Outcome[T, R]{Item: item, Value: v, Err: err}
	}()

	select {
	case o := <-done:
		if o.Err == nil {
			return o, true
		}

		if c.Err() != nil {
			return o, false
		}

		if errors.Is(ic.Err(), context.DeadlineExceeded) {
			o.Err = timeoutError(timeout, o.Err)
		}

		return o, true

	case <-ic.Done():
		if c.Err() != nil {
			return Outcome[T, R]{}, false
		}

		return Outcome[T, R]{Item: item, Err: timeoutError(timeout, context.DeadlineExceeded)}, true
	}
}

func timeoutError(d time.Duration, cause error) error {
	return fmt.Errorf("%w after %s: %w", ErrTimeout, d, cause)
}
