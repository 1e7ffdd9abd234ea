package parallel_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TeamTenuki/livewatch/parallel"
)

func TestRunAllIsolatesFailures(t *testing.T) {
	for _, n := range []int{1, 2, 7, 50} {
		for k := 0; k < n; k += 3 {
			t.Run(fmt.Sprintf("n=%d/k=%d", n, k), func(t *testing.T) {
				items := make([]int, n)
				for i := range items {
					items[i] = i
				}

				boom := errors.New("boom")
				outcomes := parallel.RunAll(context.Background(), items, func(c context.Context, i int) (int, error) {
					if i == k {
						return 0, boom
					}
					return i * 2, nil
				}, parallel.Options{Limit: 4})

				require.Len(t, outcomes, n)

				seen := make(map[int]bool)
				for _, o := range outcomes {
					seen[o.Item] = true
					if o.Item == k {
						assert.ErrorIs(t, o.Err, boom)
						continue
					}
					assert.NoError(t, o.Err)
					assert.Equal(t, o.Item*2, o.Value)
				}
				assert.Len(t, seen, n)
			})
		}
	}
}

func TestRunAllTimeout(t *testing.T) {
	items := []string{"fast", "stuck", "ignores-context"}

	outcomes := parallel.RunAll(context.Background(), items, func(c context.Context, s string) (string, error) {
		switch s {
		case "stuck":
			<-c.Done()
			return "", c.Err()
		case "ignores-context":
			time.Sleep(300 * time.Millisecond)
			return s, nil
		}
		return s, nil
	}, parallel.Options{Timeout: 50 * time.Millisecond})

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		switch o.Item {
		case "fast":
			assert.NoError(t, o.Err)
		default:
			assert.ErrorIs(t, o.Err, parallel.ErrTimeout, o.Item)
			assert.ErrorIs(t, o.Err, context.DeadlineExceeded, o.Item)
		}
	}
}

func TestRunAllRecoversPanics(t *testing.T) {
	outcomes := parallel.RunAll(context.Background(), []int{1, 2}, func(c context.Context, i int) (int, error) {
		if i == 2 {
			panic("bad channel")
		}
		return i, nil
	}, parallel.Options{})

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		if o.Item == 2 {
			assert.ErrorIs(t, o.Err, parallel.ErrPanic)
		} else {
			assert.False(t, o.Failed())
		}
	}
}

func TestRunAllRespectsLimit(t *testing.T) {
	var inFlight, peak int32

	items := make([]int, 20)
	parallel.RunAll(context.Background(), items, func(c context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	}, parallel.Options{Limit: 3})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestRunAllCancellationKeepsCompleted(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	items := []int{0, 1, 2, 3, 4, 5}
	outcomes := parallel.RunAll(c, items, func(ic context.Context, i int) (int, error) {
		if i < 2 {
			return i, nil
		}
		if i == 2 {
			cancel()
		}
		<-ic.Done()
		return 0, ic.Err()
	}, parallel.Options{Limit: 1})

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.Less(t, o.Item, 2)
	}
}

func TestRunAllEmpty(t *testing.T) {
	outcomes := parallel.RunAll(context.Background(), nil, func(c context.Context, i int) (int, error) {
		return i, nil
	}, parallel.Options{})

	assert.Empty(t, outcomes)
}
