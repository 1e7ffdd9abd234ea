package resolve_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TeamTenuki/livewatch/resolve"
)

func TestResolveHitsLookupOncePerName(t *testing.T) {
	var calls int32
	store := resolve.NewMemoryStore()
	rc := resolve.New(func(c context.Context, name string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "UC" + strings.ToUpper(name), nil
	}, store)

	for i := 0; i < 3; i++ {
		id, err := rc.Resolve(context.Background(), "foo")
		require.NoError(t, err)
		assert.Equal(t, "UCFOO", id)
	}

	_, err := rc.Resolve(context.Background(), "bar")
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.EqualValues(t, 2, rc.Lookups())
	assert.Equal(t, 2, store.Len())
}

func TestResolveFailureIsNotCached(t *testing.T) {
	var calls int32
	boom := errors.New("network down")
	rc := resolve.New(func(c context.Context, name string) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", boom
		}
		return "id-" + name, nil
	}, nil)

	_, err := rc.Resolve(context.Background(), "foo")
	assert.ErrorIs(t, err, resolve.ErrResolution)
	assert.ErrorIs(t, err, boom)

	id, err := rc.Resolve(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, "id-foo", id)
}

func TestResolveEmptyIDIsFailure(t *testing.T) {
	rc := resolve.New(func(c context.Context, name string) (string, error) {
		return "", nil
	}, nil)

	_, err := rc.Resolve(context.Background(), "ghost")
	assert.ErrorIs(t, err, resolve.ErrResolution)
}

func TestConcurrentResolveConverges(t *testing.T) {
	store := resolve.NewMemoryStore()
	rc := resolve.New(func(c context.Context, name string) (string, error) {
		time.Sleep(time.Millisecond)
		return "id-" + name, nil
	}, store)

	var wg sync.WaitGroup
	ids := make([]string, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := rc.Resolve(context.Background(), "same")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "id-same", id)
	}
	assert.Equal(t, 1, store.Len())

	cached, ok, err := store.Get(context.Background(), "same")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "id-same", cached)
}

func TestKeyForProvider(t *testing.T) {
	assert.Equal(t, "livewatch_resolved:{youtube}", resolve.KeyForProvider("youtube"))
}
