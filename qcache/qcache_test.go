package qcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachesValue(t *testing.T) {
	c := New()
	calls := 0
	fetch := func() (any, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		value, err := c.Get("items", fetch)
		require.NoError(t, err)
		assert.Equal(t, "value", value)
	}
	assert.Equal(t, 1, calls, "subsequent gets must hit the cache")
}

func TestInvalidateForcesRefetch(t *testing.T) {
	c := New()
	calls := 0
	fetch := func() (any, error) {
		calls++
		return calls, nil
	}

	value, err := c.Get("items", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, value)

	c.Invalidate("items")

	value, err = c.Get("items", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, value)
}

func TestInvalidateDuringFetchDiscardsTheStaleResult(t *testing.T) {
	c := New()
	fetchStarted := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Get("items", func() (any, error) {
			close(fetchStarted)
			<-release
			return "pre-mutation list", nil
		})
	}()

	// The mutation lands while the background refetch is still running.
	<-fetchStarted
	c.Invalidate("items")
	close(release)
	wg.Wait()

	value, err := c.Get("items", func() (any, error) { return "fresh list", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh list", value, "a completion stale w.r.t. the invalidation must not be served")
}

func TestResetDuringFetchDiscardsTheStaleResult(t *testing.T) {
	c := New()
	fetchStarted := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Get("currentUser", func() (any, error) {
			close(fetchStarted)
			<-release
			return "old user", nil
		})
	}()

	<-fetchStarted
	c.Reset()
	close(release)
	wg.Wait()

	value, err := c.Get("currentUser", func() (any, error) { return "new user", nil })
	require.NoError(t, err)
	assert.Equal(t, "new user", value)
}

func TestErrorsAreNotCached(t *testing.T) {
	c := New()
	calls := 0
	fetch := func() (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("boom")
		}
		return "ok", nil
	}

	_, err := c.Get("items", fetch)
	require.Error(t, err)

	value, err := c.Get("items", fetch)
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestSingleFetchInFlightPerKey(t *testing.T) {
	c := New()
	var fetches atomic.Int32
	release := make(chan struct{})

	fetch := func() (any, error) {
		fetches.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := c.Get("items", fetch)
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}

	// Give the goroutines a moment to pile up behind the single fetch,
	// then let it finish.
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, fetches.Load(), int32(2), "concurrent gets must coalesce")
	for _, value := range results {
		assert.Equal(t, "shared", value)
	}
}

func TestReset(t *testing.T) {
	c := New()
	calls := 0
	fetch := func() (any, error) {
		calls++
		return calls, nil
	}

	c.Get("items", fetch)
	c.Get("currentUser", fetch)
	c.Reset()
	c.Get("items", fetch)

	assert.Equal(t, 3, calls)
}
