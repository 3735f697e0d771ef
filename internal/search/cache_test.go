package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingClient struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (c *countingClient) Search(_ context.Context, q Query) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return Response{}, c.err
	}
	return Response{Query: q.Text, Results: []Result{{URL: "https://example.com/" + q.Text}}}, nil
}

func (c *countingClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestCachingClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("repeated query is served from cache", func(t *testing.T) {
		inner := &countingClient{}
		cache := NewCachingClient(inner, 5*time.Minute, nil)
		defer cache.Close()

		first, err := cache.Search(context.Background(), Query{Text: "sugar"})
		require.NoError(t, err)
		second, err := cache.Search(context.Background(), Query{Text: "  Sugar "})
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.count())
		assert.Equal(t, 1, cache.Size())
	})

	t.Run("different depth is a different entry", func(t *testing.T) {
		inner := &countingClient{}
		cache := NewCachingClient(inner, 5*time.Minute, nil)
		defer cache.Close()

		_, err := cache.Search(context.Background(), Query{Text: "sugar", Depth: DepthBasic})
		require.NoError(t, err)
		_, err = cache.Search(context.Background(), Query{Text: "sugar", Depth: DepthAdvanced})
		require.NoError(t, err)

		assert.Equal(t, 2, inner.count())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		inner := &countingClient{err: errors.New("boom")}
		cache := NewCachingClient(inner, 5*time.Minute, nil)
		defer cache.Close()

		_, err := cache.Search(context.Background(), Query{Text: "oil"})
		require.Error(t, err)
		_, err = cache.Search(context.Background(), Query{Text: "oil"})
		require.Error(t, err)

		assert.Equal(t, 2, inner.count())
		assert.Equal(t, 0, cache.Size())
	})

	t.Run("entries expire", func(t *testing.T) {
		inner := &countingClient{}
		cache := NewCachingClient(inner, 50*time.Millisecond, nil)
		defer cache.Close()

		_, err := cache.Search(context.Background(), Query{Text: "tea"})
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)
		_, err = cache.Search(context.Background(), Query{Text: "tea"})
		require.NoError(t, err)

		assert.Equal(t, 2, inner.count())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		cache := NewCachingClient(&countingClient{}, time.Minute, nil)
		cache.Close()
		cache.Close()
	})
}
