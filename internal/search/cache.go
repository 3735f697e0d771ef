package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/shopkeep/internal/common"
)

// cacheEntry represents a cached search response.
type cacheEntry struct {
	expiry   time.Time
	response Response
}

// CachingClient serves repeated queries from memory for the lifetime of a run.
type CachingClient struct {
	next    Client
	logger  *slog.Logger
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// NewCachingClient wraps next with a response cache using the given TTL.
func NewCachingClient(next Client, ttl time.Duration, logger *slog.Logger) *CachingClient {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &CachingClient{
		next:    next,
		logger:  common.OrDefault(logger),
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// Search returns a cached response when one is fresh, otherwise delegates.
// Failed searches are not cached.
func (c *CachingClient) Search(ctx context.Context, q Query) (Response, error) {
	key := q.key()
	if resp, ok := c.get(key); ok {
		c.logger.Debug("search cache hit", "query", q.Text)
		return resp, nil
	}

	resp, err := c.next.Search(ctx, q)
	if err != nil {
		return Response{}, err
	}

	c.set(key, resp)
	return resp, nil
}

func (c *CachingClient) get(key string) (Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return Response{}, false
	}
	return entry.response, true
}

func (c *CachingClient) set(key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		response: resp,
		expiry:   time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *CachingClient) cleanup() {
	interval := c.ttl
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Size returns the number of cached responses.
func (c *CachingClient) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *CachingClient) Close() {
	c.once.Do(func() { close(c.stopCh) })
}
