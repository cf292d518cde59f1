package knowledge

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CachedRetriever memoizes results of another Retriever for a bounded time.
type CachedRetriever struct {
	next  Retriever
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedRetriever caches up to maxEntries distinct (query, k) results.
func NewCachedRetriever(next Retriever, maxEntries int, ttl time.Duration) (*CachedRetriever, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache size must be positive")
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(maxEntries) * 10,
		MaxCost:     int64(maxEntries),
		BufferItems: 64,
		// Each entry costs 1; the internal per-item overhead would
		// otherwise exceed MaxCost and reject every Set.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating retrieval cache: %w", err)
	}
	return &CachedRetriever{next: next, cache: cache, ttl: ttl}, nil
}

func (c *CachedRetriever) Name() string {
	return c.next.Name() + "+cache"
}

func (c *CachedRetriever) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	key := fmt.Sprintf("%d\x00%s", k, strings.ToLower(strings.TrimSpace(query)))
	if v, ok := c.cache.Get(key); ok {
		if hits, ok := v.([]Hit); ok {
			return append([]Hit(nil), hits...), nil
		}
	}

	hits, err := c.next.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	c.cache.SetWithTTL(key, append([]Hit(nil), hits...), 1, c.ttl)
	c.cache.Wait()
	return hits, nil
}

// Close stops the cache's background goroutines and closes the wrapped
// retriever when it holds resources.
func (c *CachedRetriever) Close() error {
	c.cache.Close()
	switch next := c.next.(type) {
	case io.Closer:
		return next.Close()
	case interface{ Close() }:
		next.Close()
	}
	return nil
}
