// Package cache provides the injected TTL cache capability used for query
// embeddings and artifact-summary embeddings. The cache is an explicit
// dependency rather than module-level state so it can be swapped or
// disabled in tests.
package cache

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is the minimal interface the retrieval engine depends on.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Close()
}

// Key builds a stable cache key from a type prefix and content, hashing the
// content so keys stay short regardless of query length.
func Key(kind string, content string) string {
	h := fnv.New64a()
	h.Write([]byte(content))
	return fmt.Sprintf("%s:%x", kind, h.Sum64())
}

// Ristretto is a TTL cache backed by dgraph-io/ristretto.
type Ristretto struct {
	inner *ristretto.Cache[string, any]
}

// NewRistretto creates a cache sized for maxCost bytes of cached values.
func NewRistretto(maxCost int64) (*Ristretto, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: maxCost / 100,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto{inner: inner}, nil
}

func (c *Ristretto) Get(key string) (any, bool) {
	return c.inner.Get(key)
}

func (c *Ristretto) Set(key string, value any, ttl time.Duration) {
	c.inner.SetWithTTL(key, value, 1, ttl)
}

func (c *Ristretto) Close() {
	c.inner.Close()
}

// Disabled is a no-op cache for tests and cache-free deployments.
type Disabled struct{}

func (Disabled) Get(key string) (any, bool)                    { return nil, false }
func (Disabled) Set(key string, value any, ttl time.Duration) {}
func (Disabled) Close()                                       {}
