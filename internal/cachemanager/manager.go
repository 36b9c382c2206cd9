// Package cachemanager provides a generic TTL cache used for the host's
// process-wide template and tag caches. The lifecycle manager flushes it
// whenever an extension is initialized or shut down.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed TTL cache.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	ItemCount(ctx context.Context) int
}
