// Package cache provides the bounded-staleness read cache over remote reads.
// Keys are scoped per user ("user:<id>"); an entry older than the TTL is
// logically absent and triggers a re-fetch. Expiry is checked lazily on read,
// never swept.
package cache

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "larder_cache_hits_total",
		Help: "Cache reads served without a remote call.",
	})
	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "larder_cache_misses_total",
		Help: "Cache reads that required a remote fetch.",
	})
)

// Cache is the byte-level cache boundary. Get returns false for absent or
// expired entries. Every remote write affecting a key must Invalidate it
// before returning; the cache must never serve data across distinct users
// under the same key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context, key string) error
	InvalidateAll(ctx context.Context) error
}

// UserKey builds the per-user collection key.
func UserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}
