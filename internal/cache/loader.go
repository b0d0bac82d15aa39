package cache

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/singleflight"
)

// Loader is a typed read-through helper over a byte Cache. Concurrent misses
// for the same key are collapsed into one fetch via singleflight so a burst
// of parallel reads does not stampede the remote store.
type Loader[T any] struct {
	cache Cache
	group singleflight.Group
}

func NewLoader[T any](cache Cache) *Loader[T] {
	return &Loader[T]{cache: cache}
}

// Load returns the cached value for key when fresh, otherwise runs fetch,
// populates the cache, and returns the fetched value. A cache decode failure
// is treated as a miss.
func (l *Loader[T]) Load(ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	if data, ok := l.cache.Get(ctx, key); ok {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			hitsTotal.Inc()
			return value, nil
		}
		_ = l.cache.Invalidate(ctx, key)
	}
	missesTotal.Inc()

	result, err, _ := l.group.Do(key, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return value, err
		}
		if data, err := json.Marshal(value); err == nil {
			_ = l.cache.Put(ctx, key, data)
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Invalidate drops the cached value for key.
func (l *Loader[T]) Invalidate(ctx context.Context, key string) error {
	return l.cache.Invalidate(ctx, key)
}
