package cache

import (
	"context"
	"encoding/json"
	"time"

	"kitchen-orders/internal/metrics"
)

// GetOrCompute returns the cached value of key, or runs load on a miss and
// caches its result under key with ttl and tags. Entries that fail to decode
// are deleted and recomputed. Load errors are returned and never cached. A
// result is not cached when key or one of tags was invalidated while load ran.
func GetOrCompute[T any](ctx context.Context, store Store, key string, ttl time.Duration, load func(ctx context.Context) (T, error), tags ...string) (T, error) {
	return readThrough(ctx, store, key, ttl, load, tags, func(T) []string { return tags })
}

// GetOrComputeTagged is GetOrCompute for entries whose tags depend on the
// loaded value. Only invalidations of key itself are detected during the load.
func GetOrComputeTagged[T any](ctx context.Context, store Store, key string, ttl time.Duration, load func(ctx context.Context) (T, error), tagsOf func(T) []string) (T, error) {
	return readThrough(ctx, store, key, ttl, load, nil, tagsOf)
}

func readThrough[T any](ctx context.Context, store Store, key string, ttl time.Duration, load func(ctx context.Context) (T, error), guard []string, tagsOf func(T) []string) (T, error) {
	res := store.Get(ctx, key, guard...)
	if res.Hit {
		var value T
		if err := json.Unmarshal(res.Value, &value); err == nil {
			metrics.CacheHits.Inc()
			return value, nil
		}
		store.Delete(ctx, key)
		res = store.Get(ctx, key, guard...)
	}

	metrics.CacheMisses.Inc()

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	// Without a version read the fill cannot be guarded.
	if res.Err != nil {
		return value, nil
	}

	if encoded, err := json.Marshal(value); err == nil {
		store.Fill(ctx, key, res.Version, encoded, ttl, tagsOf(value)...)
	}

	return value, nil
}
