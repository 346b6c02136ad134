// Package cache is the read-through cache that sits in front of the relational
// store. Every operation reports failure through its result value and never
// panics or blocks the caller beyond the client timeout, so callers can treat
// the cache as optional.
package cache

import (
	"context"
	"time"
)

// Lookup is the result of a cache read. Err is set when the cache could not be
// reached; Hit is false in that case.
type Lookup struct {
	Value   []byte
	Hit     bool
	Err     error
	Version Version
}

// Version is the snapshot of invalidation generations a Lookup observed for
// its key and tags. Every invalidation of a key or tag moves its generation.
type Version struct {
	keys []string
	gens []int64
}

// Outcome is the result of a cache write or invalidation. Stale is set when a
// Fill was dropped because the entry was invalidated after it was read.
type Outcome struct {
	Err   error
	Stale bool
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Store is a key/value cache with TTLs and tag-based invalidation.
type Store interface {
	// Get reads a key and records the generations of the key and of tags.
	Get(ctx context.Context, key string, tags ...string) Lookup

	// Set writes a key with a TTL and registers it under every tag.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) Outcome

	// Fill is Set for a value loaded after a miss. The write is dropped when
	// any generation recorded in seen has moved since.
	Fill(ctx context.Context, key string, seen Version, value []byte, ttl time.Duration, tags ...string) Outcome

	// Delete removes keys.
	Delete(ctx context.Context, keys ...string) Outcome

	// InvalidateTags removes every key registered under the tags, and the tags themselves.
	InvalidateTags(ctx context.Context, tags ...string) Outcome

	// Sweep incrementally scans the keyspace and removes keys matching pattern.
	Sweep(ctx context.Context, pattern string) Outcome

	// Close releases the underlying connection.
	Close() error
}
