package cache

import (
	"context"
	"time"
)

// nopStore is used when caching is disabled; every read misses.
type nopStore struct{}

// NewNopStore returns a store that caches nothing.
func NewNopStore() Store {
	return nopStore{}
}

func (nopStore) Get(context.Context, string, ...string) Lookup { return Lookup{} }

func (nopStore) Set(context.Context, string, []byte, time.Duration, ...string) Outcome {
	return Outcome{}
}

func (nopStore) Fill(context.Context, string, Version, []byte, time.Duration, ...string) Outcome {
	return Outcome{}
}

func (nopStore) Delete(context.Context, ...string) Outcome         { return Outcome{} }
func (nopStore) InvalidateTags(context.Context, ...string) Outcome { return Outcome{} }
func (nopStore) Sweep(context.Context, string) Outcome             { return Outcome{} }
func (nopStore) Close() error                                      { return nil }
