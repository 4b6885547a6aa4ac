package cache

import (
	"context"
	"sync/atomic"

	"github.com/goliatone/go-export-cache/record"
)

// Keyer derives a cache key from a record set and a format tag.
// Implementations must return equal keys for equal inputs.
type Keyer interface {
	Key(rows []record.Record, format string) string
}

// Store is the contract the exporter needs from a cache backend.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) (string, bool)
	Put(key, value string)
	Len() int
	Clear()
}

// FetchFn computes the value for a key on a miss.
type FetchFn func(ctx context.Context) (string, error)

// fetcher is implemented by stores that deduplicate concurrent fetches
// themselves.
type fetcher interface {
	GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (string, error)) (string, error)
}

// GetOrFetch returns the cached value for key, or runs fetch and stores its
// result. hit reports whether fetch was skipped. Errors from fetch are
// returned as is and nothing is stored.
func GetOrFetch(ctx context.Context, store Store, key string, fetch FetchFn) (value string, hit bool, err error) {
	if f, ok := store.(fetcher); ok {
		var called atomic.Bool
		value, err = f.GetOrFetch(ctx, key, func(ctx context.Context) (string, error) {
			called.Store(true)
			return fetch(ctx)
		})
		return value, !called.Load() && err == nil, err
	}

	if v, ok := store.Get(key); ok {
		return v, true, nil
	}

	value, err = fetch(ctx)
	if err != nil {
		return "", false, err
	}
	store.Put(key, value)
	return value, false, nil
}
