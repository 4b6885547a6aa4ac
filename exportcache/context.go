package exportcache

import (
	"context"
)

type cacheMode int

const (
	modeDefault cacheMode = iota
	// modeBypass encodes without reading or writing the cache.
	modeBypass
	// modeRefresh encodes and overwrites the cached entry.
	modeRefresh
)

type cacheModeContextKey struct{}

// WithCacheBypass marks ctx so Export encodes directly and leaves the cache
// untouched.
func WithCacheBypass(ctx context.Context) context.Context {
	return withCacheMode(ctx, modeBypass)
}

// WithCacheRefresh marks ctx so Export skips the lookup, encodes, and stores
// the fresh result under the content key.
func WithCacheRefresh(ctx context.Context) context.Context {
	return withCacheMode(ctx, modeRefresh)
}

func withCacheMode(ctx context.Context, mode cacheMode) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cacheModeContextKey{}, mode)
}

func cacheModeFromContext(ctx context.Context) cacheMode {
	if ctx == nil {
		return modeDefault
	}
	if mode, ok := ctx.Value(cacheModeContextKey{}).(cacheMode); ok {
		return mode
	}
	return modeDefault
}
