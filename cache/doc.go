// Package cache provides the memoization layer for serialized exports.
//
// # Overview
//
// This package exports two main pieces and the interfaces they satisfy:
//
//   - TTLCache: a bounded Store with TTL expiry and least recently used eviction
//   - FingerprintKeyer: a Keyer that derives stable keys from records and a format tag
//
// Neither piece knows what the cached strings represent. The exportcache
// package wires them to the serializers.
//
// # Basic Usage
//
//	store, err := cache.NewTTLCache(time.Hour, 1000)
//	if err != nil {
//		return err
//	}
//	keyer := cache.NewFingerprintKeyer()
//
//	key := keyer.Key(rows, "csv")
//	out, hit, err := cache.GetOrFetch(ctx, store, key, func(ctx context.Context) (string, error) {
//		return encodeCSV(rows)
//	})
//
// # Expiry and Eviction
//
// An entry expires once its age is strictly greater than the TTL, so an entry
// read exactly TTL after its write is still returned. A TTL of zero makes
// every entry stale on its next read. Reads do not extend the TTL; writes do.
//
// When a write needs room, the oldest written entry is dropped if it has
// already expired. Otherwise the least recently used entry is dropped.
// Expired entries nobody reads again stay in memory until they are evicted,
// Purge runs, or the janitor started with StartJanitor sweeps them.
//
// # Key Derivation
//
// Keys are the SHA-256 hex digest of the format tag, a colon and a compact
// JSON rendering of the rows with object keys sorted:
//
//	csv:[{"id":1,"name":"A"},{"id":2,"name":"B"}]
//
// Datetimes are rendered in UTC so equal instants hash equally. Integral
// floats keep a ".0" suffix and never collide with ints. A record.Value that
// was never constructed is a programming error and panics with a
// CONTRACT_VIOLATION error; validate input with the record package first.
//
// # Backends
//
// NewStore picks a backend from Config.Backend. BackendLRU is TTLCache.
// BackendSturdyc is a sharded store for high concurrency whose eviction is
// approximate: a full shard drops a percentage of its entries at once.
//
// # Error Handling
//
// Configuration problems are returned as validation errors from
// github.com/goliatone/go-errors carrying the INVALID_CACHE_CONFIG text code;
// use IsConfigError to detect them. Cache misses are never errors.
package cache
