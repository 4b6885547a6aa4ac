// Package exportcache memoizes record serialization.
//
// # Overview
//
// An Exporter ties three collaborators together:
//
//   - a cache.Keyer that fingerprints the rows and the format tag
//   - a cache.Store that holds serialized output by key
//   - one export.Encoder per format that runs on a miss
//
// The flow is read-through:
//
//  1. Derive the key from rows and format
//  2. On a live cache entry, return it
//  3. Otherwise encode, store the output, and return it
//
// # Basic Usage
//
//	store, err := cache.NewTTLCache(time.Hour, 1000)
//	if err != nil {
//		return err
//	}
//	exporter, err := exportcache.New(store, cache.NewFingerprintKeyer(),
//		exportcache.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//
//	out, err := exporter.Export(ctx, rows, export.FormatCSV)
//
// Rows with the same fields and values produce the same key regardless of
// field insertion order, so a second export of equal data is served from the
// cache. The output itself follows each row's field order.
//
// # Per Call Cache Control
//
// WithCacheBypass marks a context so Export encodes without touching the
// cache. WithCacheRefresh forces a new encoding and overwrites the entry.
//
// # Concurrency
//
// Exporter is safe for concurrent use. Calls racing on the same key are
// collapsed so the encoder runs once and every caller gets its output.
// Counters are kept outside the cache lock; read them with Stats.
//
// # Error Handling
//
// Unknown formats fail with UNSUPPORTED_FORMAT and encoder failures with
// ENCODE_FAILED, both as *goerrors.Error values. Failed encodings are never
// cached. ExportMaps reports malformed input with INVALID_RECORD.
//
// # See Also
//
// For store configuration and key derivation, see the cache package.
// For dependency injection setup, see the pkg/di package.
package exportcache
