package exportcache

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-export-cache/cache"
	"github.com/goliatone/go-export-cache/export"
	"github.com/goliatone/go-export-cache/record"
)

// TextCodeInvalidExporter marks an Exporter built without its collaborators.
const TextCodeInvalidExporter = "INVALID_EXPORTER_CONFIG"

// Exporter serializes records and memoizes the output by content key.
type Exporter struct {
	store    cache.Store
	keyer    cache.Keyer
	encoders map[export.Format]export.Encoder
	logger   *log.Logger

	group singleflight.Group

	requests *xsync.Counter
	hits     *xsync.Counter
	misses   *xsync.Counter
	failures *xsync.Counter
	shared   *xsync.Counter
	bypassed *xsync.Counter
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger used for debug tracing. The default discards
// everything.
func WithLogger(logger *log.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEncoder registers enc for its format, replacing the default one.
func WithEncoder(enc export.Encoder) Option {
	return func(e *Exporter) {
		if enc != nil {
			e.encoders[enc.Format()] = enc
		}
	}
}

// New creates an Exporter over store and keyer with the default encoder for
// every supported format.
func New(store cache.Store, keyer cache.Keyer, opts ...Option) (*Exporter, error) {
	err := validation.Errors{
		"store": validation.Validate(store, validation.NotNil),
		"keyer": validation.Validate(keyer, validation.NotNil),
	}.Filter()
	if err != nil {
		return nil, goerrors.FromOzzoValidation(err, "invalid exporter configuration").
			WithTextCode(TextCodeInvalidExporter)
	}

	e := &Exporter{
		store:    store,
		keyer:    keyer,
		encoders: make(map[export.Format]export.Encoder),
		logger:   log.New(io.Discard),
		requests: xsync.NewCounter(),
		hits:     xsync.NewCounter(),
		misses:   xsync.NewCounter(),
		failures: xsync.NewCounter(),
		shared:   xsync.NewCounter(),
		bypassed: xsync.NewCounter(),
	}
	for _, f := range export.Formats() {
		enc, err := export.Lookup(f)
		if err != nil {
			return nil, err
		}
		e.encoders[f] = enc
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type exportResult struct {
	value string
	hit   bool
}

// Export returns rows serialized in format, reusing a cached result when the
// same content was exported in the same format before and is still live.
//
// Concurrent calls for the same key share one lookup and at most one
// encoding. The lookup runs to completion and is cached even if the caller
// that started it is canceled; each caller still gets its own ctx error.
// Encoding errors are returned and nothing is cached.
func (e *Exporter) Export(ctx context.Context, rows []record.Record, format export.Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.requests.Inc()

	enc, ok := e.encoders[format]
	if !ok {
		e.failures.Inc()
		_, err := export.Lookup(format)
		return "", err
	}

	mode := cacheModeFromContext(ctx)
	if mode == modeBypass {
		e.bypassed.Inc()
		e.logger.Debug("export cache bypassed", "format", format, "rows", len(rows))
		return e.encode(enc, rows)
	}

	key := e.keyer.Key(rows, format.String())
	if mode == modeRefresh {
		out, err := e.encode(enc, rows)
		if err != nil {
			return "", err
		}
		e.store.Put(key, out)
		e.misses.Inc()
		e.logger.Debug("export cache refreshed", "key", shortKey(key), "format", format, "rows", len(rows))
		return out, nil
	}

	// fn runs on the calling goroutine, so ran is only set for the caller
	// that did the lookup. Other callers wait on it, so it must not stop
	// when that caller's context is canceled.
	ran := false
	shared := context.WithoutCancel(ctx)
	v, err, _ := e.group.Do(key, func() (any, error) {
		ran = true
		value, hit, err := cache.GetOrFetch(shared, e.store, key, func(context.Context) (string, error) {
			return e.encode(enc, rows)
		})
		return exportResult{value: value, hit: hit}, err
	})
	if !ran {
		e.shared.Inc()
	}
	if err != nil {
		return "", err
	}

	res := v.(exportResult)
	switch {
	case !ran:
		e.logger.Debug("export shared", "key", shortKey(key), "format", format, "rows", len(rows))
	case res.hit:
		e.hits.Inc()
		e.logger.Debug("export cache hit", "key", shortKey(key), "format", format, "rows", len(rows))
	default:
		e.misses.Inc()
		e.logger.Debug("export cache miss", "key", shortKey(key), "format", format, "rows", len(rows), "bytes", len(res.value))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return res.value, nil
}

// ExportMaps validates loosely typed rows and exports them. Validation
// failures are returned with the INVALID_RECORD text code.
func (e *Exporter) ExportMaps(ctx context.Context, data []map[string]any, format export.Format) (string, error) {
	rows, err := record.FromMaps(data)
	if err != nil {
		return "", err
	}
	return e.Export(ctx, rows, format)
}

// Key returns the cache key Export would use for rows and format.
func (e *Exporter) Key(rows []record.Record, format export.Format) string {
	return e.keyer.Key(rows, format.String())
}

// Clear drops every cached export.
func (e *Exporter) Clear() {
	e.store.Clear()
	e.logger.Debug("export cache cleared")
}

// Store returns the backing store.
func (e *Exporter) Store() cache.Store { return e.store }

func (e *Exporter) encode(enc export.Encoder, rows []record.Record) (string, error) {
	out, err := enc.Encode(rows)
	if err != nil {
		e.failures.Inc()
		e.logger.Debug("export encode failed", "format", enc.Format(), "err", err)
		return "", err
	}
	return out, nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
