package di

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/goliatone/go-export-cache/cache"
	"github.com/goliatone/go-export-cache/exportcache"
)

// Container provides dependency injection for export caching components.
// It owns singleton instances of the store, the keyer and the exporter built
// from one cache.Config.
type Container struct {
	config   cache.Config
	store    cache.Store
	keyer    *cache.FingerprintKeyer
	exporter *exportcache.Exporter
	logger   *log.Logger

	digest      cache.Digest
	stopJanitor context.CancelFunc
	closeOnce   sync.Once
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to the exporter.
func WithLogger(logger *log.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDigest selects the keyer digest.
func WithDigest(d cache.Digest) Option {
	return func(c *Container) {
		c.digest = d
	}
}

// NewContainer creates a new DI container from config. The store backend is
// chosen by config.Backend. When config.JanitorInterval is set and the store
// is the in-process TTL cache, a background purge loop runs until Close.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	c := &Container{
		config: config,
		logger: log.New(io.Discard),
		digest: cache.DigestSHA256,
	}
	for _, opt := range opts {
		opt(c)
	}

	store, err := cache.NewStore(config)
	if err != nil {
		return nil, err
	}

	keyer := cache.NewFingerprintKeyer(cache.WithDigest(c.digest))

	exporter, err := exportcache.New(store, keyer, exportcache.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}

	c.store = store
	c.keyer = keyer
	c.exporter = exporter

	if ttl, ok := store.(*cache.TTLCache); ok && config.JanitorInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		ttl.StartJanitor(ctx, config.JanitorInterval)
		c.stopJanitor = cancel
		c.logger.Debug("cache janitor started", "interval", config.JanitorInterval)
	}

	return c, nil
}

// NewContainerWithDefaults creates a new DI container using cache.DefaultConfig.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// Store returns the singleton cache store.
func (c *Container) Store() cache.Store {
	return c.store
}

// Keyer returns the singleton fingerprint keyer.
func (c *Container) Keyer() *cache.FingerprintKeyer {
	return c.keyer
}

// Exporter returns the singleton exporter.
func (c *Container) Exporter() *exportcache.Exporter {
	return c.exporter
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Close stops background work started by the container. It is safe to call
// more than once.
func (c *Container) Close() error {
	c.closeOnce.Do(func() {
		if c.stopJanitor != nil {
			c.stopJanitor()
			c.logger.Debug("cache janitor stopped")
		}
	})
	return nil
}
