package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the options for the sharded sturdyc store.
type Config struct {
	// Capacity is the maximum number of entries held across all shards.
	// Must be greater than 0.
	Capacity int

	// NumShards splits the keyspace to reduce lock contention.
	// Must be greater than 0 and not larger than Capacity.
	NumShards int

	// TTL is the lifetime of every entry. sturdyc has no notion of an
	// always-stale entry so it must be greater than 0.
	TTL time.Duration

	// EvictionPercentage is the share of a full shard dropped at once.
	// Must be between 1 and 100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero keeps the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig mirrors the in-process TTL cache defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:           1000,
		NumShards:          16,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional parts of Config. Capacity,
// NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.NumShards > c.Capacity {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycStore is a string store backed by a sharded sturdyc client.
// Eviction is approximate: a full shard drops EvictionPercentage of its
// entries, oldest expiry first, instead of a strict LRU tail.
type SturdycStore struct {
	client *sturdyc.Client[string]
}

// NewSturdycStore validates cfg and builds the client.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[string](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycStore{client: client}, nil
}

// Get returns the live value stored under key.
func (s *SturdycStore) Get(key string) (string, bool) {
	return s.client.Get(key)
}

// Put stores value under key, replacing any previous entry.
func (s *SturdycStore) Put(key, value string) {
	s.client.Set(key, value)
}

// GetOrFetch returns the cached value or runs fetch and stores its result.
// Concurrent callers for the same key share one fetch.
func (s *SturdycStore) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (string, error)) (string, error) {
	return s.client.GetOrFetch(ctx, key, fetch)
}

// Delete removes key.
func (s *SturdycStore) Delete(key string) {
	s.client.Delete(key)
}

// Clear removes every entry.
func (s *SturdycStore) Clear() {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
}

// Len returns the number of stored entries, expired ones included until the
// next sweep.
func (s *SturdycStore) Len() int {
	return s.client.Size()
}

// Keys returns the stored keys in no particular order.
func (s *SturdycStore) Keys() []string {
	return s.client.ScanKeys()
}
