package cache

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-export-cache/internal/cacheinfra"
)

// Store backends accepted by Config.Backend.
const (
	BackendLRU     = "lru"
	BackendSturdyc = "sturdyc"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	// TTL is how long an entry stays valid after its last write. Zero means
	// entries are stale on the next read.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// MaxSize caps the number of stored entries.
	MaxSize int `json:"max_size" mapstructure:"max_size"`

	// Backend selects the store implementation. Empty means BackendLRU.
	Backend string `json:"backend" mapstructure:"backend"`

	// Shards and EvictionPercentage only apply to BackendSturdyc.
	Shards             int `json:"shards" mapstructure:"shards"`
	EvictionPercentage int `json:"eviction_percentage" mapstructure:"eviction_percentage"`

	// JanitorInterval enables periodic removal of expired entries.
	JanitorInterval time.Duration `json:"janitor_interval" mapstructure:"janitor_interval"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	infra := cacheinfra.DefaultConfig()
	return Config{
		TTL:                time.Hour,
		MaxSize:            1000,
		Backend:            BackendLRU,
		Shards:             infra.NumShards,
		EvictionPercentage: infra.EvictionPercentage,
	}
}

// Validate checks whether the configuration values are valid. Failures are
// reported as a validation *goerrors.Error with one field error per problem.
func (c Config) Validate() error {
	sturdyc := c.Backend == BackendSturdyc
	err := validation.ValidateStruct(&c,
		validation.Field(&c.TTL,
			validation.Min(time.Duration(0)).Error("must not be negative"),
			validation.When(sturdyc, validation.Required.Error("must be greater than 0 for the sturdyc backend")),
		),
		validation.Field(&c.MaxSize,
			validation.Required.Error("must be greater than 0"),
			validation.Min(1).Error("must be greater than 0"),
		),
		validation.Field(&c.Backend, validation.In(BackendLRU, BackendSturdyc)),
		validation.Field(&c.Shards, validation.When(sturdyc,
			validation.Required,
			validation.Min(1),
			validation.Max(c.MaxSize).Error("must not exceed max_size"),
		)),
		validation.Field(&c.EvictionPercentage, validation.When(sturdyc,
			validation.Required,
			validation.Min(1),
			validation.Max(100),
		)),
		validation.Field(&c.JanitorInterval, validation.Min(time.Duration(0)).Error("must not be negative")),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid cache configuration").
			WithTextCode(TextCodeInvalidConfig)
	}
	return nil
}

// NewStore constructs the store selected by cfg.Backend.
func NewStore(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendSturdyc:
		store, err := cacheinfra.NewSturdycStore(cfg.toInternal())
		if err != nil {
			return nil, fromInfraError(err)
		}
		return store, nil
	default:
		store, err := NewTTLCache(cfg.TTL, cfg.MaxSize)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.MaxSize,
		NumShards:          c.Shards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.JanitorInterval,
	}
}

func fromInfraError(err error) error {
	var cfgErr *cacheinfra.ConfigError
	if !errors.As(err, &cfgErr) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "create sturdyc store")
	}
	return goerrors.NewValidation("invalid cache configuration", goerrors.FieldError{
		Field:   cfgErr.Field,
		Message: cfgErr.Message,
	}).WithTextCode(TextCodeInvalidConfig)
}
