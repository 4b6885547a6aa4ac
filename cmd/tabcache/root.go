package main

import (
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-export-cache/cache"
	"github.com/goliatone/go-export-cache/pkg/di"
)

const configName = "tabcache"

// app carries state shared by every subcommand.
type app struct {
	v          *viper.Viper
	logger     *log.Logger
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	def := cache.DefaultConfig()

	root := &cobra.Command{
		Use:           "tabcache",
		Short:         "Export tabular records with a content keyed cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.logger = logger
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./tabcache.yaml)")
	flags.Duration("ttl", def.TTL, "cache entry lifetime")
	flags.Int("max-size", def.MaxSize, "maximum number of cached exports")
	flags.String("backend", def.Backend, "cache backend (lru or sturdyc)")
	flags.String("digest", cache.DigestSHA256.String(), "cache key digest (sha256 or xxhash)")

	_ = a.v.BindPFlag("cache.ttl", flags.Lookup("ttl"))
	_ = a.v.BindPFlag("cache.max_size", flags.Lookup("max-size"))
	_ = a.v.BindPFlag("cache.backend", flags.Lookup("backend"))
	_ = a.v.BindPFlag("cache.digest", flags.Lookup("digest"))

	root.AddCommand(
		newExportCmd(a),
		newQueryCmd(a),
		newSampleCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	v := a.v
	def := cache.DefaultConfig()

	v.SetDefault("cache.ttl", def.TTL)
	v.SetDefault("cache.max_size", def.MaxSize)
	v.SetDefault("cache.backend", def.Backend)
	v.SetDefault("cache.shards", def.Shards)
	v.SetDefault("cache.eviction_percentage", def.EvictionPercentage)
	v.SetDefault("cache.janitor_interval", def.JanitorInterval)
	v.SetDefault("cache.digest", cache.DigestSHA256.String())

	v.SetEnvPrefix(configName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.configFile != "" || !errors.As(err, &notFound) {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "could not read configuration file").
				WithMetadata(map[string]any{"path": a.configFile})
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		a.logger.Debug("using configuration file", "path", used)
	}
	return nil
}

func (a *app) cacheConfig() cache.Config {
	return cache.Config{
		TTL:                a.v.GetDuration("cache.ttl"),
		MaxSize:            a.v.GetInt("cache.max_size"),
		Backend:            a.v.GetString("cache.backend"),
		Shards:             a.v.GetInt("cache.shards"),
		EvictionPercentage: a.v.GetInt("cache.eviction_percentage"),
		JanitorInterval:    a.v.GetDuration("cache.janitor_interval"),
	}
}

func (a *app) container() (*di.Container, error) {
	digest, err := cache.ParseDigest(a.v.GetString("cache.digest"))
	if err != nil {
		return nil, err
	}
	cfg := a.cacheConfig()
	c, err := di.NewContainer(cfg, di.WithLogger(a.logger), di.WithDigest(digest))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("cache ready", "backend", cfg.Backend, "ttl", cfg.TTL, "max_size", cfg.MaxSize, "digest", digest)
	return c, nil
}
