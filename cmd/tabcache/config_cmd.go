package main

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective cache configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cacheConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			view := struct {
				TTL                string `json:"ttl"`
				MaxSize            int    `json:"max_size"`
				Backend            string `json:"backend"`
				Shards             int    `json:"shards"`
				EvictionPercentage int    `json:"eviction_percentage"`
				JanitorInterval    string `json:"janitor_interval"`
				Digest             string `json:"digest"`
				File               string `json:"file,omitempty"`
			}{
				TTL:                cfg.TTL.String(),
				MaxSize:            cfg.MaxSize,
				Backend:            cfg.Backend,
				Shards:             cfg.Shards,
				EvictionPercentage: cfg.EvictionPercentage,
				JanitorInterval:    cfg.JanitorInterval.String(),
				Digest:             a.v.GetString("cache.digest"),
				File:               a.v.ConfigFileUsed(),
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}
