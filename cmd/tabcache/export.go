package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-export-cache/export"
	"github.com/goliatone/go-export-cache/exportcache"
	"github.com/goliatone/go-export-cache/internal/source"
	"github.com/goliatone/go-export-cache/record"
)

// exportOptions are the flags shared by export and query.
type exportOptions struct {
	format string
	repeat int
	out    string
	bypass bool
}

func (o *exportOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", string(export.FormatCSV), "output format (csv, json, msgpack or arrow)")
	cmd.Flags().IntVarP(&o.repeat, "repeat", "n", 1, "export the same rows n times through the cache")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "write output to a file instead of stdout")
	cmd.Flags().BoolVar(&o.bypass, "no-cache", false, "encode without reading or writing the cache")
}

func newExportCmd(a *app) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export [file|-]",
		Short: "Export JSON records read from a file or stdin",
		Long: `Reads a JSON array of flat objects and writes it in the chosen format.
Field order in each object is kept in the output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRecords(cmd, args)
			if err != nil {
				return err
			}
			return a.runExport(cmd, rows, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	opts := &exportOptions{}
	var (
		driver    string
		dsn       string
		query     string
		snakeCase bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Export the result of a SQL query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var srcOpts []source.Option
			if snakeCase {
				srcOpts = append(srcOpts, source.WithSnakeCaseColumns())
			}
			src, err := source.Open(driver, dsn, srcOpts...)
			if err != nil {
				return err
			}
			defer src.Close()

			start := time.Now()
			rows, err := src.Load(cmd.Context(), query)
			if err != nil {
				return err
			}
			a.logger.Debug("query loaded", "driver", driver, "rows", len(rows), "elapsed", time.Since(start))
			return a.runExport(cmd, rows, opts)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", source.DriverSQLite, "database driver (postgres or sqlite3)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "data source name")
	cmd.Flags().StringVar(&query, "sql", "", "query to run")
	cmd.Flags().BoolVar(&snakeCase, "snake-case", false, "rename columns to snake_case")
	_ = cmd.MarkFlagRequired("dsn")
	_ = cmd.MarkFlagRequired("sql")
	opts.register(cmd)
	return cmd
}

func readRecords(cmd *cobra.Command, args []string) ([]record.Record, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to open input").
				WithMetadata(map[string]any{"path": args[0]})
		}
		defer f.Close()
		r = f
	}
	return record.DecodeJSON(r)
}

func (a *app) runExport(cmd *cobra.Command, rows []record.Record, opts *exportOptions) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.repeat < 1 {
		return goerrors.NewValidation("invalid export options",
			goerrors.FieldError{Field: "repeat", Message: "must be at least 1", Value: opts.repeat},
		)
	}

	container, err := a.container()
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := cmd.Context()
	if opts.bypass {
		ctx = exportcache.WithCacheBypass(ctx)
	}

	exporter := container.Exporter()
	var out string
	start := time.Now()
	for i := 0; i < opts.repeat; i++ {
		out, err = exporter.Export(ctx, rows, format)
		if err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	if err := writeOutput(cmd, opts.out, out); err != nil {
		return err
	}

	stats := exporter.Stats()
	fmt.Fprintf(cmd.ErrOrStderr(), "%s rows as %s, %s, %d of %d cached (%.0f%%) in %s\n",
		humanize.Comma(int64(len(rows))),
		format,
		humanize.Bytes(uint64(len(out))),
		stats.Hits,
		stats.Hits+stats.Misses,
		stats.HitRate()*100,
		elapsed.Round(time.Microsecond),
	)
	return nil
}

func writeOutput(cmd *cobra.Command, path, out string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to write output").
			WithMetadata(map[string]any{"path": path})
	}
	return nil
}
