package main

import (
	"fmt"
	"io"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-export-cache/export"
	"github.com/goliatone/go-export-cache/record"
)

var sampleProducts = []string{"Widget", "Gadget", "Sprocket", "Flange", "Gizmo"}

func newSampleCmd(a *app) *cobra.Command {
	var (
		n      int
		format string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print sample inventory records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n < 0 {
				return goerrors.NewValidation("invalid sample options",
					goerrors.FieldError{Field: "rows", Message: "must not be negative", Value: n},
				)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			enc, err := export.Lookup(f)
			if err != nil {
				return err
			}

			out, err := enc.Encode(sampleRecords(n, time.Now()))
			if err != nil {
				return err
			}
			a.logger.Debug("sample generated", "rows", n, "format", f)
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().IntVarP(&n, "rows", "r", 10, "number of records")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "output format")
	return cmd
}

func sampleRecords(n int, now time.Time) []record.Record {
	base := now.UTC().Truncate(time.Second)
	rows := make([]record.Record, n)
	for i := range rows {
		product := sampleProducts[i%len(sampleProducts)]
		rows[i] = record.New(
			record.F("id", record.String(uuid.NewString())),
			record.F("sku", record.String(fmt.Sprintf("%s-%04d", product[:3], i))),
			record.F("name", record.String(product)),
			record.F("qty", record.Int(int64(i*7%50))),
			record.F("price", record.Float(float64(i%20)+0.99)),
			record.F("active", record.Bool(i%3 != 0)),
			record.F("note", noteFor(i)),
			record.F("updated_at", record.Time(base.Add(-time.Duration(i)*time.Hour))),
		)
	}
	return rows
}

func noteFor(i int) record.Value {
	if i%4 == 0 {
		return record.Null()
	}
	return record.String(fmt.Sprintf("batch %d, shelf %c", i/4, 'A'+rune(i%4)))
}
