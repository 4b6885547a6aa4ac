package export

import (
	"encoding/csv"
	"strings"

	"github.com/goliatone/go-export-cache/record"
)

// CSVEncoder writes RFC 4180 CSV with a header row.
//
// Columns are the first row's fields in order, followed by fields first
// seen in later rows. Missing fields and nulls become empty cells.
type CSVEncoder struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// UseCRLF ends lines with \r\n.
	UseCRLF bool
}

// NewCSVEncoder returns an encoder with ',' delimiters and \r\n line endings.
func NewCSVEncoder() *CSVEncoder {
	return &CSVEncoder{Comma: ',', UseCRLF: true}
}

func (e *CSVEncoder) Format() Format { return FormatCSV }

// Encode renders rows. No rows yield an empty string since there is no
// header to infer.
func (e *CSVEncoder) Encode(rows []record.Record) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if e.Comma != 0 {
		w.Comma = e.Comma
	}
	w.UseCRLF = e.UseCRLF

	header := Columns(rows)
	if err := w.Write(header); err != nil {
		return "", encodeFailed(err, FormatCSV)
	}

	cells := make([]string, len(header))
	for _, row := range rows {
		for i, name := range header {
			v, ok := row.Get(name)
			if !ok {
				cells[i] = ""
				continue
			}
			cells[i] = v.Text()
		}
		if err := w.Write(cells); err != nil {
			return "", encodeFailed(err, FormatCSV)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", encodeFailed(err, FormatCSV)
	}
	return sb.String(), nil
}

// Columns returns the union of field names across rows in discovery order.
func Columns(rows []record.Record) []string {
	var header []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		row.Range(func(name string, _ record.Value) bool {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				header = append(header, name)
			}
			return true
		})
	}
	return header
}
