package export

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-export-cache/record"
)

// JSONEncoder writes a compact JSON array of objects. Each object keeps its
// record's field order. HTML characters are not escaped.
type JSONEncoder struct{}

// NewJSONEncoder returns a JSON encoder.
func NewJSONEncoder() *JSONEncoder { return &JSONEncoder{} }

func (e *JSONEncoder) Format() Format { return FormatJSON }

// Encode renders rows. NaN and infinite floats have no JSON form and fail
// with ENCODE_FAILED.
func (e *JSONEncoder) Encode(rows []record.Record) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeObject(&buf, row, i); err != nil {
			return "", encodeFailed(err, FormatJSON)
		}
	}
	buf.WriteByte(']')
	return buf.String(), nil
}

func writeObject(buf *bytes.Buffer, row record.Record, idx int) error {
	buf.WriteByte('{')
	var err error
	n := 0
	row.Range(func(name string, v record.Value) bool {
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		if err = writeJSONString(buf, name); err != nil {
			return false
		}
		buf.WriteByte(':')
		if err = writeJSONValue(buf, v); err != nil {
			err = fmt.Errorf("row %d field %q: %w", idx, name, err)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

func writeJSONValue(buf *bytes.Buffer, v record.Value) error {
	switch v.Kind() {
	case record.KindNull:
		buf.WriteString("null")
	case record.KindBool:
		buf.WriteString(strconv.FormatBool(v.AsBool()))
	case record.KindInt:
		buf.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case record.KindFloat:
		f := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("unsupported float value %s", record.FormatFloat(f))
		}
		buf.WriteString(record.FormatFloat(f))
	case record.KindString:
		return writeJSONString(buf, v.AsString())
	case record.KindTime:
		return writeJSONString(buf, record.FormatTime(v.AsTime()))
	default:
		return fmt.Errorf("invalid value")
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.MarshalWithOption(s, json.DisableHTMLEscape())
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
