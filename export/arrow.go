package export

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/goliatone/go-export-cache/record"
)

// ArrowTimestamp is the column type used for time values.
var ArrowTimestamp = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// ArrowEncoder writes rows as a single record batch in the Arrow IPC stream
// format. Columns follow Columns(rows). A column whose non-null values share
// one kind gets the matching Arrow type, ints mixed with floats become
// float64, and any other mix is written as text. Missing fields are null.
type ArrowEncoder struct {
	allocator memory.Allocator
}

func NewArrowEncoder() *ArrowEncoder {
	return &ArrowEncoder{allocator: memory.DefaultAllocator}
}

func (e *ArrowEncoder) Format() Format { return FormatArrow }

func (e *ArrowEncoder) Encode(rows []record.Record) (string, error) {
	columns := Columns(rows)
	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: arrowType(rows, name), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(e.allocator, schema)
	defer builder.Release()

	for _, row := range rows {
		for i, name := range columns {
			v, ok := row.Get(name)
			if !ok || v.IsNull() {
				builder.Field(i).AppendNull()
				continue
			}
			if err := appendArrow(builder.Field(i), v); err != nil {
				return "", encodeFailed(fmt.Errorf("column %q: %w", name, err), FormatArrow)
			}
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(e.allocator))
	if err := w.Write(rec); err != nil {
		w.Close()
		return "", encodeFailed(err, FormatArrow)
	}
	if err := w.Close(); err != nil {
		return "", encodeFailed(err, FormatArrow)
	}
	return buf.String(), nil
}

func arrowType(rows []record.Record, name string) arrow.DataType {
	kind := record.KindNull
	for _, row := range rows {
		v, ok := row.Get(name)
		if !ok || v.IsNull() {
			continue
		}
		switch {
		case kind == record.KindNull:
			kind = v.Kind()
		case kind == v.Kind():
		case isNumeric(kind) && isNumeric(v.Kind()):
			kind = record.KindFloat
		default:
			return arrow.BinaryTypes.String
		}
	}

	switch kind {
	case record.KindBool:
		return arrow.FixedWidthTypes.Boolean
	case record.KindInt:
		return arrow.PrimitiveTypes.Int64
	case record.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case record.KindTime:
		return ArrowTimestamp
	default:
		return arrow.BinaryTypes.String
	}
}

func isNumeric(k record.Kind) bool {
	return k == record.KindInt || k == record.KindFloat
}

func appendArrow(b array.Builder, v record.Value) error {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		b.Append(v.AsBool())
	case *array.Int64Builder:
		b.Append(v.AsInt())
	case *array.Float64Builder:
		if v.Kind() == record.KindInt {
			b.Append(float64(v.AsInt()))
		} else {
			b.Append(v.AsFloat())
		}
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(v.AsTime().UnixMicro()))
	case *array.StringBuilder:
		b.Append(v.Text())
	default:
		return fmt.Errorf("unexpected builder %T", b)
	}
	return nil
}
