package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Kind identifies which member of the Value union is populated.
type Kind uint8

const (
	// KindInvalid is the zero Kind. A Value of this kind was never constructed
	// and is rejected by every consumer.
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

// String returns the lower case kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "invalid"
	}
}

// Value is a closed union of the scalar types a record field may hold:
// string, number (int or float), boolean, null and datetime.
//
// The zero Value is invalid; use the constructors.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating point number.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Time wraps a datetime.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Kind reports the populated member.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was built by one of the constructors.
func (v Value) IsValid() bool { return v.kind != KindInvalid && v.kind <= KindTime }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer payload.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the float payload.
func (v Value) AsFloat() float64 { return v.f }

// AsString returns the string payload.
func (v Value) AsString() string { return v.s }

// AsTime returns the datetime payload.
func (v Value) AsTime() time.Time { return v.t }

// Interface returns the payload as a plain Go value, nil for null.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// Text renders the value as a flat cell: null is empty, datetimes are UTC
// RFC 3339.
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return FormatFloat(v.f)
	case KindString:
		return v.s
	case KindTime:
		return FormatTime(v.t)
	default:
		return ""
	}
}

// Equal reports whether two values hold the same kind and payload. Datetimes
// compare as instants.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

func (v Value) GoString() string {
	if !v.IsValid() {
		return "record.Value{invalid}"
	}
	return fmt.Sprintf("record.Value{%s:%v}", v.kind, v.Interface())
}

// FormatFloat renders f in the shortest form that round trips, using
// exponent notation only for very small or very large magnitudes. Integral
// values keep a ".0" suffix so they never read as ints.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if format == 'f' && !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// TimeLayout is the layout every datetime is rendered with.
const TimeLayout = time.RFC3339Nano

// FormatTime renders t in UTC so equal instants always produce equal text.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FromAny converts a Go value into a Value. Supported inputs are nil, bool,
// every integer and float kind, string, []byte, json.Number, time.Time,
// *time.Time and Value itself.
func FromAny(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		if !v.IsValid() {
			return Value{}, fmt.Errorf("invalid record value")
		}
		return v, nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case []byte:
		return String(string(v)), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return fromUint(uint64(v))
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return fromUint(v)
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case json.Number:
		return fromNumber(v)
	case time.Time:
		return Time(v), nil
	case *time.Time:
		if v == nil {
			return Null(), nil
		}
		return Time(*v), nil
	default:
		return Value{}, fmt.Errorf("unsupported type %T", x)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func fromNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q", n.String())
	}
	return Float(f), nil
}
