package export

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-export-cache/record"
)

// MsgPackEncoder writes a MessagePack array of maps. Map entries follow the
// record's field order and datetimes use the MessagePack timestamp
// extension in UTC. The result is binary data held in a string.
type MsgPackEncoder struct{}

// NewMsgPackEncoder returns a MessagePack encoder.
func NewMsgPackEncoder() *MsgPackEncoder { return &MsgPackEncoder{} }

func (e *MsgPackEncoder) Format() Format { return FormatMsgPack }

func (e *MsgPackEncoder) Encode(rows []record.Record) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeArrayLen(len(rows)); err != nil {
		return "", encodeFailed(err, FormatMsgPack)
	}
	for i, row := range rows {
		if err := enc.EncodeMapLen(row.Len()); err != nil {
			return "", encodeFailed(err, FormatMsgPack)
		}
		var err error
		row.Range(func(name string, v record.Value) bool {
			if err = enc.EncodeString(name); err != nil {
				return false
			}
			if err = encodeMsgPackValue(enc, v); err != nil {
				err = fmt.Errorf("row %d field %q: %w", i, name, err)
				return false
			}
			return true
		})
		if err != nil {
			return "", encodeFailed(err, FormatMsgPack)
		}
	}
	return buf.String(), nil
}

func encodeMsgPackValue(enc *msgpack.Encoder, v record.Value) error {
	switch v.Kind() {
	case record.KindNull:
		return enc.EncodeNil()
	case record.KindBool:
		return enc.EncodeBool(v.AsBool())
	case record.KindInt:
		return enc.EncodeInt(v.AsInt())
	case record.KindFloat:
		return enc.EncodeFloat64(v.AsFloat())
	case record.KindString:
		return enc.EncodeString(v.AsString())
	case record.KindTime:
		return enc.EncodeTime(v.AsTime().UTC())
	default:
		return fmt.Errorf("invalid value")
	}
}
