package record

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"
)

// DecodeJSON reads a top level JSON array of flat objects. Field order in
// each object is preserved; nested arrays or objects are rejected. Numbers
// without a fraction or exponent decode as ints.
func DecodeJSON(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var rows []Record
	for dec.More() {
		row, err := decodeObject(dec, len(rows))
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Record{}
	}
	return rows, nil
}

func decodeObject(dec *json.Decoder, idx int) (Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return Record{}, decodeError(err, fmt.Sprintf("[%d]", idx))
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Record{}, invalidField(fmt.Sprintf("[%d]", idx), "row is not an object", tok)
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Record{}, decodeError(err, fmt.Sprintf("[%d]", idx))
		}
		name, ok := keyTok.(string)
		if !ok {
			return Record{}, invalidField(fmt.Sprintf("[%d]", idx), "object key is not a string", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return Record{}, decodeError(err, fmt.Sprintf("[%d].%s", idx, name))
		}
		if _, nested := valTok.(json.Delim); nested {
			return Record{}, invalidField(fmt.Sprintf("[%d].%s", idx, name), "nested values are not supported", nil)
		}
		v, err := FromAny(valTok)
		if err != nil {
			return Record{}, invalidField(fmt.Sprintf("[%d].%s", idx, name), err.Error(), valTok)
		}
		fields = append(fields, F(name, v))
	}

	if _, err := dec.Token(); err != nil {
		return Record{}, decodeError(err, fmt.Sprintf("[%d]", idx))
	}
	return New(fields...), nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return decodeError(err, "")
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return invalidField("", fmt.Sprintf("expected %q", want.String()), tok)
	}
	return nil
}

func invalidField(field, msg string, value any) error {
	return goerrors.NewValidation("invalid JSON records", goerrors.FieldError{
		Field:   field,
		Message: msg,
		Value:   value,
	}).WithTextCode(TextCodeInvalidRecord)
}

func decodeError(err error, field string) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "decode JSON records").
		WithTextCode(TextCodeInvalidRecord).
		WithMetadata(map[string]any{"field": field})
}
