package record

import (
	"fmt"
	"sort"

	goerrors "github.com/goliatone/go-errors"
)

// TextCodeInvalidRecord tags validation failures raised while normalizing input.
const TextCodeInvalidRecord = "INVALID_RECORD"

// FromMap converts a plain map into a Record. Map iteration order is random
// so fields are inserted in sorted name order.
func FromMap(m map[string]any) (Record, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	var fieldErrors goerrors.ValidationErrors
	for _, name := range names {
		v, err := FromAny(m[name])
		if err != nil {
			fieldErrors = append(fieldErrors, goerrors.FieldError{
				Field:   name,
				Message: err.Error(),
				Value:   m[name],
			})
			continue
		}
		fields = append(fields, F(name, v))
	}
	if len(fieldErrors) > 0 {
		return Record{}, goerrors.NewValidation("record contains unsupported values", fieldErrors...).
			WithTextCode(TextCodeInvalidRecord)
	}
	return New(fields...), nil
}

// FromMaps validates and converts a row sequence. Field errors are reported
// with a "[row].field" path.
func FromMaps(rows []map[string]any) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	var fieldErrors goerrors.ValidationErrors
	for i, row := range rows {
		if row == nil {
			fieldErrors = append(fieldErrors, goerrors.FieldError{
				Field:   fmt.Sprintf("[%d]", i),
				Message: "row is not a mapping",
			})
			continue
		}
		r, err := FromMap(row)
		if err != nil {
			if errs, ok := goerrors.GetValidationErrors(err); ok {
				for _, fe := range errs {
					fe.Field = fmt.Sprintf("[%d].%s", i, fe.Field)
					fieldErrors = append(fieldErrors, fe)
				}
			}
			continue
		}
		out = append(out, r)
	}
	if len(fieldErrors) > 0 {
		return nil, goerrors.NewValidation("invalid records", fieldErrors...).
			WithTextCode(TextCodeInvalidRecord)
	}
	return out, nil
}

// FromAnySlice accepts the loosely typed shape produced by generic decoders
// and rejects anything that is not a list of mappings.
func FromAnySlice(data any) ([]Record, error) {
	switch rows := data.(type) {
	case []Record:
		return rows, nil
	case []map[string]any:
		return FromMaps(rows)
	case []any:
		maps := make([]map[string]any, len(rows))
		for i, row := range rows {
			m, ok := row.(map[string]any)
			if !ok {
				return nil, goerrors.NewValidation("invalid records", goerrors.FieldError{
					Field:   fmt.Sprintf("[%d]", i),
					Message: fmt.Sprintf("row is %T, not a mapping", row),
				}).WithTextCode(TextCodeInvalidRecord)
			}
			maps[i] = m
		}
		return FromMaps(maps)
	default:
		return nil, goerrors.NewValidation(fmt.Sprintf("data must be a list of mappings, got %T", data)).
			WithTextCode(TextCodeInvalidRecord)
	}
}
