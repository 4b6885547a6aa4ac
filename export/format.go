package export

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-export-cache/record"
)

// Format names an output encoding. Its string form is also the format tag
// fed to the cache keyer.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatMsgPack Format = "msgpack"
	FormatArrow   Format = "arrow"
)

const (
	// TextCodeUnsupportedFormat marks a format name no encoder handles.
	TextCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	// TextCodeEncodeFailed marks rows an encoder could not represent.
	TextCodeEncodeFailed = "ENCODE_FAILED"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatMsgPack, FormatArrow}
}

func (f Format) String() string { return string(f) }

// ParseFormat resolves a case insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", unsupportedFormat(s)
}

// Encoder turns records into their serialized form.
type Encoder interface {
	Format() Format
	Encode(rows []record.Record) (string, error)
}

// Lookup returns the default encoder for f.
func Lookup(f Format) (Encoder, error) {
	switch f {
	case FormatCSV:
		return NewCSVEncoder(), nil
	case FormatJSON:
		return NewJSONEncoder(), nil
	case FormatMsgPack:
		return NewMsgPackEncoder(), nil
	case FormatArrow:
		return NewArrowEncoder(), nil
	default:
		return nil, unsupportedFormat(string(f))
	}
}

func unsupportedFormat(name string) error {
	return goerrors.New(fmt.Sprintf("unsupported export format %q", name), goerrors.CategoryBadInput).
		WithTextCode(TextCodeUnsupportedFormat).
		WithMetadata(map[string]any{"format": name})
}

func encodeFailed(err error, f Format) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("encode %s", f)).
		WithTextCode(TextCodeEncodeFailed)
}

// IsUnsupportedFormat reports whether err was raised for an unknown format.
func IsUnsupportedFormat(err error) bool {
	var gerr *goerrors.Error
	return goerrors.As(err, &gerr) && gerr.TextCode == TextCodeUnsupportedFormat
}
