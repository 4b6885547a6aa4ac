package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-export-cache/record"
)

// Digest selects the hash applied to the canonical form.
type Digest int

const (
	// DigestSHA256 yields a 64 character hex key.
	DigestSHA256 Digest = iota
	// DigestXXHash64 yields a 16 character hex key. It is not collision
	// resistant against crafted input.
	DigestXXHash64
)

func (d Digest) String() string {
	switch d {
	case DigestSHA256:
		return "sha256"
	case DigestXXHash64:
		return "xxhash"
	default:
		return fmt.Sprintf("digest(%d)", int(d))
	}
}

// ParseDigest maps "sha256" or "xxhash" to a Digest.
func ParseDigest(name string) (Digest, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256":
		return DigestSHA256, nil
	case "xxhash", "xxhash64":
		return DigestXXHash64, nil
	default:
		return 0, goerrors.NewValidation("invalid digest",
			goerrors.FieldError{Field: "digest", Message: "must be sha256 or xxhash", Value: name},
		).WithTextCode(TextCodeInvalidConfig)
	}
}

// FingerprintKeyer derives content keys from records and a format tag.
//
// The canonical form is the format tag, a colon, then a compact JSON-like
// array with one object per row and object keys in sorted order:
//
//	json:[{"id":1,"name":"A"}]
//
// Names and strings are Go quoted, so invalid UTF-8 bytes stay distinct
// (`"\xff"` and `"\xfe"` never share a key).
//
// Field insertion order therefore never affects the key, while row order,
// any value and the format tag do.
type FingerprintKeyer struct {
	digest Digest
}

// KeyerOption configures a FingerprintKeyer.
type KeyerOption func(*FingerprintKeyer)

// WithDigest selects the digest. The default is DigestSHA256.
func WithDigest(d Digest) KeyerOption {
	return func(k *FingerprintKeyer) {
		k.digest = d
	}
}

// NewFingerprintKeyer creates a keyer.
func NewFingerprintKeyer(opts ...KeyerOption) *FingerprintKeyer {
	k := &FingerprintKeyer{digest: DigestSHA256}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Key returns the hex digest of the canonical form of rows and format.
//
// Rows must only hold values built by the record constructors. A zero
// record.Value panics with a CONTRACT_VIOLATION error.
func (k *FingerprintKeyer) Key(rows []record.Record, format string) string {
	h := k.newHash()
	writeCanonical(h, rows, format)
	return hex.EncodeToString(h.Sum(nil))
}

// Canonical returns the bytes Key hashes.
func (k *FingerprintKeyer) Canonical(rows []record.Record, format string) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, rows, format)
	return buf.Bytes()
}

func (k *FingerprintKeyer) newHash() hash.Hash {
	if k.digest == DigestXXHash64 {
		return xxhash.New()
	}
	return sha256.New()
}

func writeCanonical(w io.Writer, rows []record.Record, format string) {
	io.WriteString(w, format)
	io.WriteString(w, ":[")
	for i, row := range rows {
		if i > 0 {
			io.WriteString(w, ",")
		}
		io.WriteString(w, "{")
		for j, name := range row.SortedKeys() {
			if j > 0 {
				io.WriteString(w, ",")
			}
			v, _ := row.Get(name)
			if !v.IsValid() {
				panic(contractViolation("row %d field %q holds an invalid value", i, name))
			}
			writeString(w, name)
			io.WriteString(w, ":")
			writeValue(w, v)
		}
		io.WriteString(w, "}")
	}
	io.WriteString(w, "]")
}

func writeValue(w io.Writer, v record.Value) {
	switch v.Kind() {
	case record.KindNull:
		io.WriteString(w, "null")
	case record.KindBool:
		io.WriteString(w, strconv.FormatBool(v.AsBool()))
	case record.KindInt:
		io.WriteString(w, strconv.FormatInt(v.AsInt(), 10))
	case record.KindFloat:
		io.WriteString(w, record.FormatFloat(v.AsFloat()))
	case record.KindString:
		writeString(w, v.AsString())
	case record.KindTime:
		writeString(w, record.FormatTime(v.AsTime()))
	}
}

func writeString(w io.Writer, s string) {
	io.WriteString(w, strconv.Quote(s))
}
