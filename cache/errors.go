package cache

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidConfig marks a rejected cache configuration.
	TextCodeInvalidConfig = "INVALID_CACHE_CONFIG"
	// TextCodeContractViolation marks a panic caused by input that the
	// caller's validator should have rejected.
	TextCodeContractViolation = "CONTRACT_VIOLATION"
)

// IsConfigError reports whether err is a configuration validation failure.
func IsConfigError(err error) bool {
	var gerr *goerrors.Error
	if !goerrors.As(err, &gerr) {
		return false
	}
	return gerr.Category == goerrors.CategoryValidation && gerr.TextCode == TextCodeInvalidConfig
}

// IsContractViolation reports whether v, typically a recovered panic value,
// is a contract violation raised by this package.
func IsContractViolation(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var gerr *goerrors.Error
	return goerrors.As(err, &gerr) && gerr.TextCode == TextCodeContractViolation
}

func contractViolation(format string, args ...any) *goerrors.Error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryInternal).
		WithTextCode(TextCodeContractViolation)
}
