// Package fault defines the error taxonomy shared by the endpoint address
// codec packages.
//
// Every failure surfaced by this module wraps exactly one of the sentinel
// errors below, so callers classify failures with errors.Is or KindOf:
//
//	if errors.Is(err, fault.ErrMisplacedExtension) {
//	    // report a protocol fault to the peer
//	}
//
// None of these errors are transient; there is nothing to retry.
package fault

import (
	"errors"
	"fmt"
)

// Codec errors.
var (
	// ErrMalformedInput indicates a wrong or missing required element, or a bad URI.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnsupportedDialect indicates an addressing version this codec does not implement.
	ErrUnsupportedDialect = errors.New("unsupported addressing dialect")

	// ErrDialectIncompatible indicates a feature the target dialect cannot express.
	ErrDialectIncompatible = errors.New("dialect cannot express value")

	// ErrDuplicateIdentity indicates more than one identity element in an address.
	ErrDuplicateIdentity = errors.New("duplicate identity element")

	// ErrMisplacedExtension indicates an extension element in the dialect's own namespace.
	ErrMisplacedExtension = errors.New("extension element in addressing namespace")

	// ErrQuotaExceeded indicates buffered section growth beyond the configured maximum.
	ErrQuotaExceeded = errors.New("buffer quota exceeded")

	// ErrUnsupportedComparison indicates identity equality without a claim comparer.
	ErrUnsupportedComparison = errors.New("identity has no claim comparer")
)

// Kind classifies a codec error.
type Kind uint8

const (
	KindNone Kind = iota
	KindMalformedInput
	KindUnsupportedDialect
	KindDialectIncompatible
	KindDuplicateIdentity
	KindMisplacedExtension
	KindQuotaExceeded
	KindUnsupportedComparison
	KindOther
)

var kindErrors = []struct {
	kind Kind
	err  error
}{
	{KindMalformedInput, ErrMalformedInput},
	{KindUnsupportedDialect, ErrUnsupportedDialect},
	{KindDialectIncompatible, ErrDialectIncompatible},
	{KindDuplicateIdentity, ErrDuplicateIdentity},
	{KindMisplacedExtension, ErrMisplacedExtension},
	{KindQuotaExceeded, ErrQuotaExceeded},
	{KindUnsupportedComparison, ErrUnsupportedComparison},
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "NONE"
	case KindMalformedInput:
		return "MALFORMED_INPUT"
	case KindUnsupportedDialect:
		return "UNSUPPORTED_DIALECT"
	case KindDialectIncompatible:
		return "DIALECT_INCOMPATIBLE"
	case KindDuplicateIdentity:
		return "DUPLICATE_IDENTITY"
	case KindMisplacedExtension:
		return "MISPLACED_EXTENSION"
	case KindQuotaExceeded:
		return "QUOTA_EXCEEDED"
	case KindUnsupportedComparison:
		return "UNSUPPORTED_COMPARISON"
	default:
		return "OTHER"
	}
}

// KindOf returns the kind of err. A nil error is KindNone; an error that wraps
// none of the sentinels is KindOther.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, ke := range kindErrors {
		if errors.Is(err, ke.err) {
			return ke.kind
		}
	}
	return KindOther
}

// Malformed wraps ErrMalformedInput with a formatted message.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

// Incompatible wraps ErrDialectIncompatible with a formatted message.
func Incompatible(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDialectIncompatible, fmt.Sprintf(format, args...))
}
