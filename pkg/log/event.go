package log

import (
	"encoding/hex"
	"time"
)

// Event represents one codec operation.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Operation performed.
	Operation Operation `cbor:"2,keyasint"`

	// Direction indicates whether the address was read or written.
	Direction Direction `cbor:"3,keyasint"`

	// Dialect is the addressing dialect name ("1.0", "2004/08", "none").
	Dialect string `cbor:"4,keyasint,omitempty"`

	// Address is the endpoint URI.
	Address string `cbor:"5,keyasint,omitempty"`

	// HeaderCount is the number of address headers.
	HeaderCount int `cbor:"6,keyasint,omitempty"`

	// IdentityKind is the identity variant, if any.
	IdentityKind string `cbor:"7,keyasint,omitempty"`

	// Sections describes the buffered opaque sections.
	Sections []SectionInfo `cbor:"8,keyasint,omitempty"`

	// Error is set when the operation failed.
	Error *ErrorEventData `cbor:"9,keyasint,omitempty"`
}

// Failed reports whether the event records a failure.
func (e Event) Failed() bool {
	return e.Error != nil
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates data read from XML.
	DirectionIn Direction = 0
	// DirectionOut indicates data written to XML or a message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Operation identifies the codec operation.
type Operation uint8

const (
	// OperationDecode is reading an endpoint reference.
	OperationDecode Operation = 0
	// OperationEncode is writing an endpoint reference.
	OperationEncode Operation = 1
	// OperationApply is applying an address to message headers.
	OperationApply Operation = 2
	// OperationBuild is freezing a builder.
	OperationBuild Operation = 3
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OperationDecode:
		return "DECODE"
	case OperationEncode:
		return "ENCODE"
	case OperationApply:
		return "APPLY"
	case OperationBuild:
		return "BUILD"
	default:
		return "UNKNOWN"
	}
}

// SectionKind identifies an opaque section of an address.
type SectionKind uint8

const (
	// SectionMetadata is the metadata section.
	SectionMetadata SectionKind = 0
	// SectionExtensions is the extensions section.
	SectionExtensions SectionKind = 1
	// SectionLegacyBlob is the August-2004 PortType/ServiceName section.
	SectionLegacyBlob SectionKind = 2
)

// String returns the section kind name.
func (k SectionKind) String() string {
	switch k {
	case SectionMetadata:
		return "METADATA"
	case SectionExtensions:
		return "EXTENSIONS"
	case SectionLegacyBlob:
		return "LEGACY_BLOB"
	default:
		return "UNKNOWN"
	}
}

// SectionInfo summarizes a buffered section without its content.
type SectionInfo struct {
	Kind SectionKind `cbor:"1,keyasint"`

	// Size is the stored size in bytes.
	Size int `cbor:"2,keyasint"`

	// Fingerprint is the BLAKE3 digest of the stored section.
	Fingerprint []byte `cbor:"3,keyasint,omitempty"`
}

// FingerprintHex returns the fingerprint as lower-case hex.
func (s SectionInfo) FingerprintHex() string {
	return hex.EncodeToString(s.Fingerprint)
}

// ErrorEventData captures a failed operation.
type ErrorEventData struct {
	// Kind is the failure kind, e.g. "MALFORMED_INPUT".
	Kind string `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what was being processed.
	Context string `cbor:"3,keyasint,omitempty"`
}
