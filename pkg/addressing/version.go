package addressing

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/epr-protocol/epr-go/pkg/fault"
)

// Namespaces used by the codec.
const (
	Namespace10          = "http://www.w3.org/2005/08/addressing"
	NamespaceAugust2004  = "http://schemas.xmlsoap.org/ws/2004/08/addressing"
	NamespacePolicy      = "http://schemas.xmlsoap.org/ws/2004/09/policy"
	NamespaceMex         = "http://schemas.xmlsoap.org/ws/2004/09/mex"
	NamespaceSOAP12      = "http://www.w3.org/2003/05/soap-envelope"
	NamespaceSOAP11      = "http://schemas.xmlsoap.org/soap/envelope/"
	defaultElementPrefix = "wsa"
)

// Version-independent sentinel URIs. An address built from either of these is
// pinned to it regardless of the dialect it is later written in.
const (
	AnonymousURI = "http://schemas.microsoft.com/2005/12/ServiceModel/Addressing/Anonymous"
	NoneURI      = "http://schemas.microsoft.com/2005/12/ServiceModel/Addressing/None"
)

// Element local names.
const (
	ElementAddress             = "Address"
	ElementReferenceParameters = "ReferenceParameters"
	ElementReferenceProperties = "ReferenceProperties"
	ElementMetadata            = "Metadata"
	ElementPortType            = "PortType"
	ElementServiceName         = "ServiceName"
	ElementEndpointReference   = "EndpointReference"
	AttrIsReferenceParameter   = "IsReferenceParameter"
)

// MetadataStyle describes how a dialect carries the metadata section.
type MetadataStyle uint8

const (
	// MetadataAbsent means the dialect has no metadata section.
	MetadataAbsent MetadataStyle = iota
	// MetadataWrapper means a dedicated wrapper element whose children form the section.
	MetadataWrapper
	// MetadataElement means a single recognized element among the extensions is the section.
	MetadataElement
)

// Version describes one addressing dialect.
type Version struct {
	name           string
	namespace      string
	anonymous      string
	none           string
	properties     bool
	legacyBlob     bool
	metadataStyle  MetadataStyle
	metadataName   xml.Name
	parameterMark  bool
	bareURI        bool
	elementsPrefix string
}

// Dialects. Built eagerly at package initialization.
var (
	WSAddressing10         = newWSAddressing10()
	WSAddressingAugust2004 = newWSAddressingAugust2004()
	None                   = newNone()
)

func newWSAddressing10() *Version {
	return &Version{
		name:           "1.0",
		namespace:      Namespace10,
		anonymous:      Namespace10 + "/anonymous",
		none:           Namespace10 + "/none",
		metadataStyle:  MetadataWrapper,
		metadataName:   xml.Name{Space: Namespace10, Local: ElementMetadata},
		parameterMark:  true,
		elementsPrefix: defaultElementPrefix,
	}
}

func newWSAddressingAugust2004() *Version {
	return &Version{
		name:           "2004/08",
		namespace:      NamespaceAugust2004,
		anonymous:      NamespaceAugust2004 + "/role/anonymous",
		properties:     true,
		legacyBlob:     true,
		metadataStyle:  MetadataElement,
		metadataName:   xml.Name{Space: NamespaceMex, Local: ElementMetadata},
		elementsPrefix: defaultElementPrefix,
	}
}

func newNone() *Version {
	return &Version{
		name:      "none",
		anonymous: AnonymousURI,
		none:      NoneURI,
		bareURI:   true,
	}
}

// Versions returns all supported dialects.
func Versions() []*Version {
	return []*Version{WSAddressing10, WSAddressingAugust2004, None}
}

// ParseVersion parses a dialect name.
//
// Accepted spellings: "1.0", "wsa10", "2005/08"; "2004/08", "august2004",
// "wsa2004"; "none".
func ParseVersion(s string) (*Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1.0", "wsa10", "2005/08", "wsaddressing10":
		return WSAddressing10, nil
	case "2004/08", "august2004", "wsa2004", "wsaddressingaugust2004":
		return WSAddressingAugust2004, nil
	case "none":
		return None, nil
	default:
		return nil, fmt.Errorf("%w: %q", fault.ErrUnsupportedDialect, s)
	}
}

// VersionForNamespace returns the dialect whose namespace is ns.
func VersionForNamespace(ns string) (*Version, error) {
	switch ns {
	case Namespace10:
		return WSAddressing10, nil
	case NamespaceAugust2004:
		return WSAddressingAugust2004, nil
	default:
		return nil, fmt.Errorf("%w: namespace %q", fault.ErrUnsupportedDialect, ns)
	}
}

// String returns the dialect name.
func (v *Version) String() string {
	if v == nil {
		return "unknown"
	}
	return v.name
}

// Namespace returns the dialect's addressing namespace (empty for None).
func (v *Version) Namespace() string { return v.namespace }

// AnonymousURI returns the URI this dialect writes for an anonymous address.
func (v *Version) AnonymousURI() string { return v.anonymous }

// NoneURI returns the URI this dialect writes for a none address.
// It is empty when the dialect cannot express "none".
func (v *Version) NoneURI() string { return v.none }

// CanExpressNone reports whether the dialect has a none URI.
func (v *Version) CanExpressNone() bool { return v.none != "" }

// HasReferenceProperties reports whether reference properties are distinct
// from reference parameters.
func (v *Version) HasReferenceProperties() bool { return v.properties }

// HasLegacyBlob reports whether the PortType/ServiceName/Policy block exists.
func (v *Version) HasLegacyBlob() bool { return v.legacyBlob }

// MetadataStyle returns how metadata is carried.
func (v *Version) MetadataStyle() MetadataStyle { return v.metadataStyle }

// MetadataName returns the metadata element name.
func (v *Version) MetadataName() xml.Name { return v.metadataName }

// MarksReferenceParameters reports whether reference parameters copied into a
// message carry the IsReferenceParameter attribute.
func (v *Version) MarksReferenceParameters() bool { return v.parameterMark }

// IsNone reports whether this is the bare-URI dialect.
func (v *Version) IsNone() bool { return v.bareURI }

// Prefix returns the prefix used when writing elements in the dialect namespace.
func (v *Version) Prefix() string { return v.elementsPrefix }

// Name returns a qualified element name in the dialect namespace.
func (v *Version) Name(local string) xml.Name {
	return xml.Name{Space: v.namespace, Local: local}
}

// IsElement reports whether name is local in the dialect namespace.
func (v *Version) IsElement(name xml.Name, local string) bool {
	return name.Space == v.namespace && name.Local == local
}

// IsPolicy reports whether name is an element of the policy namespace.
func IsPolicy(name xml.Name) bool {
	return name.Space == NamespacePolicy
}
