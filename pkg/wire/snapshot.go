package wire

import (
	"crypto/x509"
	"fmt"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/cert"
	"github.com/epr-protocol/epr-go/pkg/epr"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/header"
	"github.com/epr-protocol/epr-go/pkg/identity"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// FormatVersion is the snapshot format written by this package.
const FormatVersion uint8 = 1

// SectionKind identifies an opaque section in a snapshot.
type SectionKind uint8

const (
	SectionMetadata   SectionKind = 0
	SectionExtensions SectionKind = 1
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

// sectionOrder is the order sections are buffered in on decode.
var sectionOrder = []SectionKind{SectionLegacyBlob, SectionMetadata, SectionExtensions}

// Snapshot is the dialect-independent form of an endpoint address.
type Snapshot struct {
	// Format is the snapshot format version.
	Format uint8 `cbor:"1,keyasint"`

	// URI is the destination, sentinels included.
	URI string `cbor:"2,keyasint"`

	// Headers in address order.
	Headers []HeaderSnapshot `cbor:"3,keyasint,omitempty"`

	// Identity, if any.
	Identity *IdentitySnapshot `cbor:"4,keyasint,omitempty"`

	// Sections maps each present section to its serialized content.
	Sections map[SectionKind][]byte `cbor:"5,keyasint,omitempty"`
}

// HeaderSnapshot is one address header.
type HeaderSnapshot struct {
	Role header.Role `cbor:"1,keyasint"`

	// Element is the canonical serialized header element.
	Element []byte `cbor:"2,keyasint"`
}

// IdentitySnapshot is an endpoint identity.
type IdentitySnapshot struct {
	Kind identity.Kind `cbor:"1,keyasint"`

	// Value is the name for DNS/SPN/UPN and the claim resource for
	// generic claims.
	Value string `cbor:"2,keyasint,omitempty"`

	// Certificates are DER certificates, primary first.
	Certificates [][]byte `cbor:"3,keyasint,omitempty"`

	ClaimType string `cbor:"4,keyasint,omitempty"`
	Right     string `cbor:"5,keyasint,omitempty"`
}

// Validate checks the snapshot's structure.
func (s *Snapshot) Validate() error {
	if s.Format != FormatVersion {
		return fault.Malformed("unsupported snapshot format %d", s.Format)
	}
	if s.URI == "" {
		return fault.Malformed("snapshot has no URI")
	}
	for i, h := range s.Headers {
		if len(h.Element) == 0 {
			return fault.Malformed("header %d is empty", i)
		}
		if h.Role > header.RoleProperty {
			return fault.Malformed("header %d has unknown role %d", i, h.Role)
		}
	}
	for kind := range s.Sections {
		if kind > SectionLegacyBlob {
			return fault.Malformed("unknown section kind %d", kind)
		}
	}
	if s.Identity != nil {
		return s.Identity.validate()
	}
	return nil
}

func (s *IdentitySnapshot) validate() error {
	switch s.Kind {
	case identity.KindDNS, identity.KindSPN, identity.KindUPN:
		if s.Value == "" {
			return fault.Malformed("%s identity has no value", s.Kind)
		}
	case identity.KindX509:
		if len(s.Certificates) == 0 {
			return fault.Malformed("x509 identity has no certificates")
		}
	case identity.KindClaim:
		if s.ClaimType == "" {
			return fault.Malformed("claim identity has no claim type")
		}
	default:
		return fault.Malformed("unknown identity kind %d", s.Kind)
	}
	return nil
}

// SnapshotOf captures a.
func SnapshotOf(a *epr.EndpointAddress) (*Snapshot, error) {
	if a == nil {
		return nil, fault.Malformed("nil endpoint address")
	}
	s := &Snapshot{Format: FormatVersion, URI: a.String()}

	for _, h := range a.Headers().All() {
		s.Headers = append(s.Headers, HeaderSnapshot{Role: h.Role(), Element: h.Raw()})
	}

	if id := a.Identity(); id != nil {
		is, err := snapshotIdentity(id)
		if err != nil {
			return nil, err
		}
		s.Identity = is
	}

	sections := map[SectionKind]xmlbuf.Section{
		SectionLegacyBlob: a.LegacyBlob(),
		SectionMetadata:   a.Metadata(),
		SectionExtensions: a.Extensions(),
	}
	for kind, section := range sections {
		if section.IsZero() {
			continue
		}
		payload, err := section.Payload()
		if err != nil {
			return nil, fmt.Errorf("%s section: %w", kind, err)
		}
		if s.Sections == nil {
			s.Sections = make(map[SectionKind][]byte)
		}
		s.Sections[kind] = payload
	}
	return s, nil
}

func snapshotIdentity(id *identity.Identity) (*IdentitySnapshot, error) {
	is := &IdentitySnapshot{Kind: id.Kind()}
	switch id.Kind() {
	case identity.KindDNS, identity.KindSPN, identity.KindUPN:
		is.Value = id.Value()
	case identity.KindX509:
		for _, c := range id.Certificates() {
			is.Certificates = append(is.Certificates, c.Raw)
		}
	case identity.KindClaim:
		c := id.Claim()
		value, ok := c.Resource.(string)
		if !ok {
			return nil, fault.Malformed("claim resource of type %T cannot be snapshotted", c.Resource)
		}
		is.Value, is.ClaimType, is.Right = value, c.Type, c.Right
	}
	return is, nil
}

// Restore rebuilds the address. Sections are buffered under q.
func (s *Snapshot) Restore(q xmlbuf.Quotas) (*epr.EndpointAddress, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	u, err := addressing.ParseAbsolute(s.URI)
	if err != nil {
		return nil, err
	}
	parts := epr.Parts{URI: u}

	for _, hs := range s.Headers {
		h, err := header.FromRaw(hs.Element, hs.Role)
		if err != nil {
			return nil, err
		}
		parts.Headers = append(parts.Headers, h)
	}

	if s.Identity != nil {
		id, err := s.Identity.restore()
		if err != nil {
			return nil, err
		}
		parts.Identity = id
	}

	var (
		kinds    []SectionKind
		payloads [][]byte
	)
	for _, kind := range sectionOrder {
		if payload, ok := s.Sections[kind]; ok {
			kinds = append(kinds, kind)
			payloads = append(payloads, payload)
		}
	}
	if len(kinds) > 0 {
		sections, err := xmlbuf.BufferFragments(q, payloads...)
		if err != nil {
			return nil, err
		}
		for i, kind := range kinds {
			switch kind {
			case SectionLegacyBlob:
				parts.LegacyBlob = sections.Section(i)
			case SectionMetadata:
				parts.Metadata = sections.Section(i)
			case SectionExtensions:
				parts.Extensions = sections.Section(i)
			}
		}
	}
	return epr.FromParts(parts)
}

func (s *IdentitySnapshot) restore() (*identity.Identity, error) {
	switch s.Kind {
	case identity.KindDNS:
		return identity.NewDNS(s.Value), nil
	case identity.KindSPN:
		return identity.NewSPN(s.Value), nil
	case identity.KindUPN:
		return identity.NewUPN(s.Value), nil
	case identity.KindX509:
		certs := make([]*x509.Certificate, 0, len(s.Certificates))
		for _, der := range s.Certificates {
			c, err := cert.ParseDER(der)
			if err != nil {
				return nil, fault.Malformed("identity certificate: %v", err)
			}
			certs = append(certs, c)
		}
		return identity.NewX509(certs[0], certs[1:]...), nil
	default:
		c := identity.Claim{Type: s.ClaimType, Right: s.Right, Resource: s.Value}
		return identity.NewClaim(c, nil), nil
	}
}

// EncodeAddress encodes a as a CBOR snapshot.
func EncodeAddress(a *epr.EndpointAddress) ([]byte, error) {
	s, err := SnapshotOf(a)
	if err != nil {
		return nil, err
	}
	return Marshal(s)
}

// DecodeAddress decodes a CBOR snapshot.
func DecodeAddress(data []byte, q xmlbuf.Quotas) (*epr.EndpointAddress, error) {
	var s Snapshot
	if err := Unmarshal(data, &s); err != nil {
		return nil, fault.Malformed("failed to decode snapshot: %v", err)
	}
	return s.Restore(q)
}
