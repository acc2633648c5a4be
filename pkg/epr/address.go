package epr

import (
	"encoding/xml"
	"net/url"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/header"
	"github.com/epr-protocol/epr-go/pkg/identity"
	"github.com/epr-protocol/epr-go/pkg/message"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// Sentinel URIs and canonical addresses, built at package initialization.
var (
	anonymousURL = addressing.MustParseAbsolute(addressing.AnonymousURI)
	noneURL      = addressing.MustParseAbsolute(addressing.NoneURI)
	emptyHeaders = header.NewCollection()

	anonymousAddress = &EndpointAddress{uri: anonymousURL, anonymous: true, headers: emptyHeaders}
	noneAddress      = &EndpointAddress{uri: noneURL, none: true, headers: emptyHeaders}
)

// EndpointAddress is an immutable endpoint reference.
type EndpointAddress struct {
	uri       *url.URL
	anonymous bool
	none      bool

	headers  *header.Collection
	identity *identity.Identity

	legacyBlob xmlbuf.Section
	metadata   xmlbuf.Section
	extensions xmlbuf.Section
}

// Parts are the components an address is assembled from.
type Parts struct {
	URI        *url.URL
	Headers    []*header.AddressHeader
	Identity   *identity.Identity
	LegacyBlob xmlbuf.Section
	Metadata   xmlbuf.Section
	Extensions xmlbuf.Section
}

// Anonymous returns the canonical anonymous address.
func Anonymous() *EndpointAddress { return anonymousAddress }

// NoneAddress returns the canonical none address.
func NoneAddress() *EndpointAddress { return noneAddress }

// New returns an address for an absolute URI.
func New(uri string, headers ...*header.AddressHeader) (*EndpointAddress, error) {
	return NewWithIdentity(uri, nil, headers...)
}

// NewWithIdentity returns an address for an absolute URI with an identity.
func NewWithIdentity(uri string, id *identity.Identity, headers ...*header.AddressHeader) (*EndpointAddress, error) {
	u, err := addressing.ParseAbsolute(uri)
	if err != nil {
		return nil, err
	}
	return FromParts(Parts{URI: u, Headers: headers, Identity: id})
}

// MustNew is like New but panics on error.
func MustNew(uri string, headers ...*header.AddressHeader) *EndpointAddress {
	a, err := New(uri, headers...)
	if err != nil {
		panic(err)
	}
	return a
}

// FromParts assembles an address. An anonymous or none URI pins the
// address to the corresponding sentinel.
func FromParts(p Parts) (*EndpointAddress, error) {
	if p.URI == nil || !p.URI.IsAbs() {
		return nil, fault.Malformed("endpoint address requires an absolute URI")
	}
	a := &EndpointAddress{
		uri:        p.URI,
		headers:    header.NewCollection(p.Headers...),
		identity:   p.Identity,
		legacyBlob: p.LegacyBlob,
		metadata:   p.Metadata,
		extensions: p.Extensions,
	}
	a.pin()
	return a, nil
}

// Parts returns the address's components. Sections are shared.
func (a *EndpointAddress) Parts() Parts {
	return Parts{
		URI:        a.URI(),
		Headers:    a.headers.All(),
		Identity:   a.identity,
		LegacyBlob: a.legacyBlob,
		Metadata:   a.metadata,
		Extensions: a.extensions,
	}
}

func (a *EndpointAddress) pin() {
	switch a.uri.String() {
	case addressing.AnonymousURI:
		a.uri, a.anonymous = anonymousURL, true
	case addressing.NoneURI:
		a.uri, a.none = noneURL, true
	}
}

// URI returns a copy of the destination URI.
func (a *EndpointAddress) URI() *url.URL {
	u := *a.uri
	return &u
}

// String returns the destination URI.
func (a *EndpointAddress) String() string {
	return a.uri.String()
}

// IsAnonymous reports whether replies go back on the same logical channel.
func (a *EndpointAddress) IsAnonymous() bool { return a.anonymous }

// IsNone reports whether no reply is expected.
func (a *EndpointAddress) IsNone() bool { return a.none }

// Headers returns the address headers.
func (a *EndpointAddress) Headers() *header.Collection { return a.headers }

// Identity returns the endpoint identity, or nil.
func (a *EndpointAddress) Identity() *identity.Identity { return a.identity }

// LegacyBlob returns the August-2004 PortType/ServiceName/Policy section.
func (a *EndpointAddress) LegacyBlob() xmlbuf.Section { return a.legacyBlob }

// Metadata returns the metadata section.
func (a *EndpointAddress) Metadata() xmlbuf.Section { return a.metadata }

// Extensions returns the extensions section.
func (a *EndpointAddress) Extensions() xmlbuf.Section { return a.extensions }

// WithURI returns an address for another URI that shares a's headers,
// identity and sections.
func (a *EndpointAddress) WithURI(uri string) (*EndpointAddress, error) {
	u, err := addressing.ParseAbsolute(uri)
	if err != nil {
		return nil, err
	}
	b := &EndpointAddress{
		uri:        u,
		headers:    a.headers,
		identity:   a.identity,
		legacyBlob: a.legacyBlob,
		metadata:   a.metadata,
		extensions: a.extensions,
	}
	b.pin()
	return b, nil
}

// EndpointEquals reports whether a and b address the same endpoint: same
// normalized URI, same headers in any order, and equal identities. Opaque
// sections are ignored. Comparing identities without a comparer fails with
// fault.ErrUnsupportedComparison.
func (a *EndpointAddress) EndpointEquals(b *EndpointAddress) (bool, error) {
	if a == nil || b == nil {
		return a == b, nil
	}
	if a == b {
		return true, nil
	}
	if !addressing.URIEqual(a.uri, b.uri) {
		return false, nil
	}
	if !a.headers.Equal(b.headers) {
		return false, nil
	}
	return identity.Equal(a.identity, b.identity)
}

// Hash returns a hash consistent with EndpointEquals.
func (a *EndpointAddress) Hash() uint32 {
	return addressing.URIHash(a.uri)*31 + a.headers.Hash()
}

// ApplyTo sets the message's destination from a and copies a's headers
// onto it.
func (a *EndpointAddress) ApplyTo(h *message.Headers) error {
	return defaultCodec.ApplyTo(a, h)
}

// WriteContentsTo writes a's child elements in dialect v, without an
// enclosing element. The enclosing element must declare v's prefix.
func (a *EndpointAddress) WriteContentsTo(v *addressing.Version, enc *xml.Encoder) error {
	return defaultCodec.WriteContentsTo(v, enc, a)
}
