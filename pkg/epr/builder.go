package epr

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/header"
	"github.com/epr-protocol/epr-go/pkg/identity"
	"github.com/epr-protocol/epr-go/pkg/log"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// Builder stages the parts of an EndpointAddress. Sections taken from a
// source address are shared until they are replaced; replacing one buffers
// a new copy and leaves the source untouched.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	uri      *url.URL
	identity *identity.Identity
	headers  []*header.AddressHeader

	legacyBlob xmlbuf.Section
	metadata   xmlbuf.Section
	extensions xmlbuf.Section

	quotas xmlbuf.Quotas
	logger log.Logger
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{quotas: xmlbuf.DefaultQuotas()}
}

// NewBuilderFrom returns a builder holding a's parts.
func NewBuilderFrom(a *EndpointAddress) *Builder {
	return &Builder{
		uri:        a.URI(),
		identity:   a.identity,
		headers:    a.headers.All(),
		legacyBlob: a.legacyBlob,
		metadata:   a.metadata,
		extensions: a.extensions,
		quotas:     xmlbuf.DefaultQuotas(),
	}
}

// SetQuotas bounds sections buffered by SetMetadata and SetExtensions.
func (b *Builder) SetQuotas(q xmlbuf.Quotas) *Builder {
	b.quotas = q
	return b
}

// SetLogger sets the logger Freeze reports to.
func (b *Builder) SetLogger(l log.Logger) *Builder {
	b.logger = l
	return b
}

// SetURI sets the destination. The URI must be absolute.
func (b *Builder) SetURI(uri string) error {
	u, err := addressing.ParseAbsolute(uri)
	if err != nil {
		return err
	}
	b.uri = u
	return nil
}

// URI returns the staged destination, or nil.
func (b *Builder) URI() *url.URL {
	if b.uri == nil {
		return nil
	}
	u := *b.uri
	return &u
}

// SetIdentity sets or, with nil, clears the identity.
func (b *Builder) SetIdentity(id *identity.Identity) {
	b.identity = id
}

// Identity returns the staged identity.
func (b *Builder) Identity() *identity.Identity {
	return b.identity
}

// AddHeader appends a header.
func (b *Builder) AddHeader(h *header.AddressHeader) {
	if h != nil {
		b.headers = append(b.headers, h)
	}
}

// SetHeaders replaces all headers.
func (b *Builder) SetHeaders(hs ...*header.AddressHeader) {
	b.headers = append([]*header.AddressHeader(nil), hs...)
}

// Headers returns a copy of the staged headers.
func (b *Builder) Headers() []*header.AddressHeader {
	return append([]*header.AddressHeader(nil), b.headers...)
}

// SetMetadata buffers payload, a sequence of XML elements, as the metadata
// section. An empty payload clears it.
func (b *Builder) SetMetadata(payload []byte) error {
	s, err := b.buffer(payload)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	b.metadata = s
	return nil
}

// SetExtensions buffers payload, a sequence of XML elements, as the
// extensions section. An empty payload clears it. Elements in the target
// dialect's addressing namespace are rejected when the address is encoded.
func (b *Builder) SetExtensions(payload []byte) error {
	s, err := b.buffer(payload)
	if err != nil {
		return fmt.Errorf("extensions: %w", err)
	}
	b.extensions = s
	return nil
}

// SetMetadataSection shares an existing section as the metadata.
func (b *Builder) SetMetadataSection(s xmlbuf.Section) {
	b.metadata = s
}

// SetExtensionsSection shares an existing section as the extensions.
func (b *Builder) SetExtensionsSection(s xmlbuf.Section) {
	b.extensions = s
}

// MetadataReader returns a fresh reader over the staged metadata.
func (b *Builder) MetadataReader() (*xml.Decoder, error) {
	return b.metadata.Reader()
}

// ExtensionsReader returns a fresh reader over the staged extensions.
func (b *Builder) ExtensionsReader() (*xml.Decoder, error) {
	return b.extensions.Reader()
}

func (b *Builder) buffer(payload []byte) (xmlbuf.Section, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return xmlbuf.Section{}, nil
	}
	sections, err := xmlbuf.BufferFragments(b.quotas, payload)
	if err != nil {
		return xmlbuf.Section{}, err
	}
	return sections.Section(0), nil
}

// Freeze returns an immutable address built from the staged parts. Later
// changes to the builder do not affect it.
func (b *Builder) Freeze() (*EndpointAddress, error) {
	var (
		a   *EndpointAddress
		err error
	)
	if b.uri == nil {
		err = fault.Malformed("builder has no URI")
	} else {
		a, err = FromParts(Parts{
			URI:        b.URI(),
			Headers:    b.headers,
			Identity:   b.identity,
			LegacyBlob: b.legacyBlob,
			Metadata:   b.metadata,
			Extensions: b.extensions,
		})
	}
	(&Codec{Logger: b.logger}).record(log.OperationBuild, log.DirectionOut, nil, a, err)
	return a, err
}
