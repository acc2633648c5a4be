package epr

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/header"
	"github.com/epr-protocol/epr-go/pkg/identity"
	"github.com/epr-protocol/epr-go/pkg/log"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// Decode reads the endpoint reference whose element begins with start,
// consuming its end element. The element name itself is not checked, so
// the same call reads ReplyTo, FaultTo or any other EPR-typed element.
func (c *Codec) Decode(v *addressing.Version, dec *xml.Decoder, start xml.StartElement) (*EndpointAddress, error) {
	a, err := c.decode(v, dec, start)
	c.record(log.OperationDecode, log.DirectionIn, v, a, err)
	return a, err
}

func (c *Codec) decode(v *addressing.Version, dec *xml.Decoder, start xml.StartElement) (*EndpointAddress, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: no dialect", fault.ErrUnsupportedDialect)
	}
	if v.IsNone() {
		text, err := xmlbuf.ReadText(dec)
		if err != nil {
			return nil, err
		}
		u, err := resolveURI(v, text)
		if err != nil {
			return nil, err
		}
		return FromParts(Parts{URI: u})
	}

	d := &decoder{v: v, dec: dec, store: xmlbuf.NewStore(c.Quotas)}
	return d.run(start)
}

// decoder holds the state of one structured decode.
type decoder struct {
	v     *addressing.Version
	dec   *xml.Decoder
	store *xmlbuf.Store

	// current is the next unconsumed child; ok is false once the
	// enclosing end element has been consumed.
	current xml.StartElement
	ok      bool

	headers  []*header.AddressHeader
	identity *identity.Identity

	legacyIdx, metadataIdx, extensionsIdx int
}

func (d *decoder) advance() error {
	var err error
	d.current, d.ok, err = xmlbuf.NextElement(d.dec)
	return err
}

func (d *decoder) at(local string) bool {
	return d.ok && d.v.IsElement(d.current.Name, local)
}

func (d *decoder) run(start xml.StartElement) (*EndpointAddress, error) {
	d.legacyIdx, d.metadataIdx, d.extensionsIdx = -1, -1, -1

	if err := d.advance(); err != nil {
		return nil, err
	}
	if !d.at(addressing.ElementAddress) {
		return nil, fault.Malformed("<%s>: first child must be %s", start.Name.Local, addressing.ElementAddress)
	}
	text, err := xmlbuf.ReadText(d.dec)
	if err != nil {
		return nil, err
	}
	u, err := resolveURI(d.v, text)
	if err != nil {
		return nil, err
	}
	if err := d.advance(); err != nil {
		return nil, err
	}

	steps := []func() error{d.readHeaders, d.readLegacyBlob, d.readMetadataWrapper, d.readExtensions}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	if len(d.headers) == 0 && d.identity == nil &&
		d.legacyIdx < 0 && d.metadataIdx < 0 && d.extensionsIdx < 0 {
		switch u {
		case anonymousURL:
			return anonymousAddress, nil
		case noneURL:
			return noneAddress, nil
		}
	}

	sections, err := d.store.Seal()
	if err != nil {
		return nil, err
	}
	return FromParts(Parts{
		URI:        u,
		Headers:    d.headers,
		Identity:   d.identity,
		LegacyBlob: sections.Section(d.legacyIdx),
		Metadata:   sections.Section(d.metadataIdx),
		Extensions: sections.Section(d.extensionsIdx),
	})
}

// resolveURI maps the dialect's sentinel spellings to the canonical
// sentinels and parses everything else as an absolute URI.
func resolveURI(v *addressing.Version, text string) (*url.URL, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == addressing.AnonymousURI || text == v.AnonymousURI():
		return anonymousURL, nil
	case text == addressing.NoneURI || (v.CanExpressNone() && text == v.NoneURI()):
		return noneURL, nil
	}
	return addressing.ParseAbsolute(text)
}

func (d *decoder) readHeaders() error {
	if d.v.HasReferenceProperties() && d.at(addressing.ElementReferenceProperties) {
		if err := d.readHeaderBlock(header.RoleProperty); err != nil {
			return err
		}
	}
	if d.at(addressing.ElementReferenceParameters) {
		if err := d.readHeaderBlock(header.RoleParameter); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) readHeaderBlock(role header.Role) error {
	for {
		child, ok, err := xmlbuf.NextElement(d.dec)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		h, err := header.Read(d.dec, child, role)
		if err != nil {
			return err
		}
		d.headers = append(d.headers, h)
	}
	return d.advance()
}

// readLegacyBlob buffers PortType?, ServiceName?, Policy* in that order.
func (d *decoder) readLegacyBlob() error {
	if !d.v.HasLegacyBlob() {
		return nil
	}
	open := false
	take := func() error {
		if !open {
			if _, err := d.store.OpenSection(); err != nil {
				return err
			}
			open = true
		}
		if err := d.store.CopyElement(d.dec, d.current); err != nil {
			return err
		}
		return d.advance()
	}

	if d.at(addressing.ElementPortType) {
		if err := take(); err != nil {
			return err
		}
	}
	if d.at(addressing.ElementServiceName) {
		if err := take(); err != nil {
			return err
		}
	}
	for d.ok && addressing.IsPolicy(d.current.Name) {
		if err := take(); err != nil {
			return err
		}
	}
	if !open {
		return nil
	}
	idx, err := d.store.CloseSection()
	if err != nil {
		return err
	}
	d.legacyIdx = idx
	return nil
}

// readMetadataWrapper buffers the children of a 1.0 Metadata element.
func (d *decoder) readMetadataWrapper() error {
	if d.v.MetadataStyle() != addressing.MetadataWrapper || !d.ok || d.current.Name != d.v.MetadataName() {
		return nil
	}
	idx, err := d.bufferChildren(d.dec)
	if err != nil {
		return err
	}
	d.metadataIdx = idx
	return d.advance()
}

// bufferChildren copies every child of the element being read from src
// into a new section.
func (d *decoder) bufferChildren(src *xml.Decoder) (int, error) {
	if _, err := d.store.OpenSection(); err != nil {
		return 0, err
	}
	for {
		child, ok, err := xmlbuf.NextElement(src)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		if err := d.store.CopyElement(src, child); err != nil {
			return 0, err
		}
	}
	return d.store.CloseSection()
}

// readExtensions buffers the remaining children. Identity elements are
// decoded instead; an August-2004 metadata element is set aside and
// buffered as the metadata section once the extensions are closed.
func (d *decoder) readExtensions() error {
	var pendingMetadata *bytes.Buffer
	open := false

	for d.ok {
		name := d.current.Name
		switch {
		case identity.IsIdentityElement(name):
			if d.identity != nil {
				return fmt.Errorf("%w: more than one <%s> element", fault.ErrDuplicateIdentity, name.Local)
			}
			id, err := identity.Read(d.dec, d.current)
			if err != nil {
				return err
			}
			d.identity = id

		case d.v.MetadataStyle() == addressing.MetadataElement && name == d.v.MetadataName() && pendingMetadata == nil:
			pendingMetadata = &bytes.Buffer{}
			enc := xml.NewEncoder(pendingMetadata)
			if err := xmlbuf.CopyElement(enc, d.dec, d.current); err != nil {
				return err
			}
			if err := enc.Flush(); err != nil {
				return err
			}

		case name.Space == d.v.Namespace():
			return fmt.Errorf("%w: <%s> in the %s addressing namespace", fault.ErrMisplacedExtension, name.Local, d.v)

		default:
			if !open {
				if _, err := d.store.OpenSection(); err != nil {
					return err
				}
				open = true
			}
			if err := d.store.CopyElement(d.dec, d.current); err != nil {
				return err
			}
		}
		if err := d.advance(); err != nil {
			return err
		}
	}

	if open {
		idx, err := d.store.CloseSection()
		if err != nil {
			return err
		}
		d.extensionsIdx = idx
	}
	if pendingMetadata != nil {
		src := xml.NewDecoder(pendingMetadata)
		if _, err := xmlbuf.FirstElement(src); err != nil {
			return err
		}
		idx, err := d.bufferChildren(src)
		if err != nil {
			return err
		}
		d.metadataIdx = idx
	}
	return nil
}
