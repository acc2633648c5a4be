package epr

import (
	"encoding/xml"
	"fmt"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/header"
	"github.com/epr-protocol/epr-go/pkg/identity"
	"github.com/epr-protocol/epr-go/pkg/log"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// rootPrefix is used for a root element outside the dialect namespace.
const rootPrefix = "epr"

// metadataPrefix is used for the August-2004 mex Metadata element.
const metadataPrefix = "wsx"

// Encode writes a as an element named root in dialect v. A zero root
// selects RootName(v). Nothing is written when a cannot be expressed in v.
func (c *Codec) Encode(v *addressing.Version, enc *xml.Encoder, root xml.Name, a *EndpointAddress) error {
	err := c.encode(v, enc, root, a)
	c.record(log.OperationEncode, log.DirectionOut, v, a, err)
	return err
}

func (c *Codec) encode(v *addressing.Version, enc *xml.Encoder, root xml.Name, a *EndpointAddress) error {
	if v == nil {
		return fmt.Errorf("%w: no dialect", fault.ErrUnsupportedDialect)
	}
	if root.Local == "" {
		root = RootName(v)
	}
	if err := check(v, a); err != nil {
		return err
	}

	if v.IsNone() {
		return xmlbuf.WriteText(enc, root, addressText(v, a))
	}

	start := xml.StartElement{}
	switch root.Space {
	case "":
		start.Name = xml.Name{Local: root.Local}
	case v.Namespace():
		start.Name = xmlbuf.Prefixed(v.Prefix(), root.Local)
	default:
		start.Name = xmlbuf.Prefixed(rootPrefix, root.Local)
		start.Attr = append(start.Attr, xmlbuf.NamespaceAttr(rootPrefix, root.Space))
	}
	start.Attr = append(start.Attr, xmlbuf.NamespaceAttr(v.Prefix(), v.Namespace()))

	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := writeContents(v, enc, a); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

// WriteContentsTo writes a's child elements in dialect v without an
// enclosing element. The enclosing element must declare v.Prefix().
func (c *Codec) WriteContentsTo(v *addressing.Version, enc *xml.Encoder, a *EndpointAddress) error {
	if v == nil {
		return fmt.Errorf("%w: no dialect", fault.ErrUnsupportedDialect)
	}
	if err := check(v, a); err != nil {
		return err
	}
	if v.IsNone() {
		return enc.EncodeToken(xml.CharData(addressText(v, a)))
	}
	return writeContents(v, enc, a)
}

// check rejects addresses dialect v cannot express before anything is written.
func check(v *addressing.Version, a *EndpointAddress) error {
	if a == nil {
		return fault.Malformed("nil endpoint address")
	}
	if v.IsNone() {
		return nil
	}
	if a.none && !v.CanExpressNone() {
		return fault.Incompatible("the %s dialect cannot express the none address", v)
	}
	if !a.legacyBlob.IsZero() && !v.HasLegacyBlob() {
		return fault.Incompatible("the %s dialect has no PortType/ServiceName/Policy block", v)
	}
	if a.extensions.IsZero() {
		return nil
	}
	names, err := a.extensions.Elements()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := checkExtension(v, name); err != nil {
			return err
		}
	}
	return nil
}

func checkExtension(v *addressing.Version, name xml.Name) error {
	if name.Space == v.Namespace() {
		return fmt.Errorf("%w: <%s> in the %s addressing namespace", fault.ErrMisplacedExtension, name.Local, v)
	}
	return nil
}

// addressText returns the URI written for a in dialect v.
func addressText(v *addressing.Version, a *EndpointAddress) string {
	switch {
	case a.anonymous:
		return v.AnonymousURI()
	case a.none:
		return v.NoneURI()
	default:
		return a.uri.String()
	}
}

func writeContents(v *addressing.Version, enc *xml.Encoder, a *EndpointAddress) error {
	if err := xmlbuf.WriteText(enc, xmlbuf.Prefixed(v.Prefix(), addressing.ElementAddress), addressText(v, a)); err != nil {
		return err
	}

	var properties, parameters []*header.AddressHeader
	for _, h := range a.headers.All() {
		if v.HasReferenceProperties() && h.Role() == header.RoleProperty {
			properties = append(properties, h)
		} else {
			parameters = append(parameters, h)
		}
	}
	if err := writeHeaderBlock(v, enc, addressing.ElementReferenceProperties, properties); err != nil {
		return err
	}
	if err := writeHeaderBlock(v, enc, addressing.ElementReferenceParameters, parameters); err != nil {
		return err
	}

	if !a.legacyBlob.IsZero() {
		if err := a.legacyBlob.WriteContentTo(enc, nil); err != nil {
			return err
		}
	}

	if !a.metadata.IsZero() {
		if err := writeMetadata(v, enc, a.metadata); err != nil {
			return err
		}
	}

	if a.identity != nil {
		if err := identity.Write(enc, a.identity); err != nil {
			return err
		}
	}

	if !a.extensions.IsZero() {
		return a.extensions.WriteContentTo(enc, func(name xml.Name) error {
			return checkExtension(v, name)
		})
	}
	return nil
}

func writeHeaderBlock(v *addressing.Version, enc *xml.Encoder, local string, hs []*header.AddressHeader) error {
	if len(hs) == 0 {
		return nil
	}
	start := xml.StartElement{Name: xmlbuf.Prefixed(v.Prefix(), local)}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, h := range hs {
		if err := h.WriteTo(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func writeMetadata(v *addressing.Version, enc *xml.Encoder, s xmlbuf.Section) error {
	var start xml.StartElement
	switch v.MetadataStyle() {
	case addressing.MetadataWrapper:
		start = xml.StartElement{Name: xmlbuf.Prefixed(v.Prefix(), v.MetadataName().Local)}
	case addressing.MetadataElement:
		name := v.MetadataName()
		start = xml.StartElement{
			Name: xmlbuf.Prefixed(metadataPrefix, name.Local),
			Attr: []xml.Attr{xmlbuf.NamespaceAttr(metadataPrefix, name.Space)},
		}
	default:
		return nil
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := s.WriteContentTo(enc, nil); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}
