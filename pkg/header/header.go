// Package header models endpoint address headers: the reference parameters
// (and, in the August-2004 dialect, reference properties) an address carries
// and that are copied onto every message sent to it.
//
// A header keeps its element in canonical serialized form, so arbitrary XML
// content survives decoding and re-encoding unchanged. Equality compares the
// qualified name and the XML content, ignoring namespace prefixes, attribute
// order and whitespace between elements; the role never takes part.
package header

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"slices"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// Role is the wire role of a header.
type Role uint8

const (
	// RoleParameter is a reference parameter.
	RoleParameter Role = iota
	// RoleProperty is an August-2004 reference property.
	RoleProperty
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleParameter:
		return "parameter"
	case RoleProperty:
		return "property"
	default:
		return "unknown"
	}
}

// referenceParameterMarker is dropped when a header is read from a message.
var referenceParameterMarker = xml.Name{Space: addressing.Namespace10, Local: addressing.AttrIsReferenceParameter}

// AddressHeader is an immutable address header.
type AddressHeader struct {
	name xml.Name
	raw  []byte
	role Role

	// key is the comparison form of raw.
	key []byte
}

func newHeader(name xml.Name, raw []byte, role Role) *AddressHeader {
	return &AddressHeader{name: name, raw: raw, role: role, key: comparisonKey(raw)}
}

// New returns a reference parameter with a text value.
func New(name, namespace, value string) *AddressHeader {
	return NewWithRole(name, namespace, value, RoleParameter)
}

// NewWithRole returns a header with a text value and the given role.
func NewWithRole(name, namespace, value string, role Role) *AddressHeader {
	qname := xml.Name{Space: namespace, Local: name}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	// Writing to a bytes.Buffer cannot fail for a non-empty name.
	_ = xmlbuf.WriteText(enc, qname, value)
	_ = enc.Flush()
	return newHeader(qname, buf.Bytes(), role)
}

// Read reads the header element that begins with start.
func Read(dec *xml.Decoder, start xml.StartElement, role Role) (*AddressHeader, error) {
	attrs := make([]xml.Attr, 0, len(start.Attr))
	for _, a := range start.Attr {
		if a.Name == referenceParameterMarker {
			continue
		}
		attrs = append(attrs, a)
	}
	start.Attr = attrs

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := xmlbuf.CopyElement(enc, dec, start); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return newHeader(start.Name, buf.Bytes(), role), nil
}

// FromRaw parses a serialized header element.
func FromRaw(raw []byte, role Role) (*AddressHeader, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	start, err := xmlbuf.FirstElement(dec)
	if err != nil {
		return nil, err
	}
	h, err := Read(dec, start, role)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err == nil {
		return nil, fault.Malformed("trailing content after header <%s>", start.Name.Local)
	}
	return h, nil
}

// Name returns the header's local name.
func (h *AddressHeader) Name() string { return h.name.Local }

// Namespace returns the header's namespace.
func (h *AddressHeader) Namespace() string { return h.name.Space }

// QName returns the header's qualified name.
func (h *AddressHeader) QName() xml.Name { return h.name }

// Role returns the header's wire role.
func (h *AddressHeader) Role() Role { return h.role }

// WithRole returns a copy of h with a different role.
func (h *AddressHeader) WithRole(r Role) *AddressHeader {
	if h.role == r {
		return h
	}
	return &AddressHeader{name: h.name, raw: h.raw, role: r, key: h.key}
}

// Raw returns the canonical serialized element.
func (h *AddressHeader) Raw() []byte {
	return bytes.Clone(h.raw)
}

// Value returns the concatenated text content of the header.
func (h *AddressHeader) Value() string {
	dec := xml.NewDecoder(bytes.NewReader(h.raw))
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return b.String()
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
}

// Equal reports whether h and o have the same name and equivalent content.
func (h *AddressHeader) Equal(o *AddressHeader) bool {
	if h == nil || o == nil {
		return h == o
	}
	return h.name == o.name && bytes.Equal(h.key, o.key)
}

// Hash returns a hash consistent with Equal.
func (h *AddressHeader) Hash() uint32 {
	return murmur3.Sum32(h.key)
}

// comparisonKey renders raw with resolved names, attributes sorted by
// namespace and local name, namespace declarations and comments dropped,
// and whitespace-only text dropped unless it is an element's only content.
func comparisonKey(raw []byte) []byte {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var toks []xml.Token
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement, xml.EndElement:
			toks = append(toks, xml.CopyToken(t))
		case xml.CharData:
			if n := len(toks); n > 0 {
				if prev, ok := toks[n-1].(xml.CharData); ok {
					toks[n-1] = append(prev, t...)
					continue
				}
			}
			toks = append(toks, t.Copy())
		}
	}

	var b bytes.Buffer
	for i, tok := range toks {
		switch t := tok.(type) {
		case xml.StartElement:
			b.WriteString("<{")
			b.WriteString(t.Name.Space)
			b.WriteByte('}')
			b.WriteString(t.Name.Local)
			attrs := xmlbuf.CleanAttrs(t.Attr)
			slices.SortFunc(attrs, func(x, y xml.Attr) int {
				return cmp.Or(cmp.Compare(x.Name.Space, y.Name.Space), cmp.Compare(x.Name.Local, y.Name.Local))
			})
			for _, a := range attrs {
				b.WriteString(" {")
				b.WriteString(a.Name.Space)
				b.WriteByte('}')
				b.WriteString(a.Name.Local)
				b.WriteString(`="`)
				_ = xml.EscapeText(&b, []byte(a.Value))
				b.WriteByte('"')
			}
			b.WriteByte('>')
		case xml.EndElement:
			b.WriteString("</>")
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 && !onlyContent(toks, i) {
				continue
			}
			_ = xml.EscapeText(&b, t)
		}
	}
	return b.Bytes()
}

// onlyContent reports whether toks[i] sits directly between a start element
// and its end element.
func onlyContent(toks []xml.Token, i int) bool {
	if i == 0 || i+1 >= len(toks) {
		return false
	}
	_, afterStart := toks[i-1].(xml.StartElement)
	_, beforeEnd := toks[i+1].(xml.EndElement)
	return afterStart && beforeEnd
}

// WriteTo writes the header element to enc, adding extra attributes to it.
func (h *AddressHeader) WriteTo(enc *xml.Encoder, extra ...xml.Attr) error {
	dec := xml.NewDecoder(bytes.NewReader(h.raw))
	start, err := xmlbuf.FirstElement(dec)
	if err != nil {
		return err
	}
	return xmlbuf.CopyElementWith(enc, dec, start, extra...)
}

// String returns the canonical serialized element.
func (h *AddressHeader) String() string {
	return string(h.raw)
}
