// Package message holds the addressing headers of an outgoing SOAP message:
// the destination an endpoint address is applied to and the reference
// parameters it contributes.
package message

import (
	"encoding/xml"
	"net/url"

	"github.com/google/uuid"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/header"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// Header element names.
const (
	ElementHeader    = "Header"
	ElementTo        = "To"
	ElementAction    = "Action"
	ElementMessageID = "MessageID"
	ElementRelatesTo = "RelatesTo"
	ElementReplyTo   = "ReplyTo"
)

const soapPrefix = "s"

// Endpoint is an address that can write its contents under a header
// element such as ReplyTo.
type Endpoint interface {
	WriteContentsTo(v *addressing.Version, enc *xml.Encoder) error
}

// Headers are the addressing headers of one outgoing message.
type Headers struct {
	// Version is the message's addressing dialect.
	Version *addressing.Version

	// To is the destination header. Nil means absent.
	To *url.URL

	// Via is the physical destination the transport should use.
	// It is never written as a header.
	Via *url.URL

	Action    string
	MessageID string
	RelatesTo string

	// ReplyTo, when set, is written as a ReplyTo header.
	ReplyTo Endpoint

	params []*header.AddressHeader
}

// NewHeaders returns headers for dialect v with a fresh message ID.
func NewHeaders(v *addressing.Version, action string) *Headers {
	return &Headers{
		Version:   v,
		Action:    action,
		MessageID: NewMessageID(),
	}
}

// NewMessageID returns a urn:uuid message identifier.
func NewMessageID() string {
	return "urn:uuid:" + uuid.NewString()
}

// SetTo sets the destination header.
func (h *Headers) SetTo(u *url.URL) {
	h.To = u
}

// ClearTo removes the destination header. In WS-Addressing 1.0 an absent
// To means the anonymous endpoint.
func (h *Headers) ClearTo() {
	h.To = nil
}

// HasTo reports whether the destination header is present.
func (h *Headers) HasTo() bool {
	return h.To != nil
}

// AddReferenceParameter appends an address header to the message.
func (h *Headers) AddReferenceParameter(p *header.AddressHeader) {
	if p != nil {
		h.params = append(h.params, p)
	}
}

// ReferenceParameters returns the address headers added to the message.
func (h *Headers) ReferenceParameters() []*header.AddressHeader {
	return append([]*header.AddressHeader(nil), h.params...)
}

// Encode writes a SOAP 1.2 Header element carrying the addressing headers.
// The None dialect writes only the reference parameters.
func (h *Headers) Encode(enc *xml.Encoder) error {
	v := h.Version
	if v == nil {
		v = addressing.None
	}

	start := xml.StartElement{
		Name: xmlbuf.Prefixed(soapPrefix, ElementHeader),
		Attr: []xml.Attr{xmlbuf.NamespaceAttr(soapPrefix, addressing.NamespaceSOAP12)},
	}
	if !v.IsNone() {
		start.Attr = append(start.Attr, xmlbuf.NamespaceAttr(v.Prefix(), v.Namespace()))
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	if !v.IsNone() {
		if err := h.encodeAddressing(v, enc); err != nil {
			return err
		}
	}

	var marker []xml.Attr
	if v.MarksReferenceParameters() {
		marker = []xml.Attr{{
			Name:  xmlbuf.Prefixed(v.Prefix(), addressing.AttrIsReferenceParameter),
			Value: "true",
		}}
	}
	for _, p := range h.params {
		if err := p.WriteTo(enc, marker...); err != nil {
			return err
		}
	}

	if err := enc.EncodeToken(start.End()); err != nil {
		return err
	}
	return enc.Flush()
}

func (h *Headers) encodeAddressing(v *addressing.Version, enc *xml.Encoder) error {
	text := func(local, value string) error {
		if value == "" {
			return nil
		}
		return xmlbuf.WriteText(enc, xmlbuf.Prefixed(v.Prefix(), local), value)
	}

	if err := text(ElementAction, h.Action); err != nil {
		return err
	}
	if err := text(ElementMessageID, h.MessageID); err != nil {
		return err
	}
	if err := text(ElementRelatesTo, h.RelatesTo); err != nil {
		return err
	}
	if h.To != nil {
		if err := text(ElementTo, h.To.String()); err != nil {
			return err
		}
	}
	if h.ReplyTo != nil {
		name := xmlbuf.Prefixed(v.Prefix(), ElementReplyTo)
		if err := enc.EncodeToken(xml.StartElement{Name: name}); err != nil {
			return err
		}
		if err := h.ReplyTo.WriteContentsTo(v, enc); err != nil {
			return err
		}
		if err := enc.EncodeToken(xml.EndElement{Name: name}); err != nil {
			return err
		}
	}
	return nil
}
