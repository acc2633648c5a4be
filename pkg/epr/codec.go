package epr

import (
	"bytes"
	"encoding/xml"
	"time"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/log"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// Codec reads and writes endpoint references. The zero value applies no
// quotas and no logging; the package-level functions use
// xmlbuf.DefaultQuotas. A Codec is safe for concurrent use.
type Codec struct {
	// Quotas bound the sections buffered while decoding. A zero field is
	// unlimited.
	Quotas xmlbuf.Quotas

	// Logger receives one event per operation. Nil disables logging.
	Logger log.Logger
}

var defaultCodec = &Codec{Quotas: xmlbuf.DefaultQuotas()}

// NewCodec returns a codec with the given quotas and logger.
func NewCodec(q xmlbuf.Quotas, logger log.Logger) *Codec {
	return &Codec{Quotas: q, Logger: logger}
}

// RootName returns the default document element for dialect v.
func RootName(v *addressing.Version) xml.Name {
	if v.IsNone() {
		return xml.Name{Local: addressing.ElementEndpointReference}
	}
	return v.Name(addressing.ElementEndpointReference)
}

// DecodeBytes decodes a complete endpoint reference document.
func (c *Codec) DecodeBytes(v *addressing.Version, data []byte) (*EndpointAddress, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	start, err := xmlbuf.FirstElement(dec)
	if err != nil {
		c.record(log.OperationDecode, log.DirectionIn, v, nil, err)
		return nil, err
	}
	a, err := c.Decode(v, dec, start)
	if err != nil {
		return nil, err
	}
	if err := xmlbuf.ExpectEnd(dec); err != nil {
		return nil, err
	}
	return a, nil
}

// EncodeBytes encodes a as a document rooted at RootName(v).
func (c *Codec) EncodeBytes(v *addressing.Version, a *EndpointAddress) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := c.Encode(v, enc, xml.Name{}, a); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an endpoint reference document with the default codec.
func Unmarshal(v *addressing.Version, data []byte) (*EndpointAddress, error) {
	return defaultCodec.DecodeBytes(v, data)
}

// Marshal encodes an endpoint reference document with the default codec.
func Marshal(v *addressing.Version, a *EndpointAddress) ([]byte, error) {
	return defaultCodec.EncodeBytes(v, a)
}

// ReadFrom decodes the element that begins with start with the default codec.
func ReadFrom(v *addressing.Version, dec *xml.Decoder, start xml.StartElement) (*EndpointAddress, error) {
	return defaultCodec.Decode(v, dec, start)
}

// WriteTo encodes a under root with the default codec.
func WriteTo(v *addressing.Version, enc *xml.Encoder, root xml.Name, a *EndpointAddress) error {
	return defaultCodec.Encode(v, enc, root, a)
}

func (c *Codec) record(op log.Operation, dir log.Direction, v *addressing.Version, a *EndpointAddress, err error) {
	logger := log.OrNoop(c.Logger)
	if _, ok := logger.(log.NoopLogger); ok {
		return
	}
	logger.Log(newEvent(op, dir, v, a, err))
}

func newEvent(op log.Operation, dir log.Direction, v *addressing.Version, a *EndpointAddress, err error) log.Event {
	event := log.Event{
		Timestamp: time.Now(),
		Operation: op,
		Direction: dir,
	}
	if v != nil {
		event.Dialect = v.String()
	}
	if a != nil {
		event.Address = a.String()
		event.HeaderCount = a.headers.Len()
		if a.identity != nil {
			event.IdentityKind = a.identity.Kind().String()
		}
		event.Sections = a.sectionInfos()
	}
	if err != nil {
		event.Error = &log.ErrorEventData{
			Kind:    fault.KindOf(err).String(),
			Message: err.Error(),
		}
	}
	return event
}

func (a *EndpointAddress) sectionInfos() []log.SectionInfo {
	var infos []log.SectionInfo
	add := func(kind log.SectionKind, s xmlbuf.Section) {
		if s.IsZero() {
			return
		}
		fp := s.Fingerprint()
		infos = append(infos, log.SectionInfo{Kind: kind, Size: s.Size(), Fingerprint: fp[:]})
	}
	add(log.SectionLegacyBlob, a.legacyBlob)
	add(log.SectionMetadata, a.metadata)
	add(log.SectionExtensions, a.extensions)
	return infos
}
