package xmlbuf

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/epr-protocol/epr-go/pkg/fault"
)

// WrapperName is the local name of the synthetic element around every section.
const WrapperName = "Section"

// Store state errors.
var (
	ErrSectionOpen   = errors.New("xmlbuf: a section is already open")
	ErrNoSectionOpen = errors.New("xmlbuf: no section is open")
	ErrSealed        = errors.New("xmlbuf: store is sealed")
)

// Quotas bound the resources a store may consume.
type Quotas struct {
	// MaxBufferSize is the maximum number of bytes across all sections.
	// Zero means unlimited.
	MaxBufferSize int

	// MaxDepth is the maximum element nesting depth copied into a section.
	// Zero means unlimited.
	MaxDepth int
}

// DefaultQuotas returns the quotas used when none are configured.
func DefaultQuotas() Quotas {
	return Quotas{
		MaxBufferSize: 64 * 1024,
		MaxDepth:      32,
	}
}

type storeState uint8

const (
	stateCreated storeState = iota
	stateWriting
	stateReading
)

type span struct {
	offset int
	length int
}

// Store accumulates sections. It is not safe for concurrent use.
type Store struct {
	quotas   Quotas
	buf      bytes.Buffer
	enc      *xml.Encoder
	sections []span
	start    int
	open     bool
	state    storeState
}

// NewStore creates an empty store bounded by q.
func NewStore(q Quotas) *Store {
	return &Store{quotas: q}
}

// Quotas returns the store's quotas.
func (s *Store) Quotas() Quotas {
	return s.quotas
}

// OpenSection begins a new section and returns the encoder to write it with.
// The encoder is only valid until CloseSection.
func (s *Store) OpenSection() (*xml.Encoder, error) {
	if s.state == stateReading {
		return nil, ErrSealed
	}
	if s.open {
		return nil, ErrSectionOpen
	}

	s.state = stateWriting
	s.open = true
	s.start = s.buf.Len()
	s.enc = xml.NewEncoder(&limitWriter{buf: &s.buf, max: s.quotas.MaxBufferSize})
	if err := s.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: WrapperName}}); err != nil {
		s.abort()
		return nil, err
	}
	return s.enc, nil
}

// CopyElement copies the element that begins with start from src into the
// open section, honoring MaxDepth.
func (s *Store) CopyElement(src *xml.Decoder, start xml.StartElement) error {
	if !s.open {
		return ErrNoSectionOpen
	}
	return copyElement(s.enc, src, start, "", s.quotas.MaxDepth, nil)
}

// CloseSection finalizes the open section and returns its index.
func (s *Store) CloseSection() (int, error) {
	if !s.open {
		return 0, ErrNoSectionOpen
	}
	if err := s.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: WrapperName}}); err != nil {
		s.abort()
		return 0, fmt.Errorf("close section: %w", err)
	}
	if err := s.enc.Flush(); err != nil {
		s.abort()
		return 0, err
	}

	s.sections = append(s.sections, span{offset: s.start, length: s.buf.Len() - s.start})
	s.open = false
	s.enc = nil
	return len(s.sections) - 1, nil
}

// abort discards the open section.
func (s *Store) abort() {
	s.buf.Truncate(s.start)
	s.open = false
	s.enc = nil
}

// Seal forbids further writes and returns the readable sections.
func (s *Store) Seal() (*Sections, error) {
	if s.state == stateReading {
		return nil, ErrSealed
	}
	if s.open {
		return nil, ErrSectionOpen
	}
	s.state = stateReading
	return &Sections{
		data:  bytes.Clone(s.buf.Bytes()),
		spans: append([]span(nil), s.sections...),
	}, nil
}

// limitWriter appends to buf and fails once max bytes would be exceeded.
type limitWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.max > 0 && w.buf.Len()+len(p) > w.max {
		return 0, fmt.Errorf("%w: section store limit is %d bytes", fault.ErrQuotaExceeded, w.max)
	}
	return w.buf.Write(p)
}
