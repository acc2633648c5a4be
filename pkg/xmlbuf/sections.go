package xmlbuf

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/epr-protocol/epr-go/pkg/fault"
)

// Sections is the sealed, read-only view of a Store. It is safe for
// concurrent use.
type Sections struct {
	data  []byte
	spans []span
}

// Len returns the number of sections.
func (b *Sections) Len() int {
	if b == nil {
		return 0
	}
	return len(b.spans)
}

// Size returns the number of bytes in section i, wrapper included.
func (b *Sections) Size(i int) int {
	if b == nil || i < 0 || i >= len(b.spans) {
		return 0
	}
	return b.spans[i].length
}

func (b *Sections) raw(i int) ([]byte, error) {
	if b == nil || i < 0 || i >= len(b.spans) {
		return nil, fmt.Errorf("xmlbuf: section %d out of range", i)
	}
	sp := b.spans[i]
	return b.data[sp.offset : sp.offset+sp.length], nil
}

// Reader returns a new decoder over section i, positioned after the wrapper
// start element. Reading ends at the wrapper's end element.
func (b *Sections) Reader(i int) (*xml.Decoder, error) {
	raw, err := b.raw(i)
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fault.Malformed("section %d: %v", i, err)
	}
	if se, ok := tok.(xml.StartElement); !ok || se.Name.Local != WrapperName {
		return nil, fault.Malformed("section %d: missing wrapper element", i)
	}
	return dec, nil
}

// Fingerprint returns the BLAKE3 digest of section i.
func (b *Sections) Fingerprint(i int) [32]byte {
	raw, err := b.raw(i)
	if err != nil {
		return [32]byte{}
	}
	return blake3.Sum256(raw)
}

// Section returns a handle to section i.
func (b *Sections) Section(i int) Section {
	if b == nil || i < 0 || i >= len(b.spans) {
		return Section{}
	}
	return Section{set: b, index: i}
}

// Section refers to one section of a sealed store. The zero value means
// "no section".
type Section struct {
	set   *Sections
	index int
}

// IsZero reports whether the handle refers to nothing.
func (s Section) IsZero() bool {
	return s.set == nil
}

// Reader returns a fresh decoder positioned inside the section.
func (s Section) Reader() (*xml.Decoder, error) {
	if s.IsZero() {
		return nil, fmt.Errorf("xmlbuf: empty section handle")
	}
	return s.set.Reader(s.index)
}

// Size returns the stored size of the section in bytes.
func (s Section) Size() int {
	if s.IsZero() {
		return 0
	}
	return s.set.Size(s.index)
}

// Fingerprint returns the BLAKE3 digest of the stored section.
func (s Section) Fingerprint() [32]byte {
	if s.IsZero() {
		return [32]byte{}
	}
	return s.set.Fingerprint(s.index)
}

// Elements returns the names of the section's top-level elements.
func (s Section) Elements() ([]xml.Name, error) {
	dec, err := s.Reader()
	if err != nil {
		return nil, err
	}
	var names []xml.Name
	for {
		start, ok, err := NextElement(dec)
		if err != nil {
			return nil, err
		}
		if !ok {
			return names, nil
		}
		names = append(names, start.Name)
		if err := dec.Skip(); err != nil {
			return nil, fault.Malformed("section: %v", err)
		}
	}
}

// WriteContentTo copies every top-level element of the section to enc.
// check, when non-nil, is called with each element name before it is written.
func (s Section) WriteContentTo(enc *xml.Encoder, check func(xml.Name) error) error {
	dec, err := s.Reader()
	if err != nil {
		return err
	}
	for {
		start, ok, err := NextElement(dec)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if check != nil {
			if err := check(start.Name); err != nil {
				return err
			}
		}
		if err := CopyElement(enc, dec, start); err != nil {
			return err
		}
	}
}

// Payload serializes the section's content, without the wrapper.
func (s Section) Payload() ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := s.WriteContentTo(enc, nil); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BufferFragments builds a sealed store with one section per payload. Each
// payload is a sequence of zero or more XML elements.
func BufferFragments(q Quotas, payloads ...[]byte) (*Sections, error) {
	store := NewStore(q)
	for _, payload := range payloads {
		if _, err := store.OpenSection(); err != nil {
			return nil, err
		}
		dec := xml.NewDecoder(bytes.NewReader(payload))
		for {
			start, ok, err := nextTopLevel(dec)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			if err := store.CopyElement(dec, start); err != nil {
				return nil, err
			}
		}
		if _, err := store.CloseSection(); err != nil {
			return nil, err
		}
	}
	return store.Seal()
}
