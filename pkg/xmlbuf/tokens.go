package xmlbuf

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/epr-protocol/epr-go/pkg/fault"
)

const xmlnsPrefix = "xmlns"

// CopyElement copies the element that begins with start, including all of
// its content, from src to dst. Namespace declarations are not copied;
// dst declares the namespaces of the resolved names it writes.
func CopyElement(dst *xml.Encoder, src *xml.Decoder, start xml.StartElement) error {
	return copyElement(dst, src, start, "", 0, nil)
}

// CopyElementWith is like CopyElement but appends extra attributes to the
// copied start element.
func CopyElementWith(dst *xml.Encoder, src *xml.Decoder, start xml.StartElement, extra ...xml.Attr) error {
	return copyElement(dst, src, start, "", 0, extra)
}

func copyElement(dst *xml.Encoder, src *xml.Decoder, start xml.StartElement, parentDefault string, maxDepth int, extra []xml.Attr) error {
	// defaults[i] is the default namespace in effect inside the i-th open element.
	defaults := make([]string, 0, 8)

	open := func(se xml.StartElement, attrs []xml.Attr) error {
		inherited := parentDefault
		if len(defaults) > 0 {
			inherited = defaults[len(defaults)-1]
		}
		out := xml.StartElement{Name: se.Name, Attr: CleanAttrs(se.Attr)}
		out.Attr = append(out.Attr, attrs...)

		current := se.Name.Space
		if current == "" && inherited != "" {
			out.Attr = append(out.Attr, xml.Attr{Name: xml.Name{Local: xmlnsPrefix}, Value: ""})
		}
		defaults = append(defaults, current)
		if maxDepth > 0 && len(defaults) > maxDepth {
			return fmt.Errorf("%w: element depth exceeds %d", fault.ErrQuotaExceeded, maxDepth)
		}
		return dst.EncodeToken(out)
	}

	if err := open(start, extra); err != nil {
		return err
	}
	for len(defaults) > 0 {
		tok, err := src.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fault.Malformed("unexpected end of input inside <%s>", start.Name.Local)
			}
			return fault.Malformed("%v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := open(t, nil); err != nil {
				return err
			}
		case xml.EndElement:
			defaults = defaults[:len(defaults)-1]
			if err := dst.EncodeToken(xml.EndElement{Name: t.Name}); err != nil {
				return err
			}
		case xml.CharData:
			if err := dst.EncodeToken(t.Copy()); err != nil {
				return err
			}
		case xml.Comment:
			if err := dst.EncodeToken(t.Copy()); err != nil {
				return err
			}
		}
	}
	return nil
}

// CleanAttrs returns attrs without namespace declarations.
func CleanAttrs(attrs []xml.Attr) []xml.Attr {
	out := make([]xml.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Name.Space == xmlnsPrefix || (a.Name.Space == "" && a.Name.Local == xmlnsPrefix) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// NextElement advances dec to the next child element of the element being
// read. It returns ok=false after consuming the enclosing end element.
// Whitespace and comments are skipped; other text is malformed.
func NextElement(dec *xml.Decoder) (xml.StartElement, bool, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, false, fault.Malformed("unexpected end of input")
			}
			return xml.StartElement{}, false, fault.Malformed("%v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t.Copy(), true, nil
		case xml.EndElement:
			return xml.StartElement{}, false, nil
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return xml.StartElement{}, false, fault.Malformed("unexpected text %q", strings.TrimSpace(string(t)))
			}
		}
	}
}

// nextTopLevel is NextElement for a document stream: io.EOF ends it.
func nextTopLevel(dec *xml.Decoder) (xml.StartElement, bool, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.StartElement{}, false, nil
		}
		if err != nil {
			return xml.StartElement{}, false, fault.Malformed("%v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t.Copy(), true, nil
		case xml.EndElement:
			return xml.StartElement{}, false, fault.Malformed("unexpected end element </%s>", t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return xml.StartElement{}, false, fault.Malformed("unexpected text %q", strings.TrimSpace(string(t)))
			}
		}
	}
}

// FirstElement returns the first start element of a document.
func FirstElement(dec *xml.Decoder) (xml.StartElement, error) {
	start, ok, err := nextTopLevel(dec)
	if err != nil {
		return xml.StartElement{}, err
	}
	if !ok {
		return xml.StartElement{}, fault.Malformed("empty document")
	}
	return start, nil
}

// ReadText reads the text content of the current element and consumes its
// end element. Child elements are malformed.
func ReadText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fault.Malformed("unexpected end of input")
			}
			return "", fault.Malformed("%v", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			return "", fault.Malformed("unexpected element <%s> in text content", t.Name.Local)
		case xml.EndElement:
			return b.String(), nil
		}
	}
}

// WriteText writes <name attrs...>text</name>.
func WriteText(enc *xml.Encoder, name xml.Name, text string, attrs ...xml.Attr) error {
	start := xml.StartElement{Name: name, Attr: attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// Prefixed returns a name written with an explicit prefix. The caller must
// declare the prefix with NamespaceAttr on the same or an enclosing element.
func Prefixed(prefix, local string) xml.Name {
	if prefix == "" {
		return xml.Name{Local: local}
	}
	return xml.Name{Local: prefix + ":" + local}
}

// NamespaceAttr declares prefix for ns.
func NamespaceAttr(prefix, ns string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: xmlnsPrefix + ":" + prefix}, Value: ns}
}

// ExpectEnd consumes the rest of a document, failing if another element
// or non-whitespace text follows.
func ExpectEnd(dec *xml.Decoder) error {
	start, ok, err := nextTopLevel(dec)
	if err != nil {
		return err
	}
	if ok {
		return fault.Malformed("unexpected element <%s> after document element", start.Name.Local)
	}
	return nil
}
