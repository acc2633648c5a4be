package identity

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"strings"

	"github.com/epr-protocol/epr-go/pkg/cert"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// Namespaces of the identity extension element.
const (
	Namespace        = "http://schemas.xmlsoap.org/ws/2006/02/addressingidentity"
	NamespaceXMLDSig = "http://www.w3.org/2000/09/xmldsig#"
)

// Element names.
const (
	ElementIdentity        = "Identity"
	elementDNS             = "Dns"
	elementSPN             = "Spn"
	elementUPN             = "Upn"
	elementClaim           = "Claim"
	elementKeyInfo         = "KeyInfo"
	elementX509Data        = "X509Data"
	elementX509Certificate = "X509Certificate"
	attrClaimType          = "ClaimType"
	attrRight              = "Right"
)

// ElementName is the qualified name of the identity extension element.
var ElementName = xml.Name{Space: Namespace, Local: ElementIdentity}

// IsIdentityElement reports whether name is the identity extension element.
func IsIdentityElement(name xml.Name) bool {
	return name == ElementName
}

// Read decodes the identity element that begins with start.
func Read(dec *xml.Decoder, start xml.StartElement) (*Identity, error) {
	if !IsIdentityElement(start.Name) {
		return nil, fault.Malformed("expected identity element, found <%s>", start.Name.Local)
	}

	child, ok, err := xmlbuf.NextElement(dec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fault.Malformed("empty identity element")
	}

	var id *Identity
	switch {
	case child.Name.Space == Namespace && child.Name.Local == elementDNS:
		id, err = readString(dec, NewDNS)
	case child.Name.Space == Namespace && child.Name.Local == elementSPN:
		id, err = readString(dec, NewSPN)
	case child.Name.Space == Namespace && child.Name.Local == elementUPN:
		id, err = readString(dec, NewUPN)
	case child.Name.Space == Namespace && child.Name.Local == elementClaim:
		id, err = readClaim(dec, child)
	case child.Name.Space == NamespaceXMLDSig && child.Name.Local == elementKeyInfo:
		id, err = readKeyInfo(dec)
	default:
		return nil, fault.Malformed("unrecognized identity type <%s>", child.Name.Local)
	}
	if err != nil {
		return nil, err
	}

	if extra, ok, err := xmlbuf.NextElement(dec); err != nil {
		return nil, err
	} else if ok {
		return nil, fault.Malformed("unexpected <%s> after identity claim", extra.Name.Local)
	}
	return id, nil
}

func readString(dec *xml.Decoder, build func(string) *Identity) (*Identity, error) {
	text, err := xmlbuf.ReadText(dec)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fault.Malformed("empty identity value")
	}
	return build(text), nil
}

func readClaim(dec *xml.Decoder, start xml.StartElement) (*Identity, error) {
	var c Claim
	for _, a := range start.Attr {
		switch a.Name.Local {
		case attrClaimType:
			c.Type = a.Value
		case attrRight:
			c.Right = a.Value
		}
	}
	if c.Type == "" {
		return nil, fault.Malformed("claim identity without %s", attrClaimType)
	}
	if c.Right == "" {
		c.Right = RightPossessProperty
	}
	text, err := xmlbuf.ReadText(dec)
	if err != nil {
		return nil, err
	}
	c.Resource = strings.TrimSpace(text)
	return NewClaim(c, nil), nil
}

func readKeyInfo(dec *xml.Decoder) (*Identity, error) {
	data, ok, err := xmlbuf.NextElement(dec)
	if err != nil {
		return nil, err
	}
	if !ok || data.Name.Space != NamespaceXMLDSig || data.Name.Local != elementX509Data {
		return nil, fault.Malformed("key info identity without X509Data")
	}

	var der [][]byte
	for {
		child, ok, err := xmlbuf.NextElement(dec)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if child.Name.Space != NamespaceXMLDSig || child.Name.Local != elementX509Certificate {
			return nil, fault.Malformed("unexpected <%s> in X509Data", child.Name.Local)
		}
		text, err := xmlbuf.ReadText(dec)
		if err != nil {
			return nil, err
		}
		raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(text), ""))
		if err != nil {
			return nil, fault.Malformed("X509Certificate: %v", err)
		}
		der = append(der, raw)
	}
	if len(der) == 0 {
		return nil, fault.Malformed("X509Data without certificates")
	}

	certs := make([]*x509.Certificate, 0, len(der))
	for _, raw := range der {
		c, err := cert.ParseDER(raw)
		if err != nil {
			return nil, fault.Malformed("X509Certificate: %v", err)
		}
		certs = append(certs, c)
	}

	if extra, ok, err := xmlbuf.NextElement(dec); err != nil {
		return nil, err
	} else if ok {
		return nil, fault.Malformed("unexpected <%s> in KeyInfo", extra.Name.Local)
	}
	return NewX509(certs[0], certs[1:]...), nil
}

// Write encodes id as the identity extension element.
func Write(enc *xml.Encoder, id *Identity) error {
	start := xml.StartElement{Name: ElementName}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	var err error
	switch id.kind {
	case KindDNS:
		err = xmlbuf.WriteText(enc, xml.Name{Local: elementDNS}, id.Value())
	case KindSPN:
		err = xmlbuf.WriteText(enc, xml.Name{Local: elementSPN}, id.Value())
	case KindUPN:
		err = xmlbuf.WriteText(enc, xml.Name{Local: elementUPN}, id.Value())
	case KindX509:
		err = writeKeyInfo(enc, id)
	case KindClaim:
		err = writeClaim(enc, id.claim)
	default:
		err = fault.Malformed("unknown identity kind %d", id.kind)
	}
	if err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func writeClaim(enc *xml.Encoder, c Claim) error {
	value, ok := c.Resource.(string)
	if !ok {
		return fault.Malformed("claim resource of type %T cannot be written", c.Resource)
	}
	attrs := []xml.Attr{{Name: xml.Name{Local: attrClaimType}, Value: c.Type}}
	if c.Right != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: attrRight}, Value: c.Right})
	}
	return xmlbuf.WriteText(enc, xml.Name{Local: elementClaim}, value, attrs...)
}

func writeKeyInfo(enc *xml.Encoder, id *Identity) error {
	keyInfo := xml.StartElement{Name: xml.Name{Space: NamespaceXMLDSig, Local: elementKeyInfo}}
	data := xml.StartElement{Name: xml.Name{Local: elementX509Data}}
	if err := enc.EncodeToken(keyInfo); err != nil {
		return err
	}
	if err := enc.EncodeToken(data); err != nil {
		return err
	}
	for _, c := range id.certs {
		value := base64.StdEncoding.EncodeToString(c.Raw)
		if err := xmlbuf.WriteText(enc, xml.Name{Local: elementX509Certificate}, value); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(data.End()); err != nil {
		return err
	}
	return enc.EncodeToken(keyInfo.End())
}
