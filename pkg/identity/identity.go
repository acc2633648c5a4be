// Package identity models the identity an endpoint is expected to prove:
// a DNS name, a service or user principal name, an X.509 certificate, or an
// arbitrary claim.
//
// Equality between identities is claim equality, decided by the comparer of
// the identity on the left. Identities built from an arbitrary claim without a
// comparer cannot be compared; Matches and Equal return
// fault.ErrUnsupportedComparison for them.
package identity

import (
	"bytes"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/epr-protocol/epr-go/pkg/cert"
	"github.com/epr-protocol/epr-go/pkg/fault"
)

// Claim types.
const (
	ClaimTypeDNS        = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/dns"
	ClaimTypeSPN        = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/spn"
	ClaimTypeUPN        = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/upn"
	ClaimTypeThumbprint = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/thumbprint"
)

// Claim rights.
const (
	RightIdentity        = "http://schemas.xmlsoap.org/ws/2005/05/identity/right/identity"
	RightPossessProperty = "http://schemas.xmlsoap.org/ws/2005/05/identity/right/possessproperty"
)

// Claim is a typed statement about a subject.
type Claim struct {
	Type     string
	Right    string
	Resource any
}

// ClaimComparer decides claim equality.
type ClaimComparer interface {
	Equal(a, b Claim) bool
}

// ClaimComparerFunc adapts a function to ClaimComparer.
type ClaimComparerFunc func(a, b Claim) bool

// Equal calls f(a, b).
func (f ClaimComparerFunc) Equal(a, b Claim) bool { return f(a, b) }

// StringComparer compares claims with string resources case-insensitively.
var StringComparer ClaimComparer = ClaimComparerFunc(func(a, b Claim) bool {
	if a.Type != b.Type || a.Right != b.Right {
		return false
	}
	as, aok := a.Resource.(string)
	bs, bok := b.Resource.(string)
	return aok && bok && strings.EqualFold(as, bs)
})

// ThumbprintComparer compares claims with byte-slice resources exactly.
var ThumbprintComparer ClaimComparer = ClaimComparerFunc(func(a, b Claim) bool {
	if a.Type != b.Type || a.Right != b.Right {
		return false
	}
	ab, aok := a.Resource.([]byte)
	bb, bok := b.Resource.([]byte)
	return aok && bok && bytes.Equal(ab, bb)
})

// Kind identifies the identity variant.
type Kind uint8

const (
	KindDNS Kind = iota + 1
	KindSPN
	KindUPN
	KindX509
	KindClaim
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDNS:
		return "dns"
	case KindSPN:
		return "spn"
	case KindUPN:
		return "upn"
	case KindX509:
		return "x509"
	case KindClaim:
		return "claim"
	default:
		return "unknown"
	}
}

// Identity is an immutable endpoint identity.
type Identity struct {
	kind     Kind
	claim    Claim
	comparer ClaimComparer
	certs    []*x509.Certificate
}

func newStringIdentity(kind Kind, claimType, value string) *Identity {
	return &Identity{
		kind:     kind,
		claim:    Claim{Type: claimType, Right: RightPossessProperty, Resource: value},
		comparer: StringComparer,
	}
}

// NewDNS returns a DNS name identity.
func NewDNS(name string) *Identity {
	return newStringIdentity(KindDNS, ClaimTypeDNS, name)
}

// NewSPN returns a service principal name identity.
func NewSPN(spn string) *Identity {
	return newStringIdentity(KindSPN, ClaimTypeSPN, spn)
}

// NewUPN returns a user principal name identity.
func NewUPN(upn string) *Identity {
	return newStringIdentity(KindUPN, ClaimTypeUPN, upn)
}

// NewX509 returns a certificate identity. The claim is the primary
// certificate's thumbprint; supporting certificates are carried for encoding.
func NewX509(primary *x509.Certificate, supporting ...*x509.Certificate) *Identity {
	certs := make([]*x509.Certificate, 0, 1+len(supporting))
	certs = append(certs, primary)
	certs = append(certs, supporting...)
	return &Identity{
		kind:     KindX509,
		claim:    Claim{Type: ClaimTypeThumbprint, Right: RightPossessProperty, Resource: cert.Thumbprint(primary)},
		comparer: ThumbprintComparer,
		certs:    certs,
	}
}

// NewClaim returns an identity for an arbitrary claim. comparer may be nil,
// in which case the identity cannot be compared.
func NewClaim(c Claim, comparer ClaimComparer) *Identity {
	return &Identity{kind: KindClaim, claim: c, comparer: comparer}
}

// Kind returns the identity variant.
func (id *Identity) Kind() Kind { return id.kind }

// Claim returns the identity claim.
func (id *Identity) Claim() Claim { return id.claim }

// Certificates returns the primary certificate followed by supporting ones.
// It is empty for non-certificate identities.
func (id *Identity) Certificates() []*x509.Certificate {
	return append([]*x509.Certificate(nil), id.certs...)
}

// Value returns the claim resource as text: the name for string claims, the
// hex thumbprint for certificates.
func (id *Identity) Value() string {
	switch r := id.claim.Resource.(type) {
	case string:
		return r
	case []byte:
		return hex.EncodeToString(r)
	default:
		return fmt.Sprint(r)
	}
}

// Matches reports whether c is equal to the identity claim.
func (id *Identity) Matches(c Claim) (bool, error) {
	if id.comparer == nil {
		return false, fmt.Errorf("%w: %s identity %q", fault.ErrUnsupportedComparison, id.kind, id.claim.Type)
	}
	return id.comparer.Equal(id.claim, c), nil
}

// String returns "kind:value".
func (id *Identity) String() string {
	if id == nil {
		return "<nil>"
	}
	return id.kind.String() + ":" + id.Value()
}

// Equal reports whether a and b are the same identity. Two nil identities
// are equal; a nil and a non-nil identity are not.
func Equal(a, b *Identity) (bool, error) {
	if a == nil || b == nil {
		return a == b, nil
	}
	if a == b {
		return true, nil
	}
	return a.Matches(b.claim)
}
