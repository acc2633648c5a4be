package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"
)

// DefaultValidity is the validity period of generated certificates.
const DefaultValidity = 365 * 24 * time.Hour

// KeyPair holds an ECDSA P-256 key pair.
type KeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	PublicKey  *ecdsa.PublicKey
}

// GenerateKeyPair creates a new P-256 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &KeyPair{PrivateKey: key, PublicKey: &key.PublicKey}, nil
}

// SelfSignedOptions configures GenerateSelfSigned.
type SelfSignedOptions struct {
	// CommonName is the subject CN.
	CommonName string

	// DNSNames are added as subject alternative names.
	DNSNames []string

	// Validity defaults to DefaultValidity.
	Validity time.Duration
}

// GenerateSelfSigned creates a self-signed certificate for a service endpoint.
func GenerateSelfSigned(opts SelfSignedOptions) (*x509.Certificate, *KeyPair, error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}

	validity := opts.Validity
	if validity == 0 {
		validity = DefaultValidity
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: opts.CommonName},
		DNSNames:     opts.DNSNames,
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.Add(validity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, kp.PublicKey, kp.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	c, err := ParseDER(der)
	if err != nil {
		return nil, nil, err
	}
	return c, kp, nil
}

// Thumbprint returns the SHA-1 digest of the certificate's DER encoding, the
// value carried by thumbprint claims.
func Thumbprint(c *x509.Certificate) []byte {
	if c == nil {
		return nil
	}
	sum := sha1.Sum(c.Raw)
	return sum[:]
}
