package cert

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestGenerateSelfSigned(t *testing.T) {
	c, kp, err := GenerateSelfSigned(SelfSignedOptions{
		CommonName: "svc.example.org",
		DNSNames:   []string{"svc.example.org"},
	})
	if err != nil {
		t.Fatalf("GenerateSelfSigned() error = %v", err)
	}
	if kp.PrivateKey.Curve.Params().Name != "P-256" {
		t.Errorf("curve = %s, want P-256", kp.PrivateKey.Curve.Params().Name)
	}
	if c.Subject.CommonName != "svc.example.org" {
		t.Errorf("CommonName = %q", c.Subject.CommonName)
	}
	if len(Thumbprint(c)) != 20 {
		t.Errorf("thumbprint length = %d, want 20", len(Thumbprint(c)))
	}
}

func TestPEMRoundTrip(t *testing.T) {
	c1, _, err := GenerateSelfSigned(SelfSignedOptions{CommonName: "one"})
	if err != nil {
		t.Fatal(err)
	}
	c2, _, err := GenerateSelfSigned(SelfSignedOptions{CommonName: "two"})
	if err != nil {
		t.Fatal(err)
	}

	data := append(EncodeCertPEM(c1), EncodeCertPEM(c2)...)
	certs, err := DecodeCertsPEM(data)
	if err != nil {
		t.Fatalf("DecodeCertsPEM() error = %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("got %d certs, want 2", len(certs))
	}
	if !bytes.Equal(certs[0].Raw, c1.Raw) || !bytes.Equal(certs[1].Raw, c2.Raw) {
		t.Error("decoded certificates do not match")
	}

	first, err := DecodeCertPEM(data)
	if err != nil {
		t.Fatal(err)
	}
	if first.Subject.CommonName != "one" {
		t.Errorf("first CN = %q, want one", first.Subject.CommonName)
	}
}

func TestDecodeCertsPEMInvalid(t *testing.T) {
	_, err := DecodeCertsPEM([]byte("not pem"))
	if !errors.Is(err, ErrInvalidPEM) {
		t.Errorf("error = %v, want ErrInvalidPEM", err)
	}

	_, err = ParseDER([]byte{0x30, 0x01})
	if !errors.Is(err, ErrInvalidCert) {
		t.Errorf("error = %v, want ErrInvalidCert", err)
	}
}

func TestCertFile(t *testing.T) {
	c, kp, err := GenerateSelfSigned(SelfSignedOptions{CommonName: "file"})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "svc.pem")
	if err := WriteCertFile(path, c); err != nil {
		t.Fatalf("WriteCertFile() error = %v", err)
	}
	certs, err := ReadCertsFile(path)
	if err != nil {
		t.Fatalf("ReadCertsFile() error = %v", err)
	}
	if !bytes.Equal(certs[0].Raw, c.Raw) {
		t.Error("file round trip mismatch")
	}

	keyPEM, err := EncodeKeyPEM(kp.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(keyPEM, []byte("EC PRIVATE KEY")) {
		t.Error("key PEM missing block type")
	}
}
