// Package cert provides the X.509 helpers used by certificate-based endpoint
// identities: PEM loading, DER parsing, thumbprints and self-signed
// certificate generation for tests and tooling.
package cert
