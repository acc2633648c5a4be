// Package wire defines the CBOR snapshot format for endpoint addresses.
//
// A snapshot captures everything an EndpointAddress carries, including its
// opaque sections, so an address can be cached or passed between processes
// without choosing an addressing dialect. Decoding a snapshot yields an
// address that is EndpointEquals to the original and replays the same
// section bytes.
//
// # CBOR Integer Keys
//
// All structs use integer keys for compactness. Encoding is deterministic,
// so equal snapshots produce equal bytes. Decoding is strict: unknown keys
// fail, and Snapshot.Format selects the layout.
//
// # Nullable vs Absent
//
// A section key that is absent means the section is absent. A present key
// with an empty payload is a present, empty section.
package wire
