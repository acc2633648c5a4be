// Package addressing describes the WS-Addressing dialects understood by the
// endpoint address codec.
//
// A Version is a small descriptor of what a dialect can express: its
// namespace, its anonymous and none URIs, whether it distinguishes reference
// properties from reference parameters, whether it carries the
// PortType/ServiceName/Policy block, and how metadata is wrapped. The codec
// walks the same algorithm for every dialect and consults the descriptor for
// the differences.
//
// # Dialects
//
//   - WSAddressing10: http://www.w3.org/2005/08/addressing
//   - WSAddressingAugust2004: http://schemas.xmlsoap.org/ws/2004/08/addressing
//   - None: the address is the bare URI text, no addressing headers
//
// # Endpoint comparison
//
// EndpointKey reduces a URI to the components that take part in endpoint
// equality: scheme, host, port (default ports dropped) and the case-folded
// path without a trailing slash. Query, fragment and user info never take
// part.
package addressing
