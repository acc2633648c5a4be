// Package epr implements endpoint references: the immutable EndpointAddress
// value, its codec for the WS-Addressing 1.0, August-2004 and None dialects,
// structural equality for routing, and a Builder for incremental
// construction.
//
// Content the codec does not interpret (metadata, extensions and the
// August-2004 PortType/ServiceName/Policy block) is kept verbatim in sealed
// xmlbuf sections and replayed unchanged on encode.
//
// An EndpointAddress is safe for concurrent use once constructed.
package epr
