// Package log provides structured protocol logging for the endpoint
// reference codec.
//
// Every decode, encode, header application and builder freeze can be
// reported as an Event. Events describe what the codec did (dialect,
// address, header count, identity kind, section sizes and fingerprints,
// failures) but never carry payload bytes.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	codec.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For analysis: write to a binary file
//	codec.Logger, _ = log.NewFileLogger("/var/log/epr/codec.elog")
//
//	// Both: use MultiLogger
//	codec.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys. The
// "epr logs" command reads them back.
package log
