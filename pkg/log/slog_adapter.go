package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes codec events to an slog.Logger.
// Useful for development when you want to see codec events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level. Failed
// operations are logged at Warn level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("operation", event.Operation.String()),
		slog.String("direction", event.Direction.String()),
	}

	if event.Dialect != "" {
		attrs = append(attrs, slog.String("dialect", event.Dialect))
	}
	if event.Address != "" {
		attrs = append(attrs, slog.String("address", event.Address))
	}
	if event.HeaderCount > 0 {
		attrs = append(attrs, slog.Int("headers", event.HeaderCount))
	}
	if event.IdentityKind != "" {
		attrs = append(attrs, slog.String("identity", event.IdentityKind))
	}
	for _, s := range event.Sections {
		attrs = append(attrs, slog.Group(s.Kind.String(),
			slog.Int("size", s.Size),
			slog.String("blake3", s.FingerprintHex()),
		))
	}

	level := slog.LevelDebug
	if event.Error != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_kind", event.Error.Kind),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "epr", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
