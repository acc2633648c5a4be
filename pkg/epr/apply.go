package epr

import (
	"net/url"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/log"
	"github.com/epr-protocol/epr-go/pkg/message"
)

// ApplyTo addresses an outgoing message to a, following the message's own
// dialect:
//   - WS-Addressing 1.0 leaves To absent for the anonymous address.
//   - Other dialects write their own spelling of anonymous and none.
//   - August-2004 cannot express none and fails.
//
// Via is set to the resulting To, or to a's URI when To is absent. Every
// address header is added to the message. The message is unchanged on
// failure.
func (c *Codec) ApplyTo(a *EndpointAddress, h *message.Headers) error {
	var v *addressing.Version
	if h != nil {
		v = h.Version
	}
	err := c.applyTo(a, h)
	c.record(log.OperationApply, log.DirectionOut, v, a, err)
	return err
}

func (c *Codec) applyTo(a *EndpointAddress, h *message.Headers) error {
	if a == nil || h == nil {
		return fault.Malformed("apply requires an address and message headers")
	}
	v := h.Version
	if v == nil {
		v = addressing.None
	}

	var to *url.URL
	switch {
	case a.anonymous && v == addressing.WSAddressing10:
		to = nil
	case a.anonymous:
		u, err := addressing.ParseAbsolute(v.AnonymousURI())
		if err != nil {
			return err
		}
		to = u
	case a.none:
		if !v.CanExpressNone() {
			return fault.Incompatible("the %s dialect cannot express the none address", v)
		}
		u, err := addressing.ParseAbsolute(v.NoneURI())
		if err != nil {
			return err
		}
		to = u
	default:
		to = a.URI()
	}

	if to == nil {
		h.ClearTo()
		h.Via = a.URI()
	} else {
		h.SetTo(to)
		via := *to
		h.Via = &via
	}
	for _, p := range a.headers.All() {
		h.AddReferenceParameter(p)
	}
	return nil
}
