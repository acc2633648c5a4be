package epr

import (
	"bytes"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/header"
	"github.com/epr-protocol/epr-go/pkg/message"
)

func TestApplyTo(t *testing.T) {
	svc := MustNew("http://example.org/svc", header.New("Token", "urn:x", "abc"))

	tests := []struct {
		name string
		v    *addressing.Version
		a    *EndpointAddress
		to   string // empty: To absent
		via  string
	}{
		{"1.0 anonymous", addressing.WSAddressing10, Anonymous(), "", addressing.AnonymousURI},
		{"2004 anonymous", addressing.WSAddressingAugust2004, Anonymous(),
			addressing.NamespaceAugust2004 + "/role/anonymous", addressing.NamespaceAugust2004 + "/role/anonymous"},
		{"none-dialect anonymous", addressing.None, Anonymous(), addressing.AnonymousURI, addressing.AnonymousURI},
		{"1.0 none", addressing.WSAddressing10, NoneAddress(), addressing.Namespace10 + "/none", addressing.Namespace10 + "/none"},
		{"none-dialect none", addressing.None, NoneAddress(), addressing.NoneURI, addressing.NoneURI},
		{"1.0 address", addressing.WSAddressing10, svc, "http://example.org/svc", "http://example.org/svc"},
		{"2004 address", addressing.WSAddressingAugust2004, svc, "http://example.org/svc", "http://example.org/svc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := message.NewHeaders(tt.v, "urn:act")
			h.SetTo(addressing.MustParseAbsolute("http://stale.example/"))
			require.NoError(t, tt.a.ApplyTo(h))

			if tt.to == "" {
				assert.False(t, h.HasTo())
			} else {
				require.True(t, h.HasTo())
				assert.Equal(t, tt.to, h.To.String())
			}
			require.NotNil(t, h.Via)
			assert.Equal(t, tt.via, h.Via.String())
			assert.Len(t, h.ReferenceParameters(), tt.a.Headers().Len())
		})
	}
}

func TestApplyNoneToAugust2004Fails(t *testing.T) {
	a, err := New(addressing.NoneURI, header.New("Token", "urn:x", "abc"))
	require.NoError(t, err)

	h := message.NewHeaders(addressing.WSAddressingAugust2004, "urn:act")
	err = a.ApplyTo(h)
	assert.ErrorIs(t, err, fault.ErrDialectIncompatible)
	assert.False(t, h.HasTo())
	assert.Nil(t, h.Via)
	assert.Empty(t, h.ReferenceParameters(), "message is unchanged on failure")
}

func TestApplyThenEncodeMessage(t *testing.T) {
	a := MustNew("http://example.org/svc", header.New("Token", "urn:x", "abc"))
	h := message.NewHeaders(addressing.WSAddressing10, "urn:act")
	h.MessageID = "urn:uuid:1"
	h.ReplyTo = Anonymous()
	require.NoError(t, a.ApplyTo(h))

	var buf bytes.Buffer
	require.NoError(t, h.Encode(xml.NewEncoder(&buf)))
	assert.Equal(t,
		`<s:Header xmlns:s="`+addressing.NamespaceSOAP12+`" xmlns:wsa="`+addressing.Namespace10+`">`+
			`<wsa:Action>urn:act</wsa:Action>`+
			`<wsa:MessageID>urn:uuid:1</wsa:MessageID>`+
			`<wsa:To>http://example.org/svc</wsa:To>`+
			`<wsa:ReplyTo><wsa:Address>`+addressing.Namespace10+`/anonymous</wsa:Address></wsa:ReplyTo>`+
			`<Token xmlns="urn:x" wsa:IsReferenceParameter="true">abc</Token>`+
			`</s:Header>`, buf.String())
}

func TestApplyRejectsNil(t *testing.T) {
	assert.ErrorIs(t, MustNew("http://x/").ApplyTo(nil), fault.ErrMalformedInput)
}
