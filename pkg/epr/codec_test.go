package epr

import (
	"bytes"
	"encoding/xml"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/fault"
	"github.com/epr-protocol/epr-go/pkg/header"
	"github.com/epr-protocol/epr-go/pkg/identity"
	"github.com/epr-protocol/epr-go/pkg/log"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

const (
	ns10   = addressing.Namespace10
	ns2004 = addressing.NamespaceAugust2004
)

func wrap10(contents string) string {
	return `<EndpointReference xmlns="` + ns10 + `">` + contents + `</EndpointReference>`
}

const august2004Doc = `<wsa:EndpointReference xmlns:wsa="` + ns2004 + `"
    xmlns:wsp="http://schemas.xmlsoap.org/ws/2004/09/policy"
    xmlns:wsx="http://schemas.xmlsoap.org/ws/2004/09/mex">
  <wsa:Address>http://example.org/svc</wsa:Address>
  <wsa:ReferenceProperties><p:Prop xmlns:p="urn:p">1</p:Prop></wsa:ReferenceProperties>
  <wsa:ReferenceParameters><p:Param xmlns:p="urn:p">2</p:Param></wsa:ReferenceParameters>
  <wsa:PortType>tns:Echo</wsa:PortType>
  <wsa:ServiceName PortName="EchoPort">tns:EchoService</wsa:ServiceName>
  <wsp:Policy/>
  <wsx:Metadata><wsx:MetadataSection Dialect="urn:d"/></wsx:Metadata>
  <e:Ext xmlns:e="urn:e">x</e:Ext>
</wsa:EndpointReference>`

func TestDecodeExample(t *testing.T) {
	doc := wrap10(`<Address>http://example.org/svc</Address>` +
		`<ReferenceParameters><t:Token xmlns:t="urn:x">abc</t:Token></ReferenceParameters>`)

	a, err := Unmarshal(addressing.WSAddressing10, []byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "http://example.org/svc", a.String())
	require.Equal(t, 1, a.Headers().Len())
	h := a.Headers().At(0)
	assert.Equal(t, "Token", h.Name())
	assert.Equal(t, "urn:x", h.Namespace())
	assert.Equal(t, "abc", h.Value())
	assert.Nil(t, a.Identity())
	assert.True(t, a.Metadata().IsZero())
	assert.True(t, a.Extensions().IsZero())

	out, err := Marshal(addressing.WSAddressing10, a)
	require.NoError(t, err)
	assert.Equal(t,
		`<wsa:EndpointReference xmlns:wsa="`+ns10+`">`+
			`<wsa:Address>http://example.org/svc</wsa:Address>`+
			`<wsa:ReferenceParameters><Token xmlns="urn:x">abc</Token></wsa:ReferenceParameters>`+
			`</wsa:EndpointReference>`, string(out))

	again, err := Unmarshal(addressing.WSAddressing10, out)
	require.NoError(t, err)
	eq, err := a.EndpointEquals(again)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestDecodeAnonymousReturnsCanonicalInstance(t *testing.T) {
	a, err := Unmarshal(addressing.WSAddressing10, []byte(wrap10(`<Address>`+ns10+`/anonymous</Address>`)))
	require.NoError(t, err)
	assert.Same(t, Anonymous(), a)

	doc := `<a:EndpointReference xmlns:a="` + ns2004 + `"><a:Address> ` + ns2004 + `/role/anonymous </a:Address></a:EndpointReference>`
	a, err = Unmarshal(addressing.WSAddressingAugust2004, []byte(doc))
	require.NoError(t, err)
	assert.Same(t, Anonymous(), a)

	withHeader := wrap10(`<Address>` + ns10 + `/anonymous</Address><ReferenceParameters><t xmlns="urn:x"/></ReferenceParameters>`)
	a, err = Unmarshal(addressing.WSAddressing10, []byte(withHeader))
	require.NoError(t, err)
	assert.True(t, a.IsAnonymous())
	assert.NotSame(t, Anonymous(), a)
	assert.Equal(t, addressing.AnonymousURI, a.String())
}

func TestDecodeNone10(t *testing.T) {
	a, err := Unmarshal(addressing.WSAddressing10, []byte(wrap10(`<Address>`+ns10+`/none</Address>`)))
	require.NoError(t, err)
	assert.True(t, a.IsNone())
	assert.Equal(t, addressing.NoneURI, a.String())
}

func TestDecodeAugust2004(t *testing.T) {
	a, err := Unmarshal(addressing.WSAddressingAugust2004, []byte(august2004Doc))
	require.NoError(t, err)

	require.Equal(t, 2, a.Headers().Len())
	props := a.Headers().Properties()
	params := a.Headers().Parameters()
	require.Len(t, props, 1)
	require.Len(t, params, 1)
	assert.Equal(t, "Prop", props[0].Name())
	assert.Equal(t, "Param", params[0].Name())

	require.False(t, a.LegacyBlob().IsZero())
	names, err := a.LegacyBlob().Elements()
	require.NoError(t, err)
	assert.Equal(t, []xml.Name{
		{Space: ns2004, Local: "PortType"},
		{Space: ns2004, Local: "ServiceName"},
		{Space: addressing.NamespacePolicy, Local: "Policy"},
	}, names)

	require.False(t, a.Metadata().IsZero())
	names, err = a.Metadata().Elements()
	require.NoError(t, err)
	assert.Equal(t, []xml.Name{{Space: addressing.NamespaceMex, Local: "MetadataSection"}}, names)

	require.False(t, a.Extensions().IsZero())
	names, err = a.Extensions().Elements()
	require.NoError(t, err)
	assert.Equal(t, []xml.Name{{Space: "urn:e", Local: "Ext"}}, names)
}

func TestAugust2004RoundTrip(t *testing.T) {
	a, err := Unmarshal(addressing.WSAddressingAugust2004, []byte(august2004Doc))
	require.NoError(t, err)

	out, err := Marshal(addressing.WSAddressingAugust2004, a)
	require.NoError(t, err)
	s := string(out)

	order := []string{"<wsa:Address>", "<wsa:ReferenceProperties>", "<wsa:ReferenceParameters>",
		"<PortType", "<ServiceName", "<Policy", "<wsx:Metadata", "<Ext"}
	last := -1
	for _, marker := range order {
		i := strings.Index(s, marker)
		require.GreaterOrEqual(t, i, 0, "missing %s in %s", marker, s)
		assert.Greater(t, i, last, "%s out of order in %s", marker, s)
		last = i
	}
	assert.Contains(t, s, `PortName="EchoPort"`)

	again, err := Unmarshal(addressing.WSAddressingAugust2004, out)
	require.NoError(t, err)
	eq, err := a.EndpointEquals(again)
	require.NoError(t, err)
	assert.True(t, eq)
	assert.Len(t, again.Headers().Properties(), 1, "roles survive the same dialect")
	assert.Equal(t, a.LegacyBlob().Fingerprint(), again.LegacyBlob().Fingerprint())
	assert.Equal(t, a.Metadata().Fingerprint(), again.Metadata().Fingerprint())
	assert.Equal(t, a.Extensions().Fingerprint(), again.Extensions().Fingerprint())
}

func TestLegacyBlobCannotBeWrittenAs10(t *testing.T) {
	a, err := Unmarshal(addressing.WSAddressingAugust2004, []byte(august2004Doc))
	require.NoError(t, err)

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	err = WriteTo(addressing.WSAddressing10, enc, xml.Name{}, a)
	assert.ErrorIs(t, err, fault.ErrDialectIncompatible)
	require.NoError(t, enc.Flush())
	assert.Empty(t, buf.String(), "nothing is written on failure")
}

func TestPropertiesCollapseIn10(t *testing.T) {
	a := MustNew("http://example.org/svc", header.NewWithRole("Prop", "urn:p", "1", header.RoleProperty))

	out, err := Marshal(addressing.WSAddressing10, a)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "ReferenceProperties")
	assert.Contains(t, string(out), "<wsa:ReferenceParameters>")

	again, err := Unmarshal(addressing.WSAddressing10, out)
	require.NoError(t, err)
	assert.Equal(t, header.RoleParameter, again.Headers().At(0).Role())
	eq, err := a.EndpointEquals(again)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestMetadataAcrossDialects(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetURI("http://example.org/svc"))
	require.NoError(t, b.SetMetadata([]byte(`<m:Info xmlns:m="urn:m">v</m:Info>`)))
	a, err := b.Freeze()
	require.NoError(t, err)

	out10, err := Marshal(addressing.WSAddressing10, a)
	require.NoError(t, err)
	assert.Contains(t, string(out10), `<wsa:Metadata><Info xmlns="urn:m">v</Info></wsa:Metadata>`)

	out04, err := Marshal(addressing.WSAddressingAugust2004, a)
	require.NoError(t, err)
	assert.Contains(t, string(out04), `<wsx:Metadata xmlns:wsx="`+addressing.NamespaceMex+`"><Info xmlns="urn:m">v</Info></wsx:Metadata>`)

	for _, tc := range []struct {
		v   *addressing.Version
		out []byte
	}{{addressing.WSAddressing10, out10}, {addressing.WSAddressingAugust2004, out04}} {
		decoded, err := Unmarshal(tc.v, tc.out)
		require.NoError(t, err)
		payload, err := decoded.Metadata().Payload()
		require.NoError(t, err)
		assert.Equal(t, `<Info xmlns="urn:m">v</Info>`, string(payload), tc.v.String())
		assert.True(t, decoded.Extensions().IsZero(), tc.v.String())
	}
}

func TestEncodeSentinels(t *testing.T) {
	tests := []struct {
		name    string
		v       *addressing.Version
		a       *EndpointAddress
		address string
		err     error
	}{
		{"anonymous 1.0", addressing.WSAddressing10, Anonymous(), ns10 + "/anonymous", nil},
		{"anonymous 2004", addressing.WSAddressingAugust2004, Anonymous(), ns2004 + "/role/anonymous", nil},
		{"none 1.0", addressing.WSAddressing10, NoneAddress(), ns10 + "/none", nil},
		{"none 2004", addressing.WSAddressingAugust2004, NoneAddress(), "", fault.ErrDialectIncompatible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(tt.v, tt.a)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, string(out), "<wsa:Address>"+tt.address+"</wsa:Address>")

			again, err := Unmarshal(tt.v, out)
			require.NoError(t, err)
			assert.Same(t, tt.a, again)
		})
	}
}

func TestNoneDialect(t *testing.T) {
	a := MustNew("http://example.org/svc", header.New("A", "urn:x", "1"))

	out, err := Marshal(addressing.None, a)
	require.NoError(t, err)
	assert.Equal(t, `<EndpointReference>http://example.org/svc</EndpointReference>`, string(out))

	again, err := Unmarshal(addressing.None, out)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/svc", again.String())
	assert.Equal(t, 0, again.Headers().Len(), "the None dialect carries only the URI")

	out, err = Marshal(addressing.None, Anonymous())
	require.NoError(t, err)
	again, err = Unmarshal(addressing.None, out)
	require.NoError(t, err)
	assert.True(t, again.IsAnonymous())

	_, err = Unmarshal(addressing.None, []byte(`<EndpointReference><Address>x</Address></EndpointReference>`))
	assert.ErrorIs(t, err, fault.ErrMalformedInput)
}

func TestDecodeIdentity(t *testing.T) {
	doc := wrap10(`<Address>http://example.org/svc</Address>` +
		`<Identity xmlns="` + identity.Namespace + `"><Dns>host.example.org</Dns></Identity>` +
		`<e:Ext xmlns:e="urn:e"/>`)

	a, err := Unmarshal(addressing.WSAddressing10, []byte(doc))
	require.NoError(t, err)
	require.NotNil(t, a.Identity())
	assert.Equal(t, identity.KindDNS, a.Identity().Kind())
	assert.Equal(t, "host.example.org", a.Identity().Value())

	names, err := a.Extensions().Elements()
	require.NoError(t, err)
	assert.Equal(t, []xml.Name{{Space: "urn:e", Local: "Ext"}}, names, "identity is not an extension")

	out, err := Marshal(addressing.WSAddressing10, a)
	require.NoError(t, err)
	again, err := Unmarshal(addressing.WSAddressing10, out)
	require.NoError(t, err)
	eq, err := a.EndpointEquals(again)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestDecodeErrors(t *testing.T) {
	idXML := `<Identity xmlns="` + identity.Namespace + `"><Dns>h</Dns></Identity>`
	tests := []struct {
		name string
		v    *addressing.Version
		doc  string
		err  error
	}{
		{"missing address", addressing.WSAddressing10, wrap10(`<ReferenceParameters/>`), fault.ErrMalformedInput},
		{"empty", addressing.WSAddressing10, wrap10(``), fault.ErrMalformedInput},
		{"relative uri", addressing.WSAddressing10, wrap10(`<Address>relative</Address>`), fault.ErrMalformedInput},
		{"address child", addressing.WSAddressing10, wrap10(`<Address><x/></Address>`), fault.ErrMalformedInput},
		{"duplicate identity", addressing.WSAddressing10, wrap10(`<Address>http://x/</Address>` + idXML + idXML), fault.ErrDuplicateIdentity},
		{"misplaced 1.0", addressing.WSAddressing10, wrap10(`<Address>http://x/</Address><Bogus/>`), fault.ErrMisplacedExtension},
		{"out of order", addressing.WSAddressing10, wrap10(`<Address>http://x/</Address><e:E xmlns:e="urn:e"/><ReferenceParameters/>`), fault.ErrMisplacedExtension},
		{"properties in 1.0", addressing.WSAddressing10, wrap10(`<Address>http://x/</Address><ReferenceProperties/>`), fault.ErrMisplacedExtension},
		{"misplaced 2004", addressing.WSAddressingAugust2004,
			`<a:EPR xmlns:a="` + ns2004 + `"><a:Address>http://x/</a:Address><a:Bogus/></a:EPR>`, fault.ErrMisplacedExtension},
		{"trailing element", addressing.WSAddressing10, wrap10(`<Address>http://x/</Address>`) + `<more/>`, fault.ErrMalformedInput},
		{"truncated", addressing.WSAddressing10, `<EndpointReference xmlns="` + ns10 + `"><Address>http://x/</Address>`, fault.ErrMalformedInput},
		{"stray text", addressing.WSAddressing10, wrap10(`<Address>http://x/</Address>junk`), fault.ErrMalformedInput},
		{"no dialect", nil, wrap10(`<Address>http://x/</Address>`), fault.ErrUnsupportedDialect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.v, []byte(tt.doc))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDecodeQuotas(t *testing.T) {
	big := wrap10(`<Address>http://x/</Address><e:Ext xmlns:e="urn:e">` + strings.Repeat("x", 200) + `</e:Ext>`)
	codec := NewCodec(xmlbuf.Quotas{MaxBufferSize: 64}, nil)
	_, err := codec.DecodeBytes(addressing.WSAddressing10, []byte(big))
	assert.ErrorIs(t, err, fault.ErrQuotaExceeded)

	deep := wrap10(`<Address>http://x/</Address><e:A xmlns:e="urn:e"><e:B><e:C/></e:B></e:A>`)
	codec = NewCodec(xmlbuf.Quotas{MaxDepth: 2}, nil)
	_, err = codec.DecodeBytes(addressing.WSAddressing10, []byte(deep))
	assert.ErrorIs(t, err, fault.ErrQuotaExceeded)

	_, err = Unmarshal(addressing.WSAddressing10, []byte(deep))
	assert.NoError(t, err, "default quotas allow small documents")
}

func TestZeroQuotasAreUnlimited(t *testing.T) {
	big := wrap10(`<Address>http://x/</Address><e:Ext xmlns:e="urn:e">` + strings.Repeat("x", 128*1024) + `</e:Ext>`)

	_, err := Unmarshal(addressing.WSAddressing10, []byte(big))
	assert.ErrorIs(t, err, fault.ErrQuotaExceeded, "package functions apply the default quotas")

	a, err := NewCodec(xmlbuf.Quotas{}, nil).DecodeBytes(addressing.WSAddressing10, []byte(big))
	require.NoError(t, err)
	assert.False(t, a.Extensions().IsZero())

	a, err = (&Codec{}).DecodeBytes(addressing.WSAddressing10, []byte(big))
	require.NoError(t, err)
	assert.False(t, a.Extensions().IsZero())
}

func TestEncodeMisplacedExtension(t *testing.T) {
	// A 1.0-namespace element is an ordinary extension in August-2004.
	doc := `<a:EPR xmlns:a="` + ns2004 + `"><a:Address>http://x/</a:Address><w:Foo xmlns:w="` + ns10 + `"/></a:EPR>`
	a, err := Unmarshal(addressing.WSAddressingAugust2004, []byte(doc))
	require.NoError(t, err)

	_, err = Marshal(addressing.WSAddressingAugust2004, a)
	assert.NoError(t, err)

	_, err = Marshal(addressing.WSAddressing10, a)
	assert.ErrorIs(t, err, fault.ErrMisplacedExtension)
}

func TestEncodeRootNames(t *testing.T) {
	a := MustNew("http://example.org/svc")

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	require.NoError(t, WriteTo(addressing.WSAddressing10, enc, xml.Name{Space: "urn:app", Local: "Callback"}, a))
	require.NoError(t, enc.Flush())
	assert.Equal(t,
		`<epr:Callback xmlns:epr="urn:app" xmlns:wsa="`+ns10+`"><wsa:Address>http://example.org/svc</wsa:Address></epr:Callback>`,
		buf.String())

	dec := xml.NewDecoder(&buf)
	start, err := xmlbuf.FirstElement(dec)
	require.NoError(t, err)
	assert.Equal(t, xml.Name{Space: "urn:app", Local: "Callback"}, start.Name)
	again, err := ReadFrom(addressing.WSAddressing10, dec, start)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/svc", again.String())

	buf.Reset()
	enc = xml.NewEncoder(&buf)
	require.NoError(t, WriteTo(addressing.WSAddressing10, enc, xml.Name{Local: "ReplyTo"}, a))
	require.NoError(t, enc.Flush())
	assert.True(t, strings.HasPrefix(buf.String(), `<ReplyTo xmlns:wsa=`))
}

func TestUnqualifiedExtensionKeepsEmptyNamespace(t *testing.T) {
	doc := wrap10(`<Address>http://x/</Address><plain xmlns="">text</plain>`)
	a, err := Unmarshal(addressing.WSAddressing10, []byte(doc))
	require.NoError(t, err)

	names, err := a.Extensions().Elements()
	require.NoError(t, err)
	assert.Equal(t, []xml.Name{{Local: "plain"}}, names)

	out, err := Marshal(addressing.WSAddressing10, a)
	require.NoError(t, err)
	again, err := Unmarshal(addressing.WSAddressing10, out)
	require.NoError(t, err)
	names, err = again.Extensions().Elements()
	require.NoError(t, err)
	assert.Equal(t, []xml.Name{{Local: "plain"}}, names)
}

func TestConcurrentEncode(t *testing.T) {
	a, err := Unmarshal(addressing.WSAddressingAugust2004, []byte(august2004Doc))
	require.NoError(t, err)
	want, err := Marshal(addressing.WSAddressingAugust2004, a)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Marshal(addressing.WSAddressingAugust2004, a)
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, results[i])
	}
}

type mockLogger struct {
	mock.Mock
}

func (m *mockLogger) Log(event log.Event) {
	m.Called(event)
}

func TestCodecLogsEvents(t *testing.T) {
	logger := &mockLogger{}
	codec := NewCodec(xmlbuf.Quotas{}, logger)

	logger.On("Log", mock.MatchedBy(func(e log.Event) bool {
		return e.Operation == log.OperationDecode && e.Direction == log.DirectionIn &&
			e.Dialect == "2004/08" && e.Address == "http://example.org/svc" &&
			e.HeaderCount == 2 && len(e.Sections) == 3 && e.Error == nil
	})).Return().Once()
	a, err := codec.DecodeBytes(addressing.WSAddressingAugust2004, []byte(august2004Doc))
	require.NoError(t, err)

	logger.On("Log", mock.MatchedBy(func(e log.Event) bool {
		return e.Operation == log.OperationEncode && e.Error != nil &&
			e.Error.Kind == "DIALECT_INCOMPATIBLE"
	})).Return().Once()
	_, err = codec.EncodeBytes(addressing.WSAddressing10, a)
	require.Error(t, err)

	logger.AssertExpectations(t)
	for _, call := range logger.Calls {
		e := call.Arguments.Get(0).(log.Event)
		for _, s := range e.Sections {
			assert.Len(t, s.Fingerprint, 32)
		}
	}
}
