package epr

import (
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

func fullAddress(t *testing.T) *EndpointAddress {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.SetURI("http://example.org/svc"))
	b.AddHeader(header.New("A", "urn:x", "1"))
	b.AddHeader(header.New("B", "urn:x", "2"))
	b.SetIdentity(identity.NewSPN("host/example.org"))
	require.NoError(t, b.SetMetadata([]byte(`<m:Info xmlns:m="urn:m">v</m:Info>`)))
	require.NoError(t, b.SetExtensions([]byte(`<e:One xmlns:e="urn:e"/><e:Two xmlns:e="urn:e">2</e:Two>`)))
	a, err := b.Freeze()
	require.NoError(t, err)
	return a
}

func TestBuilderRoundTripPerDialect(t *testing.T) {
	a := fullAddress(t)
	for _, v := range []*addressing.Version{addressing.WSAddressing10, addressing.WSAddressingAugust2004} {
		t.Run(v.String(), func(t *testing.T) {
			out, err := Marshal(v, a)
			require.NoError(t, err)
			decoded, err := Unmarshal(v, out)
			require.NoError(t, err)

			eq, err := a.EndpointEquals(decoded)
			require.NoError(t, err)
			assert.True(t, eq, "%s", out)

			want, err := a.Extensions().Payload()
			require.NoError(t, err)
			got, err := decoded.Extensions().Payload()
			require.NoError(t, err)
			assert.Equal(t, string(want), string(got))

			want, err = a.Metadata().Payload()
			require.NoError(t, err)
			got, err = decoded.Metadata().Payload()
			require.NoError(t, err)
			assert.Equal(t, string(want), string(got))
		})
	}
}

func TestBuilderSharesSectionsUntilWritten(t *testing.T) {
	src := fullAddress(t)

	b := NewBuilderFrom(src)
	same, err := b.Freeze()
	require.NoError(t, err)
	assert.Equal(t, src.Metadata(), same.Metadata(), "untouched sections are shared")
	assert.Equal(t, src.Extensions(), same.Extensions())

	require.NoError(t, b.SetMetadata([]byte(`<m:Other xmlns:m="urn:m"/>`)))
	changed, err := b.Freeze()
	require.NoError(t, err)
	assert.NotEqual(t, src.Metadata().Fingerprint(), changed.Metadata().Fingerprint())
	assert.Equal(t, src.Extensions(), changed.Extensions(), "only the written section is replaced")

	payload, err := src.Metadata().Payload()
	require.NoError(t, err)
	assert.Equal(t, `<Info xmlns="urn:m">v</Info>`, string(payload), "source is untouched")
}

func TestBuilderFreezeIsIsolated(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetURI("http://example.org/svc"))
	b.AddHeader(header.New("A", "urn:x", "1"))
	a, err := b.Freeze()
	require.NoError(t, err)

	b.AddHeader(header.New("B", "urn:x", "2"))
	require.NoError(t, b.SetURI("http://other.example/"))
	assert.Equal(t, 1, a.Headers().Len())
	assert.Equal(t, "http://example.org/svc", a.String())
	assert.Len(t, b.Headers(), 2)

	b.SetHeaders()
	assert.Empty(t, b.Headers())
}

func TestBuilderAccessors(t *testing.T) {
	src := fullAddress(t)
	b := NewBuilderFrom(src)

	assert.Equal(t, "http://example.org/svc", b.URI().String())
	assert.Same(t, src.Identity(), b.Identity())
	assert.Len(t, b.Headers(), 2)

	dec, err := b.MetadataReader()
	require.NoError(t, err)
	start, ok, err := xmlbuf.NextElement(dec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Info", start.Name.Local)

	dec, err = b.ExtensionsReader()
	require.NoError(t, err)
	start, ok, err = xmlbuf.NextElement(dec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "One", start.Name.Local)

	require.NoError(t, b.SetMetadata(nil))
	_, err = b.MetadataReader()
	assert.Error(t, err, "cleared metadata has no reader")

	b.SetMetadataSection(src.Metadata())
	_, err = b.MetadataReader()
	assert.NoError(t, err)

	b.SetExtensionsSection(xmlbuf.Section{})
	assert.True(t, mustFreeze(t, b).Extensions().IsZero())

	b.SetIdentity(nil)
	assert.Nil(t, mustFreeze(t, b).Identity())
}

func mustFreeze(t *testing.T, b *Builder) *EndpointAddress {
	t.Helper()
	a, err := b.Freeze()
	require.NoError(t, err)
	return a
}

func TestBuilderErrors(t *testing.T) {
	b := NewBuilder()
	_, err := b.Freeze()
	assert.ErrorIs(t, err, fault.ErrMalformedInput, "no URI")

	assert.ErrorIs(t, b.SetURI("relative"), fault.ErrMalformedInput)
	assert.Nil(t, b.URI())

	err = b.SetMetadata([]byte(`<unclosed>`))
	assert.ErrorIs(t, err, fault.ErrMalformedInput)

	b.SetQuotas(xmlbuf.Quotas{MaxBufferSize: 16})
	err = b.SetMetadata([]byte(`<m:Info xmlns:m="urn:m">long enough to overflow</m:Info>`))
	assert.ErrorIs(t, err, fault.ErrQuotaExceeded)
}

func TestBuilderExtensionsCheckedPerDialect(t *testing.T) {
	doc := `<a:EPR xmlns:a="` + addressing.NamespaceAugust2004 + `"><a:Address>http://x/</a:Address>` +
		`<w:Foo xmlns:w="` + addressing.Namespace10 + `"/></a:EPR>`
	src, err := Unmarshal(addressing.WSAddressingAugust2004, []byte(doc))
	require.NoError(t, err)

	b := NewBuilderFrom(src)
	b.SetExtensionsSection(src.Extensions())
	a := mustFreeze(t, b)
	_, err = Marshal(addressing.WSAddressingAugust2004, a)
	assert.NoError(t, err)
	_, err = Marshal(addressing.WSAddressing10, a)
	assert.ErrorIs(t, err, fault.ErrMisplacedExtension)

	b = NewBuilder()
	require.NoError(t, b.SetURI("http://x/"))
	require.NoError(t, b.SetExtensions([]byte(`<w:Foo xmlns:w="`+addressing.Namespace10+`"/>`)))
	a = mustFreeze(t, b)
	_, err = Marshal(addressing.WSAddressing10, a)
	assert.ErrorIs(t, err, fault.ErrMisplacedExtension)
	_, err = Marshal(addressing.WSAddressingAugust2004, a)
	assert.NoError(t, err)
}

func TestBuilderPinsSentinels(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetURI(addressing.NoneURI))
	b.AddHeader(header.New("A", "urn:x", "1"))
	a := mustFreeze(t, b)
	assert.True(t, a.IsNone())
	assert.Equal(t, addressing.NoneURI, a.String())
}

func TestBuilderLogsFreeze(t *testing.T) {
	logger := &mockLogger{}
	logger.On("Log", mock.MatchedBy(func(e log.Event) bool {
		return e.Operation == log.OperationBuild && e.Address == "http://example.org/svc" && e.Error == nil
	})).Return().Once()

	b := NewBuilder().SetLogger(logger)
	require.NoError(t, b.SetURI("http://example.org/svc"))
	_, err := b.Freeze()
	require.NoError(t, err)
	logger.AssertExpectations(t)
}
