package addressing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epr-protocol/epr-go/pkg/fault"
)

func TestURIEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"default port and host case", "http://host:80/a/", "http://HOST/a", true},
		{"query ignored", "http://host/a?x=1", "http://host/a", true},
		{"fragment ignored", "http://host/a#frag", "http://host/a", true},
		{"user info ignored", "http://user:pw@host/a", "http://host/a", true},
		{"path case", "http://host/Service/Echo", "http://host/service/echo", true},
		{"empty path", "http://host", "http://host/", true},
		{"https default port", "https://host:443/x", "https://host/x", true},
		{"tcp default port", "net.tcp://host:808/x", "net.tcp://host/x", true},
		{"scheme case", "HTTP://host/a", "http://host/a", true},
		{"idn host", "http://bücher.example/a", "http://xn--bcher-kva.example/a", true},
		{"different port", "http://host:8080/a", "http://host/a", false},
		{"different scheme", "https://host/a", "http://host/a", false},
		{"different host", "http://host1/a", "http://host2/a", false},
		{"different path", "http://host/a/b", "http://host/a", false},
		{"urn case", "urn:Example:Svc", "urn:example:svc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := MustParseAbsolute(tt.a)
			b := MustParseAbsolute(tt.b)
			assert.Equal(t, tt.equal, URIEqual(a, b), "keys %q vs %q", EndpointKey(a), EndpointKey(b))
			if tt.equal {
				assert.Equal(t, URIHash(a), URIHash(b))
			}
		})
	}
}

func TestParseAbsolute(t *testing.T) {
	u, err := ParseAbsolute("http://example.org/svc")
	require.NoError(t, err)
	assert.Equal(t, "example.org", u.Host)

	for _, bad := range []string{"", "   ", "relative/path", "/abs/path", "http://[::1"} {
		_, err := ParseAbsolute(bad)
		assert.ErrorIs(t, err, fault.ErrMalformedInput, "input %q", bad)
	}
}

func TestURIEqualNil(t *testing.T) {
	assert.True(t, URIEqual(nil, nil))
	assert.False(t, URIEqual(nil, MustParseAbsolute("http://host")))
}
