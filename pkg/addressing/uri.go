package addressing

import (
	"net/url"
	"strings"

	"github.com/spaolacci/murmur3"
	"golang.org/x/net/idna"
	"golang.org/x/text/cases"

	"github.com/epr-protocol/epr-go/pkg/fault"
)

// defaultPorts lists the ports that compare equal to an absent port.
var defaultPorts = map[string]string{
	"http":    "80",
	"https":   "443",
	"ws":      "80",
	"wss":     "443",
	"ftp":     "21",
	"net.tcp": "808",
}

// ParseAbsolute parses s and requires an absolute URI.
func ParseAbsolute(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fault.Malformed("empty URI")
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fault.Malformed("invalid URI %q: %v", s, err)
	}
	if !u.IsAbs() {
		return nil, fault.Malformed("URI %q is not absolute", s)
	}
	return u, nil
}

// MustParseAbsolute is like ParseAbsolute but panics on error.
func MustParseAbsolute(s string) *url.URL {
	u, err := ParseAbsolute(s)
	if err != nil {
		panic(err)
	}
	return u
}

// EndpointKey returns the normalized form of u used for endpoint equality.
func EndpointKey(u *url.URL) string {
	if u == nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteByte(':')

	if u.Opaque != "" {
		b.WriteString(cases.Fold().String(u.Opaque))
		return b.String()
	}

	b.WriteString("//")
	b.WriteString(normalizeHost(u.Hostname()))
	if port := u.Port(); port != "" && port != defaultPorts[scheme] {
		b.WriteByte(':')
		b.WriteString(port)
	}
	b.WriteString(normalizePath(u.Path))
	return b.String()
}

func normalizeHost(host string) string {
	if host == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return strings.ToLower(ascii)
	}
	return strings.ToLower(host)
}

func normalizePath(p string) string {
	p = strings.TrimSuffix(p, "/")
	return cases.Fold().String(p)
}

// URIEqual reports whether a and b identify the same endpoint.
func URIEqual(a, b *url.URL) bool {
	if a == nil || b == nil {
		return a == b
	}
	return EndpointKey(a) == EndpointKey(b)
}

// URIHash returns a hash of u consistent with URIEqual.
func URIHash(u *url.URL) uint32 {
	return murmur3.Sum32([]byte(EndpointKey(u)))
}
