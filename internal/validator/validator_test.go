package validator

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// newOffline returns a validator whose resolver always fails, so tests never
// depend on DNS. IP-literal checks are unaffected.
func newOffline(maxLength int) *URLValidator {
	v := New(maxLength)
	v.lookupIP = func(string) ([]net.IP, error) {
		return nil, errors.New("no resolver in tests")
	}
	return v
}

func TestIsValid(t *testing.T) {
	v := newOffline(2048)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"https", "https://www.example.com", true},
		{"http", "http://example.com", true},
		{"path and query", "https://example.com:8080/path?query=1", true},
		{"empty", "", false},
		{"no scheme", "not-a-url", false},
		{"ftp", "ftp://example.com", false},
		{"javascript", "javascript:alert('xss')", false},
		{"data", "data:text/html,<script>alert('xss')</script>", false},
		{"file", "file:///etc/passwd", false},
		{"bare scheme", "https://", false},
		{"leading dot host", "https://.example.com", false},
		{"trailing dot host", "https://example.com.", false},
		{"loopback literal", "http://127.0.0.1", false},
		{"private literal", "http://192.168.1.1/admin", false},
		{"ten-net literal", "http://10.0.0.1", false},
		{"link-local literal", "http://169.254.1.1", false},
		{"public literal", "http://93.184.216.34", true},
		{"blocklisted", "https://malicious-site.com/login", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.IsValid(tt.url))
		})
	}
}

func TestIsValidLengthCeiling(t *testing.T) {
	v := newOffline(50)

	assert.True(t, v.IsValid("https://example.com"))
	assert.False(t, v.IsValid("https://example.com/"+strings.Repeat("a", 100)))
}

func TestResolverFailureDoesNotFailValidation(t *testing.T) {
	// Unresolvable hosts cannot be confirmed private, so they pass.
	v := newOffline(2048)
	assert.True(t, v.IsValid("https://definitely-not-resolvable.example"))
}

func TestHostResolvingToPrivateIPIsRejected(t *testing.T) {
	v := New(2048)
	v.lookupIP = func(string) ([]net.IP, error) {
		return []net.IP{net.ParseIP("10.1.2.3")}, nil
	}
	assert.False(t, v.IsValid("https://internal.example.com"))
}

func TestIsSafe(t *testing.T) {
	v := newOffline(2048)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"plain", "https://www.google.com", true},
		{"repo path", "https://github.com/user/repo", true},
		{"suspicious tld", "https://free-stuff.tk", false},
		{"many hyphens", "https://a-b-c-d-e-f-g.example.com", false},
		{"traversal path", "https://example.com/../../etc/passwd", false},
		{"script in path", "https://example.com/<script>alert(1)", false},
		{"invalid is unsafe", "javascript:alert(1)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.IsSafe(tt.url))
		})
	}
}

func TestNormalize(t *testing.T) {
	v := newOffline(2048)

	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"  example.com  ", "https://example.com"},
		{"http://EXAMPLE.COM", "http://example.com"},
		{"https://example.com:443", "https://example.com"},
		{"http://example.com:80", "http://example.com"},
		{"https://example.com:8443/path", "https://example.com:8443/path"},
		{"https://Example.com/Path?Q=1", "https://example.com/Path?Q=1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	v := newOffline(2048)

	inputs := []string{
		"example.com",
		"http://EXAMPLE.COM:80/path",
		"https://sub.example.com:8443/a?b=c",
		" https://example.com:443 ",
	}
	for _, in := range inputs {
		once := v.Normalize(in)
		assert.Equal(t, once, v.Normalize(once), "normalize must be idempotent for %q", in)
	}
}
