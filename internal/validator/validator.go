package validator

import (
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

// Schemes the service will never redirect to.
var blockedSchemes = map[string]bool{
	"javascript": true,
	"data":       true,
	"vbscript":   true,
	"file":       true,
	"ftp":        true,
}

var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// Free TLDs that are heavily abused for phishing.
var suspiciousTLDs = map[string]bool{
	"tk": true,
	"ml": true,
	"ga": true,
	"cf": true,
}

var blockedDomains = map[string]bool{
	"malicious-site.com":   true,
	"phishing-example.com": true,
}

var domainPattern = regexp.MustCompile(
	`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`,
)

var suspiciousPathPatterns = []string{
	"../",
	"<script",
	"javascript:",
	"data:",
}

// URLValidator gatekeeps target URLs before they are persisted.
type URLValidator struct {
	maxLength int

	// lookupIP is swappable so tests do not depend on a resolver.
	lookupIP func(host string) ([]net.IP, error)
}

// New creates a validator with the given maximum URL length.
func New(maxLength int) *URLValidator {
	return &URLValidator{
		maxLength: maxLength,
		lookupIP:  net.LookupIP,
	}
}

// IsValid reports whether the URL is acceptable as a redirect target:
// sane length, http/https scheme, well-formed public host, not blocklisted.
func (v *URLValidator) IsValid(rawURL string) bool {
	if rawURL == "" || len(rawURL) > v.maxLength {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	if blockedSchemes[scheme] || !allowedSchemes[scheme] {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if !v.checkHost(host) {
		return false
	}
	if blockedDomains[host] {
		return false
	}
	if v.pointsToPrivateIP(host) {
		return false
	}
	return true
}

// IsSafe applies IsValid plus heuristics for suspicious domains and paths.
func (v *URLValidator) IsSafe(rawURL string) bool {
	if !v.IsValid(rawURL) {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if v.suspiciousDomain(host) {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, pattern := range suspiciousPathPatterns {
		if strings.Contains(path, pattern) {
			return false
		}
	}
	return true
}

// Normalize trims whitespace, defaults a missing scheme to https, lowercases
// the host, and strips the scheme's default port. Idempotent:
// Normalize(Normalize(u)) == Normalize(u).
func (v *URLValidator) Normalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}

	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	host := strings.ToLower(parsed.Hostname())
	port := parsed.Port()
	switch {
	case port == "" ||
		(parsed.Scheme == "http" && port == "80") ||
		(parsed.Scheme == "https" && port == "443"):
		parsed.Host = host
	default:
		parsed.Host = host + ":" + port
	}

	return parsed.String()
}

func (v *URLValidator) checkHost(host string) bool {
	if host == "" || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return false
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	return domainPattern.MatchString(host)
}

// pointsToPrivateIP reports whether the host is, or resolves to, a private,
// loopback, or link-local address. A resolution failure means "cannot
// confirm private" and does not fail validation.
func (v *URLValidator) pointsToPrivateIP(host string) bool {
	if addr, err := netip.ParseAddr(host); err == nil {
		return isPrivateAddr(addr)
	}

	ips, err := v.lookupIP(host)
	if err != nil {
		return false
	}
	for _, ip := range ips {
		if addr, ok := netip.AddrFromSlice(ip); ok && isPrivateAddr(addr.Unmap()) {
			return true
		}
	}
	return false
}

func isPrivateAddr(addr netip.Addr) bool {
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}

func (v *URLValidator) suspiciousDomain(host string) bool {
	if len(host) > 100 {
		return true
	}
	if strings.Count(host, "-") > 5 {
		return true
	}
	parts := strings.Split(host, ".")
	if len(parts) > 1 && suspiciousTLDs[parts[len(parts)-1]] {
		return true
	}
	return false
}
