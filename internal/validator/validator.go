package validator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// defaultValidator backs the package-level Normalize
var defaultValidator = NewURLValidator()

// URLValidator validates long URLs and turns them into their canonical form
type URLValidator struct {
	maxLength      int
	allowedSchemes []string
}

// NewURLValidator creates a validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		maxLength:      2048,
		allowedSchemes: []string{"http", "https"},
	}
}

// Normalize validates rawURL with the default validator
func Normalize(rawURL string) (string, error) {
	return defaultValidator.Normalize(rawURL)
}

// Normalize checks that rawURL is an absolute http(s) URL with a host and
// returns its canonical string: lower-case scheme and host, no default
// port, and "/" for an empty path.
//
//	"HTTPS://Example.com"        -> "https://example.com/"
//	"http://example.com:80/a?b"  -> "http://example.com/a?b"
func (v *URLValidator) Normalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("url is required")
	}

	if len(rawURL) > v.maxLength {
		return "", fmt.Errorf("url exceeds maximum length of %d characters", v.maxLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if u.Scheme == "" {
		return "", errors.New("relative URL without a base")
	}

	if !v.isAllowedScheme(u.Scheme) {
		return "", fmt.Errorf("unsupported scheme %q (must be %s)", u.Scheme, strings.Join(v.allowedSchemes, " or "))
	}

	if u.Opaque != "" || u.Host == "" {
		return "", errors.New("url must have a valid host")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHost(u)
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u.String(), nil
}

// ============================================================
// HELPER METHODS
// ============================================================

func (v *URLValidator) isAllowedScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Host)

	port := u.Port()
	if port == "" || port != defaultPorts[u.Scheme] {
		return host
	}

	hostname := strings.ToLower(u.Hostname())
	if strings.Contains(hostname, ":") {
		return "[" + hostname + "]"
	}
	return hostname
}

// ============================================================
// CONFIGURATION METHODS
// ============================================================

// WithMaxLength sets maximum URL length
func (v *URLValidator) WithMaxLength(length int) *URLValidator {
	v.maxLength = length
	return v
}
