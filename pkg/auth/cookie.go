package auth

import (
	"net/url"
)

// CookieSettings contains cookie security settings derived from base URL.
type CookieSettings struct {
	// Secure indicates whether the cookie should only be sent over HTTPS.
	Secure bool
	// Domain is the cookie domain scope; empty scopes it to the exact host.
	Domain string
}

// DeriveCookieSettings determines cookie settings from the server base URL.
//   - http://localhost:3480 → Secure: false, Domain: ""
//   - https://notebook.example.org → Secure: true, Domain: ""
//
// A non-empty configCookieDomain overrides the domain (e.g. ".example.org"
// to share the session across subdomains).
func DeriveCookieSettings(baseURL string, configCookieDomain string) CookieSettings {
	return CookieSettings{
		Secure: isHTTPS(baseURL),
		Domain: configCookieDomain,
	}
}

// isHTTPS determines if the given base URL uses HTTPS protocol.
// Returns true for HTTPS, false for HTTP, true for empty/invalid URLs (safe default).
func isHTTPS(baseURL string) bool {
	if baseURL == "" {
		return true
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return true
	}

	return parsedURL.Scheme != "http"
}
