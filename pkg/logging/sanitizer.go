// Package logging scrubs credentials and personal data from values before
// they reach the zap logs.
package logging

import (
	"regexp"
	"strings"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// password=xxx, pwd=xxx, pass=xxx (until the next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Bearer headers and bare three-segment JWTs (access and refresh tokens).
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)
	jwtPattern    = regexp.MustCompile(`eyJ[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+`)

	// LLM gateway keys: key=... query params and sk-... secrets.
	apiKeyPattern   = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)
	skSecretPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9-_]{16,}`)

	// user:pass@host in URLs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes credentials from a PostgreSQL or Redis
// connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeError returns the error text with tokens, keys and passwords removed.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	s := err.Error()
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = jwtPattern.ReplaceAllString(s, RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = skSecretPattern.ReplaceAllString(s, RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	return s
}

// SanitizeEmail keeps the first character of the local part and the domain,
// enough to correlate log lines without recording the address.
func SanitizeEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return RedactedText
	}
	return email[:1] + "***" + email[at:]
}

// TruncateString shortens s to at most maxLen runes plus an ellipsis.
// Used for LLM responses, which can be large.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
