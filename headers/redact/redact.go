// headers/redact/redact.go
package redact

import (
	"net/http"
	"strings"
)

// Redacted replaces sensitive values in logs.
const Redacted = "REDACTED"

// sensitiveKeys are compared in canonical header form.
var sensitiveKeys = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
	"Accesstoken":   true,
}

// RedactSensitiveHeaderData redacts sensitive data based on the hideSensitiveData flag.
// The bearer scheme is kept so logs still show which kind of credential was sent.
func RedactSensitiveHeaderData(hideSensitiveData bool, key, value string) string {
	if !hideSensitiveData || !sensitiveKeys[http.CanonicalHeaderKey(key)] {
		return value
	}
	if scheme, _, found := strings.Cut(value, " "); found && strings.EqualFold(scheme, "Bearer") {
		return scheme + " " + Redacted
	}
	return Redacted
}

// RedactFormValue redacts the password field of a login form.
func RedactFormValue(hideSensitiveData bool, key, value string) string {
	if hideSensitiveData && strings.EqualFold(key, "password") {
		return Redacted
	}
	return value
}
