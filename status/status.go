// status.go
// Package status classifies HTTP status codes the way the console client interprets them.
// Only 401 carries special meaning; everything else is either success or a plain failure.
package status

import (
	"fmt"
	"net/http"
)

// IsSuccess reports whether statusCode is in the 2xx range.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsUnauthorized reports whether statusCode signals a missing, invalid or expired credential.
func IsUnauthorized(statusCode int) bool {
	return statusCode == http.StatusUnauthorized
}

// IsRedirectStatusCode checks if the provided HTTP status code is one of the redirect codes.
// Redirect status codes instruct the client to make a new request to a different URI, as defined in the response's Location header.
//
// - 301 Moved Permanently: The requested resource has been assigned a new permanent URI.
// - 302 Found: The requested resource resides temporarily under a different URI.
// - 303 See Other: The response can be found under a different URI and should be retrieved using GET.
// - 307 Temporary Redirect: Temporary move, the request method must not change.
// - 308 Permanent Redirect: Permanent move, the request method must not change.
func IsRedirectStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// IsPermanentRedirect checks if the provided HTTP status code is one of the permanent redirect codes.
func IsPermanentRedirect(statusCode int) bool {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// IsClientError reports whether statusCode is in the 4xx range.
func IsClientError(statusCode int) bool {
	return statusCode >= 400 && statusCode < 500
}

// IsServerError reports whether statusCode is in the 5xx range.
func IsServerError(statusCode int) bool {
	return statusCode >= 500 && statusCode < 600
}

// messages carries console specific wording for the codes the VM backend actually returns.
var messages = map[int]string{
	http.StatusUnauthorized:        "Authentication required: the credential is missing, invalid or expired",
	http.StatusForbidden:           "Access denied: the user is not allowed to manage this VM",
	http.StatusNotFound:            "Resource not found: the VM or endpoint does not exist",
	http.StatusUnprocessableEntity: "Request rejected: the submitted fields failed validation",
	http.StatusInternalServerError: "Backend error: the VM operation failed on the server",
	http.StatusBadGateway:          "Backend unreachable: the hypervisor did not answer",
	http.StatusServiceUnavailable:  "Backend unavailable: try again later",
	http.StatusGatewayTimeout:      "Backend timeout: the hypervisor did not answer in time",
}

// TranslateStatusCode returns a human readable description of statusCode.
func TranslateStatusCode(statusCode int) string {
	if msg, ok := messages[statusCode]; ok {
		return msg
	}
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("Unknown status code %d", statusCode)
}
