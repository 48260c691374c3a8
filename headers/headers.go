// headers/headers.go
package headers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-vmconsole-client/headers/redact"
	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	bearerPrefix = "Bearer "
)

// HeaderHandler is responsible for managing and setting headers on HTTP requests.
type HeaderHandler struct {
	req *http.Request // The http.Request for which headers are being managed
}

// NewHeaderHandler creates a new instance of HeaderHandler for a given http.Request.
func NewHeaderHandler(req *http.Request) *HeaderHandler {
	return &HeaderHandler{req: req}
}

// SetAuthorization sets the Authorization header to exactly "Bearer <token>".
// An empty token removes the header instead.
func (h *HeaderHandler) SetAuthorization(token string) {
	if token == "" {
		h.req.Header.Del("Authorization")
		return
	}
	h.req.Header.Set("Authorization", bearerPrefix+token)
}

// SetContentType sets the Content-Type header unless the request already has one.
func (h *HeaderHandler) SetContentType(contentType string) {
	if contentType == "" || h.req.Header.Get("Content-Type") != "" {
		return
	}
	h.req.Header.Set("Content-Type", contentType)
}

// SetAccept sets the Accept header unless the request already has one.
func (h *HeaderHandler) SetAccept(acceptHeader string) {
	if acceptHeader == "" || h.req.Header.Get("Accept") != "" {
		return
	}
	h.req.Header.Set("Accept", acceptHeader)
}

// SetUserAgent sets the User-Agent header for the request.
func (h *HeaderHandler) SetUserAgent(userAgent string) {
	h.req.Header.Set("User-Agent", userAgent)
}

// SetRequestID sets the X-Request-ID header.
func (h *HeaderHandler) SetRequestID(id string) {
	h.req.Header.Set(RequestIDHeader, id)
}

// RedactedHeadersString renders headers for logging with sensitive values redacted.
func RedactedHeadersString(header http.Header, hideSensitiveData bool) string {
	redactedHeaders := http.Header{}
	for name, values := range header {
		for _, v := range values {
			redactedHeaders.Add(name, redact.RedactSensitiveHeaderData(hideSensitiveData, name, v))
		}
	}
	return HeadersToString(redactedHeaders)
}

// HeadersToString converts a http.Header to a string for logging,
// with each header on a new line, sorted by name.
func HeadersToString(headers http.Header) string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	headerStrings := make([]string, 0, len(names))
	for _, name := range names {
		headerStrings = append(headerStrings, fmt.Sprintf("%s: %s", name, strings.Join(headers[name], ", ")))
	}
	return strings.Join(headerStrings, "\n")
}

// CheckDeprecationHeader checks the response headers for the Deprecation header and logs a warning if present.
func CheckDeprecationHeader(resp *http.Response, log logger.Logger) {
	deprecationHeader := resp.Header.Get("Deprecation")
	if deprecationHeader == "" || resp.Request == nil {
		return
	}
	log.Warn("API endpoint is deprecated",
		zap.String("date", deprecationHeader),
		zap.String("endpoint", resp.Request.URL.String()),
	)
}
