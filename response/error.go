// response/error.go
// This package provides utility functions and structures for handling and categorizing HTTP error responses.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/deploymenttheory/go-vmconsole-client/status"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// maxErrorBody bounds how much of an error body is kept for diagnostics.
const maxErrorBody = 64 << 10

// APIError represents an api error response.
type APIError struct {
	StatusCode  int               `json:"status_code"`          // HTTP status code
	Method      string            `json:"method"`               // HTTP method used for the request
	URL         string            `json:"url"`                  // The URL of the HTTP request
	Message     string            `json:"message"`              // Summary of the error
	Detail      string            `json:"detail,omitempty"`     // Backend supplied reason, if any
	Validation  []ValidationError `json:"validation,omitempty"` // Field errors from a 422 response
	RawResponse string            `json:"raw_response"`         // Raw response body for debugging
}

// ValidationError is one entry of a FastAPI style 422 "detail" list.
type ValidationError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// Field renders the location of the error as a dotted path, e.g. "body.username".
func (v ValidationError) Field() string {
	parts := make([]string, 0, len(v.Loc))
	for _, l := range v.Loc {
		parts = append(parts, fmt.Sprint(l))
	}
	return strings.Join(parts, ".")
}

// Error returns a single line description of the failed call.
func (e *APIError) Error() string {
	reason := e.Detail
	if reason == "" {
		reason = e.Message
	}
	if reason == "" {
		reason = status.TranslateStatusCode(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), reason)
}

// HandleAPIErrorResponse builds an APIError from a non-2xx response. The body is read and
// interpreted by content type; the caller still owns closing it.
func HandleAPIErrorResponse(resp *http.Response, log logger.Logger) *APIError {
	apiError := &APIError{
		StatusCode: resp.StatusCode,
		Message:    status.TranslateStatusCode(resp.StatusCode),
	}
	if resp.Request != nil {
		apiError.Method = resp.Request.Method
		apiError.URL = resp.Request.URL.String()
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		apiError.RawResponse = "Failed to read response body"
		log.Debug("Failed to read error response body", zap.Error(err), zap.Int("status_code", resp.StatusCode))
		return apiError
	}
	apiError.RawResponse = string(bodyBytes)
	if len(bytes.TrimSpace(bodyBytes)) == 0 {
		return apiError
	}

	mimeType, _ := parseHeader(resp.Header.Get("Content-Type"))
	switch mimeType {
	case "application/json", "application/problem+json":
		parseJSONResponse(bodyBytes, apiError)
	case "application/xml", "text/xml":
		parseXMLResponse(bodyBytes, apiError)
	case "text/html":
		parseHTMLResponse(bodyBytes, apiError)
	case "text/plain":
		parseTextResponse(bodyBytes, apiError)
	}

	log.Debug("API error response",
		zap.Int("status_code", apiError.StatusCode),
		zap.String("method", apiError.Method),
		zap.String("url", apiError.URL),
		zap.String("detail", apiError.Detail),
	)
	return apiError
}

// parseJSONResponse reads "detail" (string or validation list) and "message" keys.
func parseJSONResponse(bodyBytes []byte, apiError *APIError) {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		return
	}
	if body.Message != "" {
		apiError.Message = body.Message
	}
	if len(body.Detail) == 0 {
		return
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		apiError.Detail = detail
		return
	}

	var validation []ValidationError
	if err := json.Unmarshal(body.Detail, &validation); err == nil && len(validation) > 0 {
		apiError.Validation = validation
		msgs := make([]string, 0, len(validation))
		for _, v := range validation {
			msgs = append(msgs, fmt.Sprintf("%s: %s", v.Field(), v.Msg))
		}
		apiError.Detail = strings.Join(msgs, "; ")
	}
}

// parseXMLResponse dynamically parses XML error responses and accumulates potential error messages.
func parseXMLResponse(bodyBytes []byte, apiError *APIError) {
	doc, err := xmlquery.Parse(bytes.NewReader(bodyBytes))
	if err != nil {
		return
	}

	if node := xmlquery.FindOne(doc, "//detail"); node != nil {
		apiError.Detail = strings.TrimSpace(node.InnerText())
		return
	}

	var messages []string
	var traverse func(*xmlquery.Node)
	traverse = func(n *xmlquery.Node) {
		if n.Type == xmlquery.TextNode && strings.TrimSpace(n.Data) != "" {
			messages = append(messages, strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	if len(messages) > 0 {
		apiError.Detail = strings.Join(messages, "; ")
	}
}

// parseTextResponse uses the body as the detail.
func parseTextResponse(bodyBytes []byte, apiError *APIError) {
	apiError.Detail = strings.TrimSpace(string(bodyBytes))
}

// parseHTMLResponse concatenates the text of <title>, <h1> and <p> elements, which is where
// reverse proxies put the reason on their error pages.
func parseHTMLResponse(bodyBytes []byte, apiError *APIError) {
	doc, err := html.Parse(bytes.NewReader(bodyBytes))
	if err != nil {
		return
	}

	var messages []string
	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "h1" || n.Data == "title") {
			if text := nodeText(n); text != "" {
				messages = append(messages, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}
	parse(doc)

	if len(messages) > 0 {
		apiError.Detail = strings.Join(dedupe(messages), "; ")
	}
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch {
		case c.Type == html.TextNode:
			if s := strings.TrimSpace(c.Data); s != "" {
				b.WriteString(s + " ")
			}
		case c.Type == html.ElementNode && c.Data == "a":
			for _, attr := range c.Attr {
				if attr.Key == "href" {
					b.WriteString("[Link: " + attr.Val + "] ")
					break
				}
			}
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
