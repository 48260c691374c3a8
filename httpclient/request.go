// httpclient/request.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/deploymenttheory/go-vmconsole-client/response"
	"github.com/deploymenttheory/go-vmconsole-client/status"
	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// DoRequest sends one request to endpoint (relative to the base address) and decodes a 2xx
// body into out. There are no retries.
//
// body may be nil, url.Values (sent as a form), io.Reader or []byte (sent as is), or any
// other value (sent as JSON). Non-2xx responses are returned as *response.APIError; a 401
// additionally wraps ErrUnauthorized and, by the time it is returned, the credential has
// been cleared and the unauthorized handler has run.
//
// The returned response's body has already been consumed and closed.
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, body, out any) (*http.Response, error) {
	log := c.Logger

	if !IsSupportedHTTPMethod(method) {
		return nil, log.Error("HTTP method not supported", zap.String("method", method))
	}

	req, err := c.NewRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if status.IsSuccess(resp.StatusCode) {
		if err := response.HandleAPISuccessResponse(resp, out, log); err != nil {
			return resp, fmt.Errorf("%s %s: %w", method, req.URL.Redacted(), err)
		}
		return resp, nil
	}

	apiErr := response.HandleAPIErrorResponse(resp, log)
	if status.IsUnauthorized(resp.StatusCode) {
		return resp, fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	}
	return resp, apiErr
}

// NewRequest builds a request for endpoint with body encoded as described on DoRequest.
func (c *Client) NewRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	target, err := c.ResolveURL(endpoint)
	if err != nil {
		return nil, err
	}

	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// encodeBody returns the request body reader and the Content-Type it implies, "" when the
// client default applies.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case url.Values:
		return strings.NewReader(b.Encode()), contentTypeForm, nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "", nil
	case io.Reader:
		return b, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), contentTypeJSON, nil
	}
}
