// httpclient/middleware.go
package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/deploymenttheory/go-vmconsole-client/concurrency"
	"github.com/deploymenttheory/go-vmconsole-client/cookiejar"
	"github.com/deploymenttheory/go-vmconsole-client/headers"
	"github.com/deploymenttheory/go-vmconsole-client/headers/redact"
	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"go.uber.org/zap"
)

// Middleware wraps a RoundTripper. Request transforms happen before calling next; response
// handling happens after it returns.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// Chain composes middlewares around base. The first middleware is the outermost.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// cloneRequest gives a middleware its own copy of the headers; a RoundTripper must not
// modify the caller's request.
func cloneRequest(req *http.Request) *http.Request {
	return req.Clone(req.Context())
}

// RequestID stamps X-Request-ID from the request context, generating one when missing.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx, id := concurrency.EnsureRequestID(req.Context())
			r := req.Clone(ctx)
			if r.Header.Get(headers.RequestIDHeader) == "" {
				headers.NewHeaderHandler(r).SetRequestID(id.String())
			}
			return next.RoundTrip(r)
		})
	}
}

// Concurrency takes a slot from ch for each request and records the result. The slot is
// held until the response body is closed, or released at once when the round trip fails.
func Concurrency(ch *concurrency.ConcurrencyHandler) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx, requestID, err := ch.AcquireConcurrencyToken(req.Context())
			if err != nil {
				return nil, err
			}
			release := sync.OnceFunc(func() { ch.ReleaseConcurrencyToken(requestID) })

			start := time.Now()
			resp, err := next.RoundTrip(req.WithContext(ctx))
			if err != nil {
				release()
				return resp, err
			}
			ch.RecordResponse(resp.StatusCode, time.Since(start))

			if resp.Body == nil {
				release()
				return resp, nil
			}
			resp.Body = &releasingBody{ReadCloser: resp.Body, release: release}
			return resp, nil
		})
	}
}

// releasingBody returns the concurrency slot on the first Close.
type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}

// DefaultHeaders sets Accept, Content-Type (only when the request has a body) and
// User-Agent unless the request already carries them.
func DefaultHeaders(accept, contentType, userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			r := cloneRequest(req)
			h := headers.NewHeaderHandler(r)
			h.SetAccept(accept)
			if r.Body != nil && r.Body != http.NoBody {
				h.SetContentType(contentType)
			}
			if userAgent != "" && r.Header.Get("User-Agent") == "" {
				h.SetUserAgent(userAgent)
			}
			return next.RoundTrip(r)
		})
	}
}

// BearerToken sets "Authorization: Bearer <token>" when store holds a credential and the
// request targets host. Requests to other hosts (redirect targets) never receive it.
func BearerToken(store session.Store, host string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.EqualFold(req.URL.Host, host) {
				return next.RoundTrip(req)
			}
			token, err := store.Get(req.Context())
			if err != nil {
				return nil, err
			}
			if token == "" {
				return next.RoundTrip(req)
			}
			r := cloneRequest(req)
			headers.NewHeaderHandler(r).SetAuthorization(token)
			return next.RoundTrip(r)
		})
	}
}

// Unauthorized clears the credential on every 401 response and then runs onUnauthorized
// exactly once for that response. The 401 response itself is passed on unchanged.
func Unauthorized(store session.Store, onUnauthorized UnauthorizedHandler, log logger.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}

			// The request may already be cancelled; eviction and navigation still happen.
			ctx := context.WithoutCancel(req.Context())
			hadCredential := session.HasCredential(ctx, store)
			if clearErr := store.Clear(ctx); clearErr != nil {
				log.Warn("Failed to clear credential after 401", zap.Error(clearErr))
			}

			requestID := ""
			if id, ok := concurrency.RequestIDFromContext(req.Context()); ok {
				requestID = id.String()
			}
			logger.LogUnauthorized(log, requestID, req.Method, req.URL.String(), hadCredential)

			if onUnauthorized != nil {
				onUnauthorized(ctx, req)
			}
			return resp, nil
		})
	}
}

// Logging logs every round trip with headers and form fields redacted according to
// hideSensitiveData and warns about deprecated endpoints.
func Logging(log logger.Logger, hideSensitiveData bool) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			requestID := req.Header.Get(headers.RequestIDHeader)
			url := req.URL.String()

			if log.GetLogLevel() <= logger.LogLevelDebug {
				logger.LogRequestStart(log, requestID, req.Method, url, headers.RedactedHeadersString(req.Header, hideSensitiveData))
				logFormBody(log, req, requestID, hideSensitiveData)
			}

			start := time.Now()
			resp, err := next.RoundTrip(req)
			if err != nil {
				logger.LogError(log, requestID, req.Method, url, 0, err)
				return nil, err
			}

			logger.LogRequestEnd(log, requestID, req.Method, url, resp.StatusCode, time.Since(start))
			if cookies := resp.Cookies(); len(cookies) > 0 {
				log.Debug("Response set cookies",
					zap.String("cookies", cookiejar.CookieNames(cookiejar.RedactSensitiveCookies(cookies))),
					zap.String("request_id", requestID),
				)
			}
			headers.CheckDeprecationHeader(resp, log)
			return resp, nil
		})
	}
}

// logFormBody logs the fields of a form-encoded body. It reads a copy through GetBody, so
// requests without one are skipped.
func logFormBody(log logger.Logger, req *http.Request, requestID string, hideSensitiveData bool) {
	mimeType, _, _ := strings.Cut(req.Header.Get("Content-Type"), ";")
	if !strings.EqualFold(strings.TrimSpace(mimeType), contentTypeForm) || req.GetBody == nil {
		return
	}
	body, err := req.GetBody()
	if err != nil {
		return
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return
	}

	fields := make([]string, 0, len(form))
	for key, values := range form {
		for _, v := range values {
			fields = append(fields, key+"="+redact.RedactFormValue(hideSensitiveData, key, v))
		}
	}
	sort.Strings(fields)
	log.Debug("HTTP request form",
		zap.String("form", strings.Join(fields, "&")),
		zap.String("request_id", requestID),
	)
}
