package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/deploymenttheory/go-vmconsole-client/router"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"github.com/stretchr/testify/require"
)

// recordingNavigator records every navigation it is asked to perform.
type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(_ context.Context, path string) (router.Location, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	return router.Location{Path: path}, nil
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// capturedRequest is what the fake backend saw.
type capturedRequest struct {
	Method        string
	Path          string
	Authorization []string
	Header        http.Header
	Body          string
}

type backend struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
}

func (b *backend) last() capturedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

// newBackend starts a server that records requests and answers with handler.
func newBackend(t *testing.T, handler http.HandlerFunc) *backend {
	t.Helper()
	b := &backend{}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.requests = append(b.requests, capturedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Values("Authorization"),
			Header:        r.Header.Clone(),
			Body:          string(buf),
		})
		b.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(b.Close)
	return b
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, baseURL string, store session.Store, nav Navigator, mutate func(*ClientConfig)) *Client {
	t.Helper()
	config := ClientConfig{BaseURL: baseURL}
	if mutate != nil {
		mutate(&config)
	}
	if config.OnUnauthorized == nil {
		config.OnUnauthorized = NavigateOnUnauthorized(nav, router.LoginPath)
	}
	client, err := BuildClient(config, store, WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	return client
}
