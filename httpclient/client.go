// httpclient/client.go
/* The httpclient package builds the console's API clients: one configurable factory whose
clients attach the stored bearer credential to every request and evict it on 401. Request and
response interception is a chain of http.RoundTripper middleware composed at build time. */
package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/deploymenttheory/go-vmconsole-client/concurrency"
	"github.com/deploymenttheory/go-vmconsole-client/cookiejar"
	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/deploymenttheory/go-vmconsole-client/proxy"
	"github.com/deploymenttheory/go-vmconsole-client/redirecthandler"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"github.com/deploymenttheory/go-vmconsole-client/version"
	"go.uber.org/zap"
)

// Client is an API client bound to one base address and one credential store.
type Client struct {
	config  ClientConfig
	http    *http.Client
	baseURL *url.URL
	store   session.Store

	Logger      logger.Logger
	Concurrency *concurrency.ConcurrencyHandler
}

// Option customises BuildClient.
type Option func(*buildOptions)

type buildOptions struct {
	log       logger.Logger
	transport http.RoundTripper
	extra     []Middleware
}

// WithLogger uses log instead of building one from the config.
func WithLogger(log logger.Logger) Option {
	return func(o *buildOptions) { o.log = log }
}

// WithTransport replaces the base transport. Proxy settings are ignored when it is set.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *buildOptions) { o.transport = rt }
}

// WithMiddleware appends middleware inside the standard chain, just above the transport.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *buildOptions) { o.extra = append(o.extra, mws...) }
}

// BuildClient creates a new client with the provided configuration and credential store.
func BuildClient(config ClientConfig, store session.Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("invalid configuration: credential store is required")
	}

	SetDefaultValuesClientConfig(&config)
	if err := validateClientConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	log := o.log
	if log == nil {
		level := logger.ParseLogLevelFromString(config.LogLevel)
		log = logger.BuildLogger(level, config.LogOutputFormat, config.LogConsoleSeparator, config.LogExportPath)
		log.SetLevel(level)
	}
	log = log.With(zap.String("component", "httpclient"))

	baseURL, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	base := o.transport
	if base == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if err := proxy.ConfigureProxy(transport, config.ProxyURL, log); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		base = transport
	}

	concurrencyHandler := concurrency.NewConcurrencyHandler(config.MaxConcurrentRequests, log)

	chain := []Middleware{
		RequestID(),
		Concurrency(concurrencyHandler),
		Unauthorized(store, config.OnUnauthorized, log),
		DefaultHeaders(config.Accept, config.ContentType, version.GetUserAgentHeader()),
		BearerToken(store, baseURL.Host),
	}
	chain = append(chain, o.extra...)
	chain = append(chain, Logging(log, config.HideSensitiveData))

	httpClient := &http.Client{
		Timeout:   config.Timeout,
		Transport: Chain(base, chain...),
	}

	if err := redirecthandler.SetupRedirectHandler(httpClient, config.FollowRedirects, config.MaxRedirects, log); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cookiejar.SetupCookieJar(httpClient, config.WithCredentials, log); err != nil {
		return nil, err
	}

	client := &Client{
		config:      config,
		http:        httpClient,
		baseURL:     baseURL,
		store:       store,
		Logger:      log,
		Concurrency: concurrencyHandler,
	}

	log.Debug("New API client initialized",
		zap.String("base_url", baseURL.String()),
		zap.Duration("timeout", config.Timeout),
		zap.Bool("with_credentials", config.WithCredentials),
		zap.Bool("follow_redirects", config.FollowRedirects),
		zap.Int("max_redirects", config.MaxRedirects),
		zap.Int("max_concurrent_requests", config.MaxConcurrentRequests),
		zap.Bool("hide_sensitive_data", config.HideSensitiveData),
		zap.String("log_level", config.LogLevel),
	)

	return client, nil
}

// HTTPClient returns the underlying client. Requests sent through it go through the same
// middleware chain, including 401 handling.
func (c *Client) HTTPClient() *http.Client { return c.http }

// BaseURL returns the base address requests are resolved against.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Store returns the credential store the client reads from and clears.
func (c *Client) Store() session.Store { return c.store }

// Config returns a copy of the effective configuration.
func (c *Client) Config() ClientConfig { return c.config }

// ResolveURL joins endpoint onto the base address. Absolute URLs are returned unchanged.
func (c *Client) ResolveURL(endpoint string) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	joined := strings.TrimRight(c.baseURL.String(), "/") + "/" + strings.TrimLeft(endpoint, "/")
	if _, err := url.Parse(joined); err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return joined, nil
}
