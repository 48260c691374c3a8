// Package vmapi calls the VM console backend: login, VM listing, status snapshots and
// lifecycle actions. Every call goes through an httpclient so the credential is attached
// and 401 handling happens before an error reaches the caller.
package vmapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/deploymenttheory/go-vmconsole-client/httpclient"
	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/deploymenttheory/go-vmconsole-client/router"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"go.uber.org/zap"
)

const (
	endpointTest  = "/test"
	endpointToken = "/token"
	endpointVMs   = "/vms"
)

// ErrEmptyVMID is returned when a VM operation is called without an id.
var ErrEmptyVMID = errors.New("vm id is empty")

// Requester sends a request relative to the backend base address and decodes the 2xx body
// into out. *httpclient.Client implements it.
type Requester interface {
	DoRequest(ctx context.Context, method, endpoint string, body, out any) (*http.Response, error)
}

// Client is the VM backend API.
type Client struct {
	api   Requester
	store session.Store
	nav   httpclient.Navigator
	log   logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithNavigator sets the navigator Logout sends to the login view.
func WithNavigator(nav httpclient.Navigator) Option {
	return func(c *Client) { c.nav = nav }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a Client sending through api and storing the login credential in store.
func New(api Requester, store session.Store, opts ...Option) *Client {
	c := &Client{api: api, store: store, log: logger.NewNopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("component", "vmapi"))
	return c
}

// Ping calls the backend health endpoint and returns its message.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if _, err := c.api.DoRequest(ctx, http.MethodGet, endpointTest, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Login exchanges username and password for a token, sent as form fields. A non-empty
// access token is stored as the credential; an empty one leaves the store untouched.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var token Token
	if _, err := c.api.DoRequest(ctx, http.MethodPost, endpointToken, form, &token); err != nil {
		return Token{}, err
	}
	if token.AccessToken == "" {
		c.log.Warn("Login response carried no access token", zap.String("username", username))
		return token, nil
	}
	if err := c.store.Set(ctx, token.AccessToken); err != nil {
		return Token{}, fmt.Errorf("storing credential: %w", err)
	}
	c.log.Info("Logged in", zap.String("username", username))
	return token, nil
}

// Logout clears the credential and, when a navigator is set, navigates to the login view.
// There is no server-side session to end.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	c.log.Info("Logged out")
	if c.nav == nil {
		return nil
	}
	_, err := c.nav.Navigate(ctx, router.LoginPath)
	return err
}

// ListVMs returns the VMs visible to the current user.
func (c *Client) ListVMs(ctx context.Context) ([]VM, error) {
	var vms []VM
	if _, err := c.api.DoRequest(ctx, http.MethodGet, endpointVMs, nil, &vms); err != nil {
		return nil, err
	}
	return vms, nil
}

// GetVMStatus returns the current status snapshot of a VM.
func (c *Client) GetVMStatus(ctx context.Context, id string) (VMStatus, error) {
	if id == "" {
		return VMStatus{}, ErrEmptyVMID
	}
	var status VMStatus
	if _, err := c.api.DoRequest(ctx, http.MethodGet, vmPath(id, "status"), nil, &status); err != nil {
		return VMStatus{}, err
	}
	return status, nil
}

// Do runs a lifecycle action on a VM.
func (c *Client) Do(ctx context.Context, id string, action Action) (ActionResult, error) {
	if id == "" {
		return ActionResult{}, ErrEmptyVMID
	}
	if _, err := ParseAction(string(action)); err != nil {
		return ActionResult{}, err
	}
	var result ActionResult
	if _, err := c.api.DoRequest(ctx, http.MethodPost, vmPath(id, string(action)), nil, &result); err != nil {
		return ActionResult{}, err
	}
	c.log.Info("VM action requested", zap.String("vm_id", id), zap.String("action", string(action)))
	return result, nil
}

// StartVM starts a VM.
func (c *Client) StartVM(ctx context.Context, id string) (ActionResult, error) {
	return c.Do(ctx, id, ActionStart)
}

// StopVM stops a VM immediately.
func (c *Client) StopVM(ctx context.Context, id string) (ActionResult, error) {
	return c.Do(ctx, id, ActionStop)
}

// ShutdownVM asks the guest to shut down.
func (c *Client) ShutdownVM(ctx context.Context, id string) (ActionResult, error) {
	return c.Do(ctx, id, ActionShutdown)
}

// ResetVM resets a VM.
func (c *Client) ResetVM(ctx context.Context, id string) (ActionResult, error) {
	return c.Do(ctx, id, ActionReset)
}

func vmPath(id, op string) string {
	return endpointVMs + "/" + url.PathEscape(id) + "/" + op
}
