// httpclient/presets.go
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deploymenttheory/go-vmconsole-client/router"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"go.uber.org/zap"
)

// Preset names a construction preset of the client factory.
type Preset string

const (
	PresetPrimary Preset = "primary"
	PresetGeneric Preset = "generic"
	PresetVM      Preset = "vm"
)

// Presets lists the known presets.
var Presets = []Preset{PresetPrimary, PresetGeneric, PresetVM}

// ParsePreset resolves a preset name, case-insensitively.
func ParsePreset(name string) (Preset, error) {
	for _, p := range Presets {
		if strings.EqualFold(name, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown client preset %q", name)
}

// Navigator is the part of the router the unauthorized handler needs.
type Navigator interface {
	Navigate(ctx context.Context, path string) (router.Location, error)
}

// NavigateOnUnauthorized returns a handler that navigates nav to path. Navigation errors
// are not propagated: the caller still receives the 401 error.
func NavigateOnUnauthorized(nav Navigator, path string) UnauthorizedHandler {
	if nav == nil {
		return nil
	}
	return func(ctx context.Context, _ *http.Request) {
		_, _ = nav.Navigate(ctx, path)
	}
}

// PresetConfig returns the configuration of preset p. Every preset evicts the credential
// and navigates to the login view on 401.
func PresetConfig(p Preset) (ClientConfig, error) {
	switch p {
	case PresetPrimary:
		return ClientConfig{
			BaseURL:     "http://localhost:8000",
			Accept:      contentTypeJSON,
			ContentType: contentTypeJSON,
		}, nil
	case PresetGeneric:
		return ClientConfig{
			BaseURL:         "http://127.0.0.1:8000",
			Timeout:         10 * time.Second,
			Accept:          contentTypeJSON,
			WithCredentials: true,
		}, nil
	case PresetVM:
		return ClientConfig{
			BaseURL:         "http://localhost:8000",
			Accept:          contentTypeJSON,
			WithCredentials: true,
		}, nil
	}
	return ClientConfig{}, fmt.Errorf("unknown client preset %q", p)
}

// NewPresetClient builds the client for preset p. overrides, when non-nil, adjusts the
// preset configuration before building (base address, logging and so on).
func NewPresetClient(p Preset, store session.Store, nav Navigator, overrides func(*ClientConfig), opts ...Option) (*Client, error) {
	config, err := PresetConfig(p)
	if err != nil {
		return nil, err
	}
	if overrides != nil {
		overrides(&config)
	}
	if config.OnUnauthorized == nil {
		config.OnUnauthorized = NavigateOnUnauthorized(nav, router.LoginPath)
	}

	client, err := BuildClient(config, store, opts...)
	if err != nil {
		return nil, err
	}
	client.Logger.Debug("Preset client ready", zap.String("preset", string(p)))
	return client, nil
}

// NewPrimaryClient builds the primary API client.
func NewPrimaryClient(store session.Store, nav Navigator, opts ...Option) (*Client, error) {
	return NewPresetClient(PresetPrimary, store, nav, nil, opts...)
}

// NewGenericClient builds the generic API client.
func NewGenericClient(store session.Store, nav Navigator, opts ...Option) (*Client, error) {
	return NewPresetClient(PresetGeneric, store, nav, nil, opts...)
}

// NewVMClient builds the VM API client.
func NewVMClient(store session.Store, nav Navigator, opts ...Option) (*Client, error) {
	return NewPresetClient(PresetVM, store, nav, nil, opts...)
}
