// Package app assembles the console: credential store, router, HTTP client and VM API.
package app

import (
	"context"
	"fmt"

	"github.com/deploymenttheory/go-vmconsole-client/httpclient"
	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/deploymenttheory/go-vmconsole-client/router"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"github.com/deploymenttheory/go-vmconsole-client/vmapi"
	"go.uber.org/zap"
)

// Options selects how the console is built. Later sources win: preset, config file,
// VMCONSOLE_* environment, then the explicit fields below.
type Options struct {
	Preset          string
	ConfigFile      string
	BaseURL         string
	LogLevel        string
	CredentialsPath string

	// Store replaces the credential file when set.
	Store session.Store
	// Logger replaces the logger built from the configuration when set.
	Logger logger.Logger
}

// App holds the wired components.
type App struct {
	Config httpclient.ClientConfig
	Store  session.Store
	Router *router.Router
	HTTP   *httpclient.Client
	VMs    *vmapi.Client
	Logger logger.Logger
}

// New builds an App. Nothing is sent to the backend.
func New(opts Options) (*App, error) {
	config, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		path := opts.CredentialsPath
		if path == "" {
			if path, err = session.DefaultPath(); err != nil {
				return nil, err
			}
		}
		store = session.NewFileStore(path)
	}

	log := opts.Logger
	if log == nil {
		log = logger.BuildLogger(
			logger.ParseLogLevelFromString(config.LogLevel),
			config.LogOutputFormat,
			config.LogConsoleSeparator,
			config.LogExportPath,
		)
	}

	table, err := router.NewTable(router.DefaultRoutes()...)
	if err != nil {
		return nil, err
	}
	r := router.New(table,
		router.WithLogger(log),
		router.WithGuard(router.RequireCredential(store, router.LoginPath)),
	)

	config.OnUnauthorized = httpclient.NavigateOnUnauthorized(r, router.LoginPath)
	client, err := httpclient.BuildClient(config, store, httpclient.WithLogger(log))
	if err != nil {
		return nil, err
	}

	return &App{
		Config: client.Config(),
		Store:  store,
		Router: r,
		HTTP:   client,
		VMs:    vmapi.New(client, store, vmapi.WithNavigator(r), vmapi.WithLogger(log)),
		Logger: log,
	}, nil
}

func resolveConfig(opts Options) (httpclient.ClientConfig, error) {
	preset := httpclient.PresetVM
	if opts.Preset != "" {
		p, err := httpclient.ParsePreset(opts.Preset)
		if err != nil {
			return httpclient.ClientConfig{}, err
		}
		preset = p
	}

	config, err := httpclient.PresetConfig(preset)
	if err != nil {
		return httpclient.ClientConfig{}, err
	}

	if opts.ConfigFile != "" {
		loaded, err := httpclient.LoadConfigFromFile(opts.ConfigFile, &config)
		if err != nil {
			return httpclient.ClientConfig{}, fmt.Errorf("loading %s: %w", opts.ConfigFile, err)
		}
		config = *loaded
	}

	fromEnv, err := httpclient.LoadConfigFromEnv(&config)
	if err != nil {
		return httpclient.ClientConfig{}, err
	}
	config = *fromEnv

	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.LogLevel != "" {
		config.LogLevel = opts.LogLevel
	}
	httpclient.SetDefaultValuesClientConfig(&config)
	return config, nil
}

// Start places the router on its initial location: the VM list, which the guard turns
// into the login view when no credential is stored.
func (a *App) Start(ctx context.Context) (router.Location, error) {
	loc, err := a.Router.Navigate(ctx, router.HomePath)
	if err != nil {
		return router.Location{}, err
	}
	a.Logger.Debug("Console started",
		zap.String("base_url", a.Config.BaseURL),
		zap.String("location", loc.Path),
	)
	return loc, nil
}

// Close flushes the logger.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	return nil
}
