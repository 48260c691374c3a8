// Package cmd is the vmconsole command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/deploymenttheory/go-vmconsole-client/httpclient"
	"github.com/deploymenttheory/go-vmconsole-client/internal/app"
	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/deploymenttheory/go-vmconsole-client/session"
	"github.com/deploymenttheory/go-vmconsole-client/version"
	"github.com/spf13/cobra"
)

// Handler carries the global flags and builds the App for each command.
type Handler struct {
	opts   app.Options
	newApp func(app.Options) (*app.App, error)
}

// NewRootCommand builds the vmconsole command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(app.New)
}

func newRootCommand(newApp func(app.Options) (*app.App, error)) *cobra.Command {
	h := &Handler{newApp: newApp}

	root := &cobra.Command{
		Use:           "vmconsole",
		Short:         "Console client for the VM management backend",
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&h.opts.ConfigFile, "config", "", "client configuration file (.json)")
	flags.StringVar(&h.opts.Preset, "preset", string(httpclient.PresetVM), fmt.Sprintf("client preset %v", httpclient.Presets))
	flags.StringVar(&h.opts.BaseURL, "base-url", "", "backend address, overrides preset and config")
	flags.StringVar(&h.opts.LogLevel, "log-level", "", fmt.Sprintf("log level %v", logger.ValidLogLevels))
	flags.StringVar(&h.opts.CredentialsPath, "credentials", "", "credential file (default: user config dir)")

	root.AddCommand(
		loginCommand(h),
		logoutCommand(h),
		whoamiCommand(h),
		vmsCommand(h),
		openCommand(h),
		uiCommand(h),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app builds the App for one command invocation.
func (h *Handler) app(cmd *cobra.Command) (context.Context, *app.App, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := h.newApp(h.opts)
	if err != nil {
		return nil, nil, err
	}
	return ctx, a, nil
}

// store opens the credential store without building a client.
func (h *Handler) store() (session.Store, error) {
	if h.opts.Store != nil {
		return h.opts.Store, nil
	}
	path := h.opts.CredentialsPath
	if path == "" {
		var err error
		if path, err = session.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return session.NewFileStore(path), nil
}
