package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-vmconsole-client/internal/app"
	"github.com/deploymenttheory/go-vmconsole-client/internal/cli/ui"
	"github.com/deploymenttheory/go-vmconsole-client/vmapi"
	"github.com/spf13/cobra"
)

func openCommand(h *Handler) *cobra.Command {
	return &cobra.Command{
		Use:   "open PATH",
		Short: "Resolve a console location through the login guard",
		Long: "Resolve a console location (/, /login, /dashboard/ID) the way the console would " +
			"navigate to it, and print where it lands and which view it shows.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.withApp(cmd, func(ctx context.Context, a *app.App) error {
				loc, err := a.Router.Navigate(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\t%s\n", loc.Path, loc.View)
				for name, value := range loc.Params {
					fmt.Fprintf(out, "  %s=%s\n", name, value)
				}
				return nil
			})
		},
	}
}

func uiCommand(h *Handler) *cobra.Command {
	var refresh time.Duration
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return ui.Run(ctx, ui.Deps{Router: a.Router, VMs: a.VMs, Refresh: refresh})
			})
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", vmapi.DefaultWatchInterval, "dashboard refresh interval")
	return cmd
}
