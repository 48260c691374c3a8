package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/deploymenttheory/go-vmconsole-client/internal/app"
	"github.com/deploymenttheory/go-vmconsole-client/vmapi"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func vmsCommand(h *Handler) *cobra.Command {
	vmsCmd := &cobra.Command{
		Use:   "vms",
		Short: "Manage virtual machines",
	}

	var withStatus bool
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the VMs you can manage",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return listVMs(ctx, cmd.OutOrStdout(), a.VMs, withStatus)
			})
		},
	}
	listCmd.Flags().BoolVarP(&withStatus, "status", "s", false, "fetch every VM's status")

	var (
		watch    bool
		interval time.Duration
		asJSON   bool
	)
	statusCmd := &cobra.Command{
		Use:   "status VM",
		Short: "Show the status of a VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				show := func(s vmapi.VMStatus) error { return printStatus(out, args[0], s, asJSON) }
				if watch {
					return a.VMs.WatchStatus(ctx, args[0], interval, show)
				}
				status, err := a.VMs.GetVMStatus(ctx, args[0])
				if err != nil {
					return err
				}
				return show(status)
			})
		},
	}
	statusCmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling until interrupted")
	statusCmd.Flags().DurationVar(&interval, "interval", vmapi.DefaultWatchInterval, "polling interval with --watch")
	statusCmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot as JSON")

	vmsCmd.AddCommand(listCmd, statusCmd)
	for _, action := range vmapi.Actions {
		vmsCmd.AddCommand(actionCommand(h, action))
	}
	return vmsCmd
}

func actionCommand(h *Handler, action vmapi.Action) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " VM [VM...]",
		Short: fmt.Sprintf("Request %s of VM(s)", action),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.withApp(cmd, func(ctx context.Context, a *app.App) error {
				for _, id := range args {
					result, err := a.VMs.Do(ctx, id, action)
					if err != nil {
						return fmt.Errorf("%s %s: %w", action, id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, result.Message)
				}
				return nil
			})
		},
	}
}

func (h *Handler) withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	ctx, a, err := h.app(cmd)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck
	return fn(ctx, a)
}

func listVMs(ctx context.Context, out io.Writer, vms *vmapi.Client, withStatus bool) error {
	list, err := vms.ListVMs(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No VMs found.")
		return nil
	}

	statuses := map[string]vmapi.VMStatus{}
	if withStatus {
		ids := make([]string, len(list))
		for i, vm := range list {
			ids[i] = vm.ID
		}
		results, err := vms.ListVMStatuses(ctx, ids, 0)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		for _, r := range results {
			statuses[r.ID] = r.Status
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCPU\tMEMORY")
	for _, vm := range list {
		name, state, cpu, mem := vm.Name, vm.Status, vm.CPU, vm.Memory
		if s, ok := statuses[vm.ID]; ok {
			state, cpu, mem = s.Status, s.CPU, &s.Memory
			if name == "" {
				name = s.Name
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", vm.ID, dash(name), dash(state), cpuColumn(cpu, state), memoryColumn(mem))
	}
	return w.Flush()
}

func printStatus(out io.Writer, id string, s vmapi.VMStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		return enc.Encode(s)
	}
	uptime := "-"
	if s.Uptime > 0 {
		uptime = units.HumanDuration(s.UptimeDuration())
	}
	_, err := fmt.Fprintf(out, "%s\tstatus=%s\tcpu=%.1f%%\tmemory=%s\tdisk=%s\tuptime=%s\n",
		id, s.Status, s.CPU, memoryColumn(&s.Memory), memoryColumn(&s.Disk), uptime)
	return err
}

func memoryColumn(u *vmapi.Usage) string {
	if u == nil || u.Total <= 0 {
		return "-"
	}
	return units.BytesSize(float64(u.Used)) + "/" + units.BytesSize(float64(u.Total))
}

func cpuColumn(cpu float64, state string) string {
	if state == "" {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", cpu)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
