package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/deploymenttheory/go-vmconsole-client/router"
	"github.com/deploymenttheory/go-vmconsole-client/vmapi"
)

type vmItem struct {
	vm     vmapi.VM
	status *vmapi.VMStatus
}

func (i vmItem) Title() string {
	if i.vm.Name != "" {
		return i.vm.Name
	}
	if i.status != nil && i.status.Name != "" {
		return i.status.Name
	}
	return "VM " + i.vm.ID
}

func (i vmItem) Description() string {
	state, cpu, mem := i.vm.Status, i.vm.CPU, i.vm.Memory
	if i.status != nil {
		state, cpu, mem = i.status.Status, i.status.CPU, &i.status.Memory
	}
	desc := fmt.Sprintf("%s | ID: %s | CPU %s", statusBadge(state), i.vm.ID, formatCPU(cpu))
	if mem != nil {
		desc += " | Mem " + formatUsage(*mem)
	}
	return desc
}

func (i vmItem) FilterValue() string { return i.Title() + " " + i.vm.ID }

type vmsLoadedMsg struct {
	vms      []vmapi.VM
	statuses []vmapi.StatusResult
	err      error
	// statusErr is kept apart so the list still shows when one status fetch fails.
	statusErr error
}

type actionDoneMsg struct {
	id     string
	action vmapi.Action
	result vmapi.ActionResult
	err    error
}

type actionKeyMap struct {
	start    key.Binding
	stop     key.Binding
	shutdown key.Binding
	reset    key.Binding
	refresh  key.Binding
	logout   key.Binding
}

func newActionKeyMap() actionKeyMap {
	return actionKeyMap{
		start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		shutdown: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "shutdown")),
		reset:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
	}
}

func (k actionKeyMap) bindings() []key.Binding {
	return []key.Binding{k.start, k.stop, k.shutdown, k.reset, k.refresh, k.logout}
}

// action returns the lifecycle action bound to msg, if any.
func (k actionKeyMap) action(msg tea.KeyMsg) (vmapi.Action, bool) {
	switch {
	case key.Matches(msg, k.start):
		return vmapi.ActionStart, true
	case key.Matches(msg, k.stop):
		return vmapi.ActionStop, true
	case key.Matches(msg, k.shutdown):
		return vmapi.ActionShutdown, true
	case key.Matches(msg, k.reset):
		return vmapi.ActionReset, true
	}
	return "", false
}

type listView struct {
	ctx  context.Context
	deps Deps
	keys actionKeyMap
	list list.Model
}

func newListView(ctx context.Context, deps Deps) *listView {
	keys := newActionKeyMap()
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Virtual machines"
	l.Styles.Title = titleStyle
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName("VM", "VMs")

	return &listView{ctx: ctx, deps: deps, keys: keys, list: l}
}

func (v *listView) Init() tea.Cmd {
	return tea.Batch(v.list.StartSpinner(), loadVMs(v.ctx, v.deps.VMs))
}

func loadVMs(ctx context.Context, vms *vmapi.Client) tea.Cmd {
	return func() tea.Msg {
		found, err := vms.ListVMs(ctx)
		if err != nil {
			return vmsLoadedMsg{err: err}
		}
		ids := make([]string, len(found))
		for i, vm := range found {
			ids[i] = vm.ID
		}
		statuses, err := vms.ListVMStatuses(ctx, ids, 0)
		return vmsLoadedMsg{vms: found, statuses: statuses, statusErr: err}
	}
}

func runAction(ctx context.Context, vms *vmapi.Client, id string, action vmapi.Action) tea.Cmd {
	return func() tea.Msg {
		result, err := vms.Do(ctx, id, action)
		return actionDoneMsg{id: id, action: action, result: result, err: err}
	}
}

func (v *listView) selected() (vmItem, bool) {
	item, ok := v.list.SelectedItem().(vmItem)
	return item, ok
}

func (v *listView) Update(msg tea.Msg) (view, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.list.FilterState() == list.Filtering {
			break
		}
		if action, ok := v.keys.action(msg); ok {
			item, ok := v.selected()
			if !ok {
				return v, nil
			}
			status := v.list.NewStatusMessage(infoStyle.Render(fmt.Sprintf("%s %s...", action, item.Title())))
			return v, tea.Batch(status, runAction(v.ctx, v.deps.VMs, item.vm.ID, action))
		}
		switch {
		case key.Matches(msg, v.keys.refresh):
			return v, tea.Batch(v.list.StartSpinner(), loadVMs(v.ctx, v.deps.VMs))
		case key.Matches(msg, v.keys.logout):
			return v, logout(v.ctx, v.deps.VMs)
		case msg.String() == "enter":
			if item, ok := v.selected(); ok {
				return v, navigate(v.ctx, v.deps.Router, router.DashboardLocation(item.vm.ID))
			}
			return v, nil
		case msg.String() == "q":
			return v, func() tea.Msg { return quitMsg{} }
		}
	case vmsLoadedMsg:
		v.list.StopSpinner()
		if msg.err != nil {
			return v, v.list.NewStatusMessage(errorStyle.Render(msg.err.Error()))
		}
		cmds := []tea.Cmd{v.list.SetItems(itemsFor(msg.vms, msg.statuses))}
		if msg.statusErr != nil {
			cmds = append(cmds, v.list.NewStatusMessage(errorStyle.Render(msg.statusErr.Error())))
		}
		return v, tea.Batch(cmds...)
	case actionDoneMsg:
		if msg.err != nil {
			return v, v.list.NewStatusMessage(errorStyle.Render(fmt.Sprintf("%s %s: %v", msg.action, msg.id, msg.err)))
		}
		return v, tea.Batch(
			v.list.NewStatusMessage(infoStyle.Render(msg.result.Message)),
			loadVMs(v.ctx, v.deps.VMs),
		)
	case errMsg:
		return v, v.list.NewStatusMessage(errorStyle.Render(msg.err.Error()))
	case tea.WindowSizeMsg:
		h, vert := docStyle.GetFrameSize()
		v.list.SetSize(msg.Width-h, msg.Height-vert)
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func itemsFor(vms []vmapi.VM, statuses []vmapi.StatusResult) []list.Item {
	byID := make(map[string]vmapi.VMStatus, len(statuses))
	for _, s := range statuses {
		byID[s.ID] = s.Status
	}
	items := make([]list.Item, 0, len(vms))
	for _, vm := range vms {
		item := vmItem{vm: vm}
		if s, ok := byID[vm.ID]; ok {
			item.status = &s
		}
		items = append(items, item)
	}
	return items
}

func (v *listView) View() string {
	return docStyle.Render(v.list.View())
}
