// Package ui is the terminal console: a login form, the VM list and a per-VM dashboard.
// The router decides which view is shown; every navigation (including the one made by
// the client after a 401) re-renders the console.
package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deploymenttheory/go-vmconsole-client/router"
	"github.com/deploymenttheory/go-vmconsole-client/vmapi"
)

// Deps are the services the console drives.
type Deps struct {
	Router *router.Router
	VMs    *vmapi.Client
	// Refresh is the dashboard polling interval; vmapi.DefaultWatchInterval when zero.
	Refresh time.Duration
}

// navMsg tells the console the router location changed.
type navMsg struct{}

// view is one screen of the console.
type view interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (view, tea.Cmd)
	View() string
}

// stopper is implemented by views holding background work.
type stopper interface {
	stop()
}

// Console is the root bubbletea model.
type Console struct {
	ctx  context.Context
	deps Deps

	nav         chan navMsg
	unsubscribe func()

	location router.Location
	current  view
	width    int
	height   int
}

// NewConsole creates the console model and subscribes it to router changes. Call Close
// when the program ends.
func NewConsole(ctx context.Context, deps Deps) *Console {
	if deps.Refresh <= 0 {
		deps.Refresh = vmapi.DefaultWatchInterval
	}
	c := &Console{
		ctx:  ctx,
		deps: deps,
		nav:  make(chan navMsg, 16),
	}
	c.unsubscribe = deps.Router.OnChange(func(_, _ router.Location) {
		select {
		case c.nav <- navMsg{}:
		default:
		}
	})
	return c
}

// Close stops background work and the router subscription.
func (c *Console) Close() {
	if s, ok := c.current.(stopper); ok {
		s.stop()
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Location is the location the console is showing.
func (c *Console) Location() router.Location { return c.location }

func (c *Console) Init() tea.Cmd {
	return tea.Batch(c.start(), c.waitForNav())
}

// start navigates to the VM list; the guard sends unauthenticated users to the login form.
func (c *Console) start() tea.Cmd {
	return func() tea.Msg {
		if _, err := c.deps.Router.Navigate(c.ctx, router.HomePath); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (c *Console) waitForNav() tea.Cmd {
	return func() tea.Msg {
		select {
		case m := <-c.nav:
			return m
		case <-c.ctx.Done():
			return nil
		}
	}
}

func (c *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			c.Close()
			return c, tea.Quit
		}
	case tea.WindowSizeMsg:
		c.width, c.height = msg.Width, msg.Height
	case navMsg:
		cmd := c.show(c.deps.Router.Current())
		return c, tea.Batch(cmd, c.waitForNav())
	case quitMsg:
		c.Close()
		return c, tea.Quit
	}

	if c.current == nil {
		return c, nil
	}
	var cmd tea.Cmd
	c.current, cmd = c.current.Update(msg)
	return c, cmd
}

// show swaps in the view for loc. Re-announcing the location already shown keeps the
// current view and its state.
func (c *Console) show(loc router.Location) tea.Cmd {
	if c.current != nil && loc.Path == c.location.Path {
		return nil
	}
	if s, ok := c.current.(stopper); ok {
		s.stop()
	}

	c.location = loc
	switch loc.View {
	case router.LoginView:
		c.current = newLoginView(c.ctx, c.deps)
	case router.VMListView:
		c.current = newListView(c.ctx, c.deps)
	case router.DashboardView:
		c.current = newDashboardView(c.ctx, c.deps, loc.Params["vmId"])
	default:
		c.current = nil
		return nil
	}

	cmds := []tea.Cmd{c.current.Init()}
	if c.width > 0 {
		size := tea.WindowSizeMsg{Width: c.width, Height: c.height}
		cmds = append(cmds, func() tea.Msg { return size })
	}
	return tea.Batch(cmds...)
}

func (c *Console) View() string {
	if c.current == nil {
		return docStyle.Render("Loading...")
	}
	return c.current.View()
}

// Run runs the console until the user quits or ctx ends.
func Run(ctx context.Context, deps Deps, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	console := NewConsole(ctx, deps)
	defer console.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(console, opts...).Run()
	return err
}

type errMsg struct{ err error }

type quitMsg struct{}

func navigate(ctx context.Context, r *router.Router, path string) tea.Cmd {
	return func() tea.Msg {
		if _, err := r.Navigate(ctx, path); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func logout(ctx context.Context, vms *vmapi.Client) tea.Cmd {
	return func() tea.Msg {
		if err := vms.Logout(ctx); err != nil {
			return errMsg{err}
		}
		return nil
	}
}
