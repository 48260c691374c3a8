package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deploymenttheory/go-vmconsole-client/router"
	"github.com/deploymenttheory/go-vmconsole-client/vmapi"
)

type statusMsg struct {
	status vmapi.VMStatus
	at     time.Time
}

type watchEndedMsg struct{ err error }

type dashboardView struct {
	ctx    context.Context
	cancel context.CancelFunc
	deps   Deps
	id     string
	keys   actionKeyMap
	back   key.Binding

	updates chan tea.Msg
	bar     progress.Model

	status  *vmapi.VMStatus
	updated time.Time
	message string
	err     string
}

func newDashboardView(ctx context.Context, deps Deps, id string) *dashboardView {
	ctx, cancel := context.WithCancel(ctx)
	return &dashboardView{
		ctx:     ctx,
		cancel:  cancel,
		deps:    deps,
		id:      id,
		keys:    newActionKeyMap(),
		back:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		updates: make(chan tea.Msg, 1),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Init starts polling the VM status in the background.
func (v *dashboardView) Init() tea.Cmd {
	go v.watch()
	return v.next()
}

func (v *dashboardView) watch() {
	err := v.deps.VMs.WatchStatus(v.ctx, v.id, v.deps.Refresh, func(s vmapi.VMStatus) error {
		select {
		case v.updates <- statusMsg{status: s, at: time.Now()}:
			return nil
		case <-v.ctx.Done():
			return v.ctx.Err()
		}
	})
	if v.ctx.Err() != nil {
		return
	}
	select {
	case v.updates <- watchEndedMsg{err}:
	case <-v.ctx.Done():
	}
}

func (v *dashboardView) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case m := <-v.updates:
			return m
		case <-v.ctx.Done():
			return nil
		}
	}
}

func (v *dashboardView) stop() { v.cancel() }

func (v *dashboardView) Update(msg tea.Msg) (view, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if action, ok := v.keys.action(msg); ok {
			v.message = fmt.Sprintf("%s requested...", action)
			return v, runAction(v.ctx, v.deps.VMs, v.id, action)
		}
		switch {
		case key.Matches(msg, v.back):
			return v, navigate(v.ctx, v.deps.Router, router.HomePath)
		case key.Matches(msg, v.keys.logout):
			return v, logout(v.ctx, v.deps.VMs)
		case msg.String() == "q":
			return v, func() tea.Msg { return quitMsg{} }
		}
	case statusMsg:
		s := msg.status
		v.status = &s
		v.updated = msg.at
		v.err = ""
		return v, v.next()
	case watchEndedMsg:
		if msg.err != nil {
			v.err = msg.err.Error()
		}
		return v, nil
	case actionDoneMsg:
		if msg.err != nil {
			v.err = fmt.Sprintf("%s: %v", msg.action, msg.err)
			v.message = ""
			return v, nil
		}
		v.message = msg.result.Message
		return v, nil
	case errMsg:
		v.err = msg.err.Error()
		return v, nil
	case tea.WindowSizeMsg:
		if w := msg.Width - 24; w > 10 && w < 60 {
			v.bar.Width = w
		}
	}
	return v, nil
}

func (v *dashboardView) View() string {
	var b strings.Builder

	title := "VM " + v.id
	if v.status != nil && v.status.Name != "" {
		title = fmt.Sprintf("%s (%s)", v.status.Name, v.id)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	if v.status == nil {
		if v.err == "" {
			b.WriteString("Loading status...\n")
		}
	} else {
		s := v.status
		rows := [][2]string{
			{"Status", statusBadge(s.Status)},
			{"CPU", v.bar.ViewAs(fraction(s.CPU)) + " " + formatCPU(s.CPU)},
			{"Memory", v.bar.ViewAs(fraction(s.Memory.Percent())) + " " + formatUsage(s.Memory)},
			{"Disk", v.bar.ViewAs(fraction(s.Disk.Percent())) + " " + formatUsage(s.Disk)},
			{"Uptime", formatUptime(*s)},
		}
		for _, row := range rows {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), row[1]))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("updated " + formatTime(v.updated)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.message != "" {
		b.WriteString(infoStyle.Render(v.message) + "\n")
	}
	if v.err != "" {
		b.WriteString(errorStyle.Render(v.err) + "\n")
	}
	b.WriteString(helpStyle.Render("s start • x stop • d shutdown • R reset • esc back • L logout • q quit"))
	return docStyle.Render(b.String())
}
