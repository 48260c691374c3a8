package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deploymenttheory/go-vmconsole-client/httpclient"
	"github.com/deploymenttheory/go-vmconsole-client/router"
)

type loginDoneMsg struct{ err error }

type loginView struct {
	ctx  context.Context
	deps Deps

	inputs  []textinput.Model
	focus   int
	spinner spinner.Model
	busy    bool
	err     string
}

func newLoginView(ctx context.Context, deps Deps) *loginView {
	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = "Username: "
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	s := spinner.New()
	s.Spinner = spinner.Dot

	return &loginView{
		ctx:     ctx,
		deps:    deps,
		inputs:  []textinput.Model{username, password},
		spinner: s,
	}
}

func (v *loginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *loginView) Update(msg tea.Msg) (view, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.busy {
			return v, nil
		}
		switch msg.String() {
		case "esc":
			return v, func() tea.Msg { return quitMsg{} }
		case "tab", "shift+tab", "up", "down":
			return v, v.cycleFocus(msg.String() == "shift+tab" || msg.String() == "up")
		case "enter":
			if v.focus == 0 {
				return v, v.cycleFocus(false)
			}
			return v, v.submit()
		}
	case loginDoneMsg:
		v.busy = false
		if msg.err != nil {
			v.err = describeLoginError(msg.err)
			v.inputs[1].SetValue("")
		}
		return v, nil
	case errMsg:
		v.busy = false
		v.err = msg.err.Error()
		return v, nil
	case spinner.TickMsg:
		if !v.busy {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	return v, cmd
}

func (v *loginView) cycleFocus(backwards bool) tea.Cmd {
	v.inputs[v.focus].Blur()
	if backwards {
		v.focus = (v.focus + len(v.inputs) - 1) % len(v.inputs)
	} else {
		v.focus = (v.focus + 1) % len(v.inputs)
	}
	return v.inputs[v.focus].Focus()
}

func (v *loginView) submit() tea.Cmd {
	username := strings.TrimSpace(v.inputs[0].Value())
	password := v.inputs[1].Value()
	if username == "" || password == "" {
		v.err = "username and password are required"
		return nil
	}
	v.busy = true
	v.err = ""

	ctx, deps := v.ctx, v.deps
	login := func() tea.Msg {
		if _, err := deps.VMs.Login(ctx, username, password); err != nil {
			return loginDoneMsg{err}
		}
		if _, err := deps.Router.Navigate(ctx, router.HomePath); err != nil {
			return loginDoneMsg{err}
		}
		return loginDoneMsg{}
	}
	return tea.Batch(login, v.spinner.Tick)
}

func describeLoginError(err error) string {
	if apiErr, ok := httpclient.AsAPIError(err); ok && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, httpclient.ErrUnauthorized) {
		return "invalid username or password"
	}
	return err.Error()
}

func (v *loginView) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("VM Console"))
	b.WriteString("\n\n")
	for _, in := range v.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case v.busy:
		b.WriteString(v.spinner.View() + " signing in...")
	case v.err != "":
		b.WriteString(errorStyle.Render(v.err))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab: next field • enter: sign in • esc: quit"))
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, b.String()))
}
