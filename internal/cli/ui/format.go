package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/deploymenttheory/go-vmconsole-client/vmapi"
	"github.com/docker/go-units"
)

var (
	docStyle   = lipgloss.NewStyle().Margin(1, 2)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Width(8).Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"})

	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	stoppedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	unknownStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB86C"))
)

// statusBadge renders a VM state with its colour.
func statusBadge(status string) string {
	switch status {
	case "running":
		return runningStyle.Render("● running")
	case "stopped":
		return stoppedStyle.Render("○ stopped")
	case "":
		return unknownStyle.Render("? unknown")
	}
	return unknownStyle.Render("◐ " + status)
}

// formatUsage renders "used / total (pct%)" with binary units.
func formatUsage(u vmapi.Usage) string {
	if u.Total <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%s / %s (%.0f%%)",
		units.BytesSize(float64(u.Used)),
		units.BytesSize(float64(u.Total)),
		u.Percent(),
	)
}

func formatUptime(s vmapi.VMStatus) string {
	if s.Uptime <= 0 {
		return "-"
	}
	return units.HumanDuration(s.UptimeDuration())
}

func formatCPU(cpu float64) string {
	return fmt.Sprintf("%.1f%%", cpu)
}

// fraction clamps a percentage into the 0..1 range a progress bar takes.
func fraction(pct float64) float64 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 1
	}
	return pct / 100
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.TimeOnly)
}
