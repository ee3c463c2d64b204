// Package ctl implements the client-side commands for linkctl.
// It talks to a running linkhubd over HTTP and WebSocket and renders the results to the terminal.
package ctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/large-farva/linkhub/internal/presence"
)

// lipgloss drops the escape codes on its own when stdout is not a
// terminal, so every render below is safe to pipe.
var (
	boldStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
)

// stateStyle picks a color for a daemon or presence connection state.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "SERVING", "open", "demo":
		return okStyle
	case "connecting", "BOOTING":
		return warnStyle
	case "closed-error", "STOPPING":
		return errStyle
	default:
		return dimStyle
	}
}

// statusDot renders a colored dot and label for a presence status, using
// the same colors as the web page.
func statusDot(s presence.Status) string {
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color())).Render("●")
	return dot + " " + s.Label()
}

func header(title string) string {
	return boldStyle.Render(title)
}

func rule(width int) string {
	return dimStyle.Render("  " + strings.Repeat("─", width))
}

// padRight pads s with spaces to reach the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration renders a duration as a compact human string like
// "2h 14m 8s" or "45s".
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// progressBar builds a simple ASCII bar of the given width for p in [0,1].
func progressBar(p float64, width int) string {
	filled := int(p * float64(width))
	filled = min(max(filled, 0), width)
	return okStyle.Render(strings.Repeat("=", filled)) + strings.Repeat(" ", width-filled)
}

// yesNo renders a boolean check result.
func yesNo(ok bool) string {
	if ok {
		return okStyle.Render("yes")
	}
	return errStyle.Render("no")
}
