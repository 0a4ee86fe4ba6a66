package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar: logo, API health and board counts.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	surface := lipgloss.Color(m.theme.Surface)
	on := func(s lipgloss.Style) lipgloss.Style { return s.Background(surface) }
	sep := on(lipgloss.NewStyle()).Render("  ")

	parts := []string{
		on(styles.Logo).Render("Sport Hub"),
		on(styles.MutedText).Render(truncate(m.baseURL, 40)),
		m.renderHealth(on),
	}

	tested, failed := 0, 0
	for _, r := range m.snapshot.Rows {
		if r.Tested {
			tested++
		}
		if rowLabel(r) == labelFailed {
			failed++
		}
	}
	parts = append(parts, on(styles.Text).Render(fmt.Sprintf("%d/%d tested", tested, len(m.snapshot.Rows))))
	if failed > 0 {
		parts = append(parts, on(styles.DangerText).Render(fmt.Sprintf("%d failed", failed)))
	}
	if m.lastAction != nil {
		parts = append(parts, on(styles.WarningText).Render(truncate(m.lastAction.Error(), 50)))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

func (m Model) renderHealth(on func(lipgloss.Style) lipgloss.Style) string {
	styles := m.theme.Styles()
	snap := m.snapshot
	switch {
	case snap.IsOffline():
		label := "API " + classifyConnectionError(snap.LastError)
		return on(styles.DangerText).Render(label) + on(styles.WarningText).Render(" Retrying...")
	case snap.LastError != nil:
		return on(styles.WarningText).Render("API DEGRADED")
	case !snap.HasHealth:
		return on(styles.MutedText).Render("Connecting...")
	case snap.Health.OK():
		last := ""
		if !snap.LastUpdated.IsZero() {
			last = " " + snap.LastUpdated.Format("15:04:05")
		}
		return on(styles.SuccessText).Render("API UP") + on(styles.FaintText).Render(last)
	default:
		return on(styles.WarningText).Render("API " + strings.ToUpper(truncate(snap.Health.Status, 12)))
	}
}

// classifyConnectionError returns a short label for a health poll failure.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	surface := lipgloss.Color(m.theme.Surface)
	keyStyle := styles.AccentText.Background(surface)
	descStyle := styles.MutedText.Background(surface)
	colon := descStyle.Render(":")
	sep := descStyle.Render("  ")

	type cmd struct{ key, desc string }
	var commands []cmd
	switch m.currentView {
	case ViewLogs:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"g/G", "Top/Bottom"},
			{"esc", "Board"},
			{"?", "More"},
		}
	default:
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			commands = append(commands, cmd{h.Key, h.Desc})
		}
	}

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, keyStyle.Render(c.key)+colon+descStyle.Render(c.desc))
	}
	segments = append(segments, keyStyle.Render("T")+colon+styles.FaintText.Background(surface).Render(m.theme.Name))

	return lipgloss.NewStyle().
		Background(surface).
		Width(m.width).
		Padding(0, 1).
		Render(strings.Join(segments, sep))
}
