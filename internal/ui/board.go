package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/sporthub/internal/state"
)

// Row labels shown in the status column.
const (
	labelUntested = "untested"
	labelTesting  = "testing"
	labelFailed   = "failed"
	labelStale    = "stale"
	labelOK       = "ok"
)

// rowLabel summarizes where an endpoint is in its test lifecycle.
func rowLabel(r state.Row) string {
	switch {
	case !r.Tested:
		return labelUntested
	case r.State.IsLoading:
		return labelTesting
	case r.State.Err != nil:
		return labelFailed
	case r.State.Data == nil:
		return labelUntested
	case r.State.Stale:
		return labelStale
	default:
		return labelOK
	}
}

func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
			m.detailViewport.GotoTop()
			m.updateDetailViewport()
		}
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < len(m.snapshot.Rows)-1 {
			m.selectedRow++
			m.detailViewport.GotoTop()
			m.updateDetailViewport()
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
		m.updateDetailViewport()
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(len(m.snapshot.Rows)-1, 0)
		m.updateDetailViewport()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.detailViewport.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.detailViewport.HalfPageUp()

	case key.Matches(msg, m.keys.Test):
		return m, m.endpointCmd(func(path string) error { return m.store.Test(m.ctx, path) })
	case key.Matches(msg, m.keys.Reset):
		return m, m.endpointCmd(m.store.Reset)
	case key.Matches(msg, m.keys.Refetch):
		return m, m.endpointCmd(func(path string) error { return m.store.Refetch(m.ctx, path) })
	case key.Matches(msg, m.keys.TestAll):
		if m.store == nil {
			return m, nil
		}
		store, ctx := m.store, m.ctx
		return m, func() tea.Msg { return actionMsg{err: store.TestAll(ctx)} }
	case key.Matches(msg, m.keys.Invalidate):
		if m.store == nil {
			return m, nil
		}
		store, ctx := m.store, m.ctx
		return m, func() tea.Msg {
			store.InvalidateAll(ctx)
			return actionMsg{}
		}
	}
	return m, nil
}

// endpointCmd runs fn against the selected endpoint off the update loop.
func (m Model) endpointCmd(fn func(path string) error) tea.Cmd {
	path := m.selectedPath()
	if m.store == nil || path == "" {
		return nil
	}
	return func() tea.Msg {
		return actionMsg{err: fn(path)}
	}
}

// boardWidths splits the window between the endpoint list and the detail pane.
func (m Model) boardWidths() (int, int) {
	listWidth := m.width * 2 / 5
	if listWidth < 30 {
		listWidth = min(30, m.width)
	}
	return listWidth, max(m.width-listWidth, 0)
}

func (m Model) renderBoard() string {
	height := max(m.height-2, 3)
	listWidth, detailWidth := m.boardWidths()

	title := "Endpoints"
	if n := len(m.snapshot.Failed()); n > 0 {
		title = fmt.Sprintf("Endpoints (%d failed)", n)
	}
	list := m.renderTitledBox(title, m.renderEndpointList(listWidth-2), listWidth, height, true)
	if detailWidth < 10 {
		return list
	}
	detail := m.renderTitledBox(m.detailTitle(), m.detailViewport.View(), detailWidth, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}

func (m Model) renderEndpointList(width int) string {
	styles := m.theme.Styles()
	if len(m.snapshot.Rows) == 0 {
		return styles.MutedText.Render("No endpoints configured")
	}

	var b strings.Builder
	for i, r := range m.snapshot.Rows {
		label := rowLabel(r)
		badge := styles.StatusStyle(label).Render(padRight(label, 8))
		pathWidth := max(width-lipgloss.Width(badge)-3, 4)
		path := padRight(truncate(r.Endpoint.Path, pathWidth), pathWidth)

		line := " " + path + " " + badge
		if i == m.selectedRow {
			line = styles.Selected.Render(">"+path) + " " + badge
		}
		b.WriteString(line)
		b.WriteString("\n")

		desc := truncate(r.Endpoint.Title, width-2)
		b.WriteString("  " + styles.FaintText.Render(desc))
		if i < len(m.snapshot.Rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderTitledBox draws a bordered box with the title embedded in the top
// border.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor, bgColor := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColor, bgColor = m.theme.BorderFocus, m.theme.FocusBg
	}
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor)).Background(lipgloss.Color(bgColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text)).Background(lipgloss.Color(bgColor))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 0))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	top := borderStyle.Render("┌"+strings.Repeat("─", leftPad)) +
		titleStyle.Render(" "+title+" ") +
		borderStyle.Render(strings.Repeat("─", rightPad)+"┐")
	bottom := borderStyle.Render("└" + strings.Repeat("─", innerWidth) + "┘")

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColor))
	lines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	var b strings.Builder
	b.WriteString(top)
	b.WriteString("\n")
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		b.WriteString(borderStyle.Render("│"))
		b.WriteString(contentStyle.Render(line))
		b.WriteString(borderStyle.Render("│"))
		b.WriteString("\n")
	}
	b.WriteString(bottom)
	return b.String()
}
