package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/five82/sporthub/internal/state"
	"github.com/five82/sporthub/internal/timing"
)

func (m Model) detailTitle() string {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Rows) {
		return "Details"
	}
	return m.snapshot.Rows[m.selectedRow].Endpoint.Title
}

func (m *Model) updateDetailViewport() {
	if !m.ready {
		return
	}
	m.detailViewport.SetContent(m.renderDetail())
}

// renderDetail renders the result pane for the selected endpoint.
func (m Model) renderDetail() string {
	styles := m.theme.Styles()
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Rows) {
		return styles.MutedText.Render("Select an endpoint")
	}
	r := m.snapshot.Rows[m.selectedRow]

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("GET " + r.Endpoint.Path))
	b.WriteString("\n")
	if r.Endpoint.Description != "" {
		b.WriteString(styles.MutedText.Render(r.Endpoint.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case !r.Tested:
		b.WriteString(styles.FaintText.Render("Press enter to test this endpoint"))
	case r.State.IsLoading:
		b.WriteString(m.spinner.View() + " " + styles.InfoText.Render("Testing..."))
	case r.State.Err != nil:
		m.writeError(&b, r)
	case r.State.Data != nil:
		m.writeResult(&b, r)
	default:
		b.WriteString(styles.FaintText.Render("No result yet"))
	}
	return b.String()
}

func (m Model) writeError(b *strings.Builder, r state.Row) {
	styles := m.theme.Styles()
	err := r.State.Err
	b.WriteString(styles.DangerText.Render("Error"))
	b.WriteString("\n")
	b.WriteString(styles.Text.Render(err.Error()))
	b.WriteString("\n")
	if err.StatusCode != 0 {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("Status: %d", err.StatusCode)))
		b.WriteString("\n")
	}
	if r.State.FailureCount > 1 {
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("Failed %d times in a row", r.State.FailureCount)))
		b.WriteString("\n")
	}
	m.writeTimestamps(b, r)
}

func (m Model) writeResult(b *strings.Builder, r state.Row) {
	styles := m.theme.Styles()
	summary, _ := r.Summary()

	status := summary.Status
	if status == "" {
		status = fmt.Sprintf("%d", r.State.Data.StatusCode)
	}
	b.WriteString(styles.SuccessText.Render("Status: " + status))
	if r.State.Stale {
		b.WriteString(" " + styles.WarningText.Render("(stale)"))
	}
	b.WriteString("\n")
	if summary.Message != "" {
		b.WriteString(styles.Text.Render(summary.Message))
		b.WriteString("\n")
	}
	m.writeTimestamps(b, r)
	b.WriteString("\n")

	if r.Endpoint.Path == timing.ClassificationPath {
		if table, ok := decodeClassification(r.State.Data.Payload); ok {
			b.WriteString(m.renderStandings(table))
			b.WriteString("\n")
		}
	}

	body := summary.Data
	if len(body) == 0 {
		body = r.State.Data.Payload
	}
	b.WriteString(styles.MutedText.Render("Data"))
	b.WriteString("\n")
	b.WriteString(styles.Text.Render(prettyJSON(body)))
}

func (m Model) writeTimestamps(b *strings.Builder, r state.Row) {
	styles := m.theme.Styles()
	if !r.LastTested.IsZero() {
		b.WriteString(styles.FaintText.Render("Tested " + r.LastTested.Format("15:04:05")))
		b.WriteString("\n")
	}
	if !r.State.UpdatedAt.IsZero() {
		b.WriteString(styles.FaintText.Render("Updated " + r.State.UpdatedAt.Format("15:04:05")))
		b.WriteString("\n")
	}
}

func decodeClassification(raw json.RawMessage) (timing.ClassificationTable, bool) {
	var table timing.ClassificationTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return timing.ClassificationTable{}, false
	}
	return table, true
}

// renderStandings renders the classification as a fixed-width table.
func (m Model) renderStandings(table timing.ClassificationTable) string {
	styles := m.theme.Styles()
	var b strings.Builder

	header := fmt.Sprintf("%d competitors, %d finished", table.Data.Count, table.FinishedCount())
	b.WriteString(styles.AccentText.Render("Classification"))
	b.WriteString(" " + styles.MutedText.Render(header))
	b.WriteString("\n")
	if len(table.Data.Standings) == 0 {
		b.WriteString(styles.FaintText.Render("No standings yet"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(styles.MutedText.Render(fmt.Sprintf("%-4s %-10s %5s %-12s %-10s %s", "Pos", "Tag", "Laps", "Time", "Gap", "Last pass")))
	b.WriteString("\n")
	for i, s := range table.Data.Standings {
		last := "-"
		if t := s.ParsedLastPass(); !t.IsZero() {
			last = t.Local().Format(time.TimeOnly)
		}
		line := fmt.Sprintf("%-4d %-10s %5d %-12s %-10s %s",
			i+1,
			truncate(s.TagID, 10),
			s.Laps,
			timing.FormatRaceTime(s.TotalTime()),
			s.GapLabel(),
			last,
		)
		style := styles.Text
		if s.Finished {
			style = styles.SuccessText
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
