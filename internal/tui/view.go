package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("InterLines • %s", m.heading())))

	progress := components.NewProgress(m.total, m.phase).View(m.completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := components.NewStepList(m.order, m.steps).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Steps"), renderStepEntries(entries))
	}

	if len(m.notes) > 0 {
		sections = append(sections, sectionStyle.Render("Trace"), noteStyle.Render(strings.Join(m.notes, "\n")))
	}

	summary := components.NewSummary(components.SummaryData{
		Total:      m.total,
		Completed:  m.completed,
		Finished:   m.finished,
		Cancelled:  m.cancelled,
		RefineUsed: m.report.RefineUsed,
		Reason:     m.report.ReplanReason,
		Err:        m.err,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}
	if m.finished && !m.cancelled {
		sections = append(sections, helpStyle.Render("press q to exit"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderStepEntries(entries []components.StepEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		res := entry.Result
		line := fmt.Sprintf(" %s %s", StatusIcon(res.Status), entry.Key)
		if res.Status == model.StatusFailed && strings.TrimSpace(res.Message) != "" {
			line = fmt.Sprintf("%s: %s", line, res.Message)
		}
		if res.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, res.Duration.Truncate(10*time.Millisecond))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) heading() string {
	if strings.TrimSpace(m.title) != "" {
		return m.title
	}
	return "Run"
}

// StatusIcon returns the glyph representing a step status.
func StatusIcon(status string) string {
	switch status {
	case model.StatusSuccess:
		return successStyle.Render("✓")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
