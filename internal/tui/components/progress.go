package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Progress renders how many planned steps have finished.
type Progress struct {
	bar   progress.Model
	total int
	phase string
}

// NewProgress creates a progress bar over total steps.
func NewProgress(total int, phase string) Progress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30
	return Progress{bar: bar, total: total, phase: phase}
}

// View renders the bar for completed steps. Counts past total render a full bar.
func (p Progress) View(completed int) string {
	ratio := 0.0
	if p.total > 0 {
		ratio = math.Min(1.0, float64(completed)/float64(p.total))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d", completed, p.total))
	parts := []string{label, " ", p.bar.ViewAs(ratio)}
	if p.phase != "" {
		parts = append(parts, " ", lipgloss.NewStyle().Faint(true).Render(p.phase))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
