// Package printer writes colored, human-oriented CLI output.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
	"github.com/Jalkey-Chen/InterLines/internal/runstore"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(14)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

// Printer writes to an output and an error stream.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New returns a Printer; nil writers default to stdout and stderr.
func New(out, errOut io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut}
}

// DisableColor turns off ANSI colors for every Printer.
func DisableColor() {
	color.NoColor = true
}

// Success prints a green message with a checkmark prefix.
func (p *Printer) Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprintln(p.out, msg)
}

// Info prints a plain line.
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

// Warning prints a yellow message to the error stream.
func (p *Printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.err, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Step prints a cyan progress line.
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Error prints a titled error with explanation and suggestions to the error
// stream and returns an error carrying only the title, for cobra.
func (p *Printer) Error(title, explanation string, suggestions []string) error {
	red.Fprintf(p.err, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(p.err, "%s\n", explanation)
	}
	if len(suggestions) > 0 {
		fmt.Fprintln(p.err)
		if len(suggestions) == 1 {
			fmt.Fprintf(p.err, "%s\n", suggestions[0])
		} else {
			fmt.Fprintln(p.err, "Either:")
			for i, suggestion := range suggestions {
				fmt.Fprintf(p.err, "  %d. %s\n", i+1, suggestion)
			}
		}
	}
	return fmt.Errorf("%s", title)
}

// StepObserver prints a line as each executor step finishes.
func (p *Printer) StepObserver() engine.Observer {
	return engine.ObserverFuncs{
		Finished: func(res model.StepResult) {
			line := fmt.Sprintf("[%s] %s (%s)", res.Phase, res.Step, res.Duration.Truncate(time.Millisecond))
			switch res.Status {
			case model.StatusSuccess:
				p.Success("%s", line)
			case model.StatusFailed:
				red.Fprintf(p.out, "✗ %s: %s\n", line, res.Message)
			default:
				faint.Fprintf(p.out, "⊘ %s: %s\n", line, res.Message)
			}
		},
	}
}

// Report renders a plan report in a bordered box.
func (p *Printer) Report(runID string, report plan.Report) {
	rows := [][2]string{
		{"Run", orDash(runID)},
		{"Strategy", report.Strategy},
		{"History", fmt.Sprintf("%t", report.EnableHistory)},
		{"Steps", strings.Join(report.InitialSteps, " → ")},
		{"Refined", fmt.Sprintf("%t", report.RefineUsed)},
	}
	if len(report.ReplanSteps) > 0 {
		rows = append(rows, [2]string{"Refine steps", strings.Join(report.ReplanSteps, ", ")})
	}
	if report.ReplanReason != "" {
		rows = append(rows, [2]string{"Reason", report.ReplanReason})
	}
	if report.Notes != "" {
		rows = append(rows, [2]string{"Notes", report.Notes})
	}
	fmt.Fprintln(p.out, boxStyle.Render(renderRows(rows)))
}

// Runs renders run registry rows as an aligned table.
func (p *Printer) Runs(runs []runstore.Run) {
	if len(runs) == 0 {
		p.Info("No runs recorded.")
		return
	}
	header := fmt.Sprintf("%-36s  %-10s  %-20s  %s", "RUN", "STATUS", "CREATED", "INPUT")
	fmt.Fprintln(p.out, headerStyle.Render(header))
	for _, run := range runs {
		status := statusColor(run.Status).Sprintf("%-10s", run.Status)
		fmt.Fprintf(p.out, "%-36s  %s  %-20s  %s\n",
			run.ID, status, run.CreatedAt.Local().Format("2006-01-02 15:04:05"), truncate(run.InputPreview, 48))
	}
}

// KeyValues prints sorted key/value pairs, one per line.
func (p *Printer) KeyValues(values map[string]string) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([][2]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, [2]string{key, values[key]})
	}
	fmt.Fprintln(p.out, renderRows(rows))
}

func renderRows(rows [][2]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), row[1]))
	}
	return strings.Join(lines, "\n")
}

func statusColor(status runstore.Status) *color.Color {
	switch status {
	case runstore.StatusCompleted:
		return green
	case runstore.StatusFailed:
		return red
	case runstore.StatusProcessing:
		return cyan
	default:
		return yellow
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
