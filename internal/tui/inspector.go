package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	listWidth     = 44
)

// Inspector browses recorded trace snapshots: the list on the left selects a
// snapshot whose blackboard contents scroll on the right.
type Inspector struct {
	runID     string
	snapshots []blackboard.TraceSnapshot
	cursor    int
	width     int
	height    int
	detail    viewport.Model
}

// NewInspector builds an inspector over snapshots.
func NewInspector(runID string, snapshots []blackboard.TraceSnapshot) Inspector {
	in := Inspector{
		runID:     runID,
		snapshots: snapshots,
		width:     defaultWidth,
		height:    defaultHeight,
		detail:    viewport.New(defaultWidth-listWidth-2, defaultHeight-4),
	}
	in.refresh()
	return in
}

// Init implements tea.Model.
func (in Inspector) Init() tea.Cmd {
	return nil
}

// Selected returns the index of the highlighted snapshot.
func (in Inspector) Selected() int {
	return in.cursor
}

// Update implements tea.Model.
func (in Inspector) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		in.width, in.height = msg.Width, msg.Height
		in.detail.Width = max(in.width-listWidth-2, 20)
		in.detail.Height = max(in.height-4, 5)
		in.refresh()
		return in, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return in, tea.Quit
		case "up", "k":
			if in.cursor > 0 {
				in.cursor--
				in.refresh()
			}
			return in, nil
		case "down", "j":
			if in.cursor < len(in.snapshots)-1 {
				in.cursor++
				in.refresh()
			}
			return in, nil
		case "home", "g":
			in.cursor = 0
			in.refresh()
			return in, nil
		case "end", "G":
			if len(in.snapshots) > 0 {
				in.cursor = len(in.snapshots) - 1
				in.refresh()
			}
			return in, nil
		}
	}

	var cmd tea.Cmd
	in.detail, cmd = in.detail.Update(msg)
	return in, cmd
}

// View implements tea.Model.
func (in Inspector) View() string {
	title := titleStyle.Render(fmt.Sprintf("InterLines traces • %s", orRun(in.runID)))
	if len(in.snapshots) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, "", "No trace snapshots recorded.", helpStyle.Render("q quit"))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Width(listWidth).Render(in.renderList()),
		" ",
		in.detail.View(),
	)
	help := helpStyle.Render("↑/↓ select • pgup/pgdn scroll • q quit")
	return lipgloss.JoinVertical(lipgloss.Left, title, "", body, help)
}

func (in Inspector) renderList() string {
	visible := max(in.height-4, 5)
	start := 0
	if in.cursor >= visible {
		start = in.cursor - visible + 1
	}
	end := min(start+visible, len(in.snapshots))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		snap := in.snapshots[i]
		line := truncateRunes(fmt.Sprintf("%3d r%-3d %s", snap.Seq, snap.Revision, snap.Note), listWidth-4)
		if i == in.cursor {
			line = selectedStyle.Render("▸ " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (in *Inspector) refresh() {
	if len(in.snapshots) == 0 {
		in.detail.SetContent("")
		return
	}
	in.detail.SetContent(RenderSnapshot(in.snapshots[in.cursor]))
	in.detail.GotoTop()
}

// RenderSnapshot formats one snapshot as a header followed by its data as JSON.
func RenderSnapshot(snap blackboard.TraceSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(snap.Note))
	fmt.Fprintf(&b, "seq %d • revision %d • %s\n\n", snap.Seq, snap.Revision, snap.Timestamp)

	data, err := json.MarshalIndent(snap.Data, "", "  ")
	if err != nil {
		fmt.Fprintf(&b, "unrenderable data: %v", err)
		return b.String()
	}
	b.Write(data)
	return b.String()
}

func orRun(runID string) string {
	if runID == "" {
		return "local"
	}
	return runID
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
