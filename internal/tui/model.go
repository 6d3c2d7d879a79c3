// Package tui renders pipeline runs in the terminal: a live step view fed by
// executor notifications, and an inspector for recorded trace snapshots.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
	"github.com/Jalkey-Chen/InterLines/internal/tui/components"
)

const maxNotes = 6

// StepStartMsg indicates a step has started executing.
type StepStartMsg struct {
	Name  string
	Phase string
}

// StepCompleteMsg reports that a step has finished execution.
type StepCompleteMsg struct {
	Result model.StepResult
}

// TraceMsg carries a trace note as it is captured.
type TraceMsg struct {
	Note string
}

// DoneMsg ends the run.
type DoneMsg struct {
	Report plan.Report
	Err    error
}

type tickMsg struct{}

// Model is the Bubbletea state of a live run.
type Model struct {
	title     string
	phase     string
	steps     map[string]model.StepResult
	order     []string
	notes     []string
	total     int
	completed int
	finished  bool
	cancelled bool
	report    plan.Report
	err       error
}

// NewModel constructs a model whose initial rows come from the initial phase plan.
func NewModel(title string, initial *engine.ExecutionPlan) Model {
	m := Model{
		title: title,
		phase: model.PhaseInitial,
		steps: make(map[string]model.StepResult),
	}
	if initial != nil {
		for _, step := range initial.Steps {
			m.ensureStep(initial.Phase, step.Name)
		}
	}
	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// TotalSteps returns the number of steps known so far.
func (m Model) TotalSteps() int {
	return m.total
}

// CompletedSteps returns the number of finished steps.
func (m Model) CompletedSteps() int {
	return m.completed
}

// IsFinished reports whether the run has ended.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user interrupted the view.
func (m Model) Cancelled() bool {
	return m.cancelled
}

func (m *Model) ensureStep(phase, name string) string {
	if phase == "" {
		phase = model.PhaseInitial
	}
	key := components.StepKey(phase, name)
	if _, exists := m.steps[key]; !exists {
		m.steps[key] = model.StepResult{Step: name, Phase: phase, Status: model.StatusPending}
		m.order = append(m.order, key)
		m.total++
	}
	return key
}

func (m *Model) addNote(note string) {
	m.notes = append(m.notes, note)
	if len(m.notes) > maxNotes {
		m.notes = m.notes[len(m.notes)-maxNotes:]
	}
}

func isSettled(status string) bool {
	return status == model.StatusSuccess || status == model.StatusSkipped || status == model.StatusFailed
}

// Observer forwards executor notifications to send, typically tea.Program.Send.
func Observer(send func(tea.Msg)) engine.Observer {
	return engine.ObserverFuncs{
		Started: func(name, phase string) {
			send(StepStartMsg{Name: name, Phase: phase})
		},
		Finished: func(res model.StepResult) {
			send(StepCompleteMsg{Result: res})
		},
	}
}
