package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Jalkey-Chen/InterLines/internal/model"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case StepStartMsg:
		key := m.ensureStep(msg.Phase, msg.Name)
		step := m.steps[key]
		step.Status = model.StatusRunning
		m.steps[key] = step
		m.phase = step.Phase
		return m, nil
	case StepCompleteMsg:
		res := msg.Result
		if res.Step == "" {
			return m, nil
		}
		key := m.ensureStep(res.Phase, res.Step)
		if !isSettled(m.steps[key].Status) {
			m.completed++
		}
		m.steps[key] = res
		return m, nil
	case TraceMsg:
		m.addNote(msg.Note)
		return m, nil
	case DoneMsg:
		m.finished = true
		m.report = msg.Report
		m.err = msg.Err
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		case "q", "esc", "enter":
			if m.finished {
				return m, tea.Quit
			}
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
