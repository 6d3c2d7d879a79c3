package components

import (
	"github.com/Jalkey-Chen/InterLines/internal/model"
)

// StepKey identifies a step within a phase; refine passes reuse step names.
func StepKey(phase, name string) string {
	return phase + "/" + name
}

// StepEntry is one rendered row.
type StepEntry struct {
	Key    string
	Result model.StepResult
}

// StepList orders step results for rendering.
type StepList struct {
	entries []StepEntry
}

// NewStepList builds the list in order; keys missing from steps render as pending.
func NewStepList(order []string, steps map[string]model.StepResult) StepList {
	entries := make([]StepEntry, 0, len(order))
	for _, key := range order {
		res, ok := steps[key]
		if !ok {
			res = model.StepResult{Status: model.StatusPending}
		}
		entries = append(entries, StepEntry{Key: key, Result: res})
	}
	return StepList{entries: entries}
}

// Entries returns a copy of the ordered entries.
func (s StepList) Entries() []StepEntry {
	clone := make([]StepEntry, len(s.entries))
	copy(clone, s.entries)
	return clone
}

// CountStatus returns how many entries have status.
func (s StepList) CountStatus(status string) int {
	n := 0
	for _, entry := range s.entries {
		if entry.Result.Status == status {
			n++
		}
	}
	return n
}
