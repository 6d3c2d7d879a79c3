package model

import (
	"time"
)

const (
	// StatusPending indicates a step has not started yet.
	StatusPending = "pending"
	// StatusRunning indicates a step is actively executing.
	StatusRunning = "running"
	// StatusSuccess marks a successful step execution.
	StatusSuccess = "success"
	// StatusSkipped indicates the executor skipped the step.
	StatusSkipped = "skipped"
	// StatusFailed marks a failure during step execution.
	StatusFailed = "failed"
)

const (
	// PhaseInitial labels steps from the first full pass.
	PhaseInitial = "initial"
	// PhaseRefine labels steps from the replan pass.
	PhaseRefine = "refine"
	// PhaseFinal labels the final-assembly step re-run after refinement.
	PhaseFinal = "final"
)

// StepResult captures the outcome of executing a single step.
type StepResult struct {
	Step      string        `json:"step"`
	Phase     string        `json:"phase"`
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Error     error         `json:"-"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Failed reports whether the step ended in failure.
func (r StepResult) Failed() bool {
	return r.Status == StatusFailed
}
