package plan

import "slices"

// Report summarizes the planning decisions of one run.
type Report struct {
	Strategy      string   `json:"strategy"`
	EnableHistory bool     `json:"enable_history"`
	InitialSteps  []string `json:"initial_steps"`
	ReplanSteps   []string `json:"replan_steps"`
	RefineUsed    bool     `json:"refine_used"`
	ReplanReason  string   `json:"replan_reason,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// BuildReport projects the initial plan and an optional replan decision into a
// Report. Replan steps are only recorded when refinement actually ran.
func BuildReport(initial Plan, replan *Plan, refineUsed bool) Report {
	report := Report{
		Strategy:      initial.Strategy,
		EnableHistory: initial.EnableHistory,
		InitialSteps:  slices.Clone(initial.Steps),
		RefineUsed:    refineUsed,
		Notes:         initial.Notes,
	}
	if replan != nil {
		report.ReplanReason = replan.ReplanReason
		if refineUsed {
			report.ReplanSteps = slices.Clone(replan.ReplanSteps)
		}
	}
	return report
}
