package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
)

// DefaultThreshold is the score under which a review dimension is refined.
const DefaultThreshold = 0.7

// dimensionSteps maps a review dimension to the refine steps that address it.
// Safety has no dedicated step; the closing editor pass re-scores it.
var dimensionSteps = map[string][]string{
	"accuracy":     {"explainer_refine"},
	"clarity":      {"explainer_refine"},
	"completeness": {"citizen_refine", "jargon_refine"},
}

// Rules plans the fixed step list and refines every review dimension that
// scores under Threshold. The editor always closes a refine pass.
type Rules struct {
	Threshold float64
	Allow     plan.AllowList
}

var _ engine.Planner = Rules{}

// NewRules returns a Rules planner; a non-positive threshold uses DefaultThreshold.
func NewRules(threshold float64, allow plan.AllowList) Rules {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if allow == nil {
		allow = plan.DefaultAllowList()
	}
	return Rules{Threshold: threshold, Allow: allow}
}

// Plan implements engine.Planner.
func (r Rules) Plan(_ context.Context, _ *blackboard.Blackboard, pctx plan.Context) (plan.Plan, error) {
	return plan.Default(pctx.EnableHistoryRequested), nil
}

// Replan implements engine.Planner.
func (r Rules) Replan(_ context.Context, _ *blackboard.Blackboard, _ plan.Context, previous plan.Plan, report model.ReviewReport) (plan.Plan, error) {
	r = NewRules(r.Threshold, r.Allow)

	low := report.BelowThreshold(r.Threshold)
	if len(low) == 0 {
		return previous.WithReplan(plan.Decision{
			Reason: fmt.Sprintf("all criteria at or above %.2f", r.Threshold),
		}), nil
	}

	scores := report.Criteria.Scores()
	var steps, reasons []string
	seen := map[string]struct{}{}
	add := func(step string) {
		if _, dup := seen[step]; dup || !r.Allow.Contains(step) {
			return
		}
		seen[step] = struct{}{}
		steps = append(steps, step)
	}

	for _, dim := range low {
		reasons = append(reasons, fmt.Sprintf("%s %.2f below %.2f", dim, scores[dim], r.Threshold))
		for _, step := range dimensionSteps[dim] {
			add(step)
		}
		if dim == "completeness" && previous.EnableHistory {
			add("history_refine")
		}
	}
	add("editor")

	return previous.WithReplan(plan.Decision{
		ShouldReplan: len(steps) > 0,
		Steps:        steps,
		Reason:       strings.Join(reasons, "; "),
	}), nil
}
