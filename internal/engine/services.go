package engine

import (
	"context"
	"time"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/logger"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
)

// Services carries the collaborators handed to every handler invocation.
type Services struct {
	Generator llm.Generator
	Logger    *logger.Logger
	Clock     func() time.Time
	RunID     string
	// OutputDir is where file-producing steps write; empty disables file output.
	OutputDir string
}

// Now returns the current time from Clock, falling back to time.Now.
func (s Services) Now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Planner is the planning collaborator consulted before the first pass and
// after it when a review report exists.
type Planner interface {
	Plan(ctx context.Context, bb *blackboard.Blackboard, pctx plan.Context) (plan.Plan, error)
	Replan(ctx context.Context, bb *blackboard.Blackboard, pctx plan.Context, previous plan.Plan, report model.ReviewReport) (plan.Plan, error)
}
