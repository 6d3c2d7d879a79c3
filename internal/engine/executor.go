package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/logger"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

// DefaultFinalStep is the final-assembly step re-run after refinement.
const DefaultFinalStep = "brief"

// Options configures an Executor.
type Options struct {
	Registry *Registry
	// Planner may be nil; the run then needs an explicit plan and never refines.
	Planner  Planner
	Services Services
	Logger   *logger.Logger
	// StepTimeout bounds each handler call when positive.
	StepTimeout time.Duration
	// AllowList restricts refine steps; nil means plan.DefaultAllowList.
	AllowList plan.AllowList
	// FinalStep overrides DefaultFinalStep. Use NoFinalStep to disable it.
	FinalStep string
	// QualityKey is the blackboard key holding the review report.
	QualityKey string
	// Observer, when set, is told about every step as it starts and ends.
	Observer Observer
}

// Observer receives step lifecycle notifications on the executor goroutine.
type Observer interface {
	StepStarted(name, phase string)
	StepFinished(result model.StepResult)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are ignored.
type ObserverFuncs struct {
	Started  func(name, phase string)
	Finished func(result model.StepResult)
}

// StepStarted implements Observer.
func (o ObserverFuncs) StepStarted(name, phase string) {
	if o.Started != nil {
		o.Started(name, phase)
	}
}

// StepFinished implements Observer.
func (o ObserverFuncs) StepFinished(result model.StepResult) {
	if o.Finished != nil {
		o.Finished(result)
	}
}

// NoFinalStep disables the post-refine final-assembly step.
const NoFinalStep = "-"

// RunRequest is the input of one Executor run.
type RunRequest struct {
	// Plan, when set, is used instead of asking the planner.
	Plan    *plan.Plan
	Context plan.Context
}

// Outcome is returned by Run on success and on failure, so partial artifacts
// stay inspectable.
type Outcome struct {
	Blackboard *blackboard.Blackboard
	Initial    plan.Plan
	Replan     *plan.Plan
	Report     plan.Report
	RefineUsed bool
	Results    []model.StepResult
	Traces     []blackboard.TraceSnapshot
}

// Executor drives the planning, initial, refine and reporting phases.
type Executor struct {
	registry    *Registry
	planner     Planner
	services    Services
	log         *logger.Logger
	stepTimeout time.Duration
	allow       plan.AllowList
	finalStep   string
	qualityKey  string
	observer    Observer
}

// NewExecutor creates a new executor instance.
func NewExecutor(opts Options) *Executor {
	allow := opts.AllowList
	if allow == nil {
		allow = plan.DefaultAllowList()
	}
	finalStep := opts.FinalStep
	switch finalStep {
	case "":
		finalStep = DefaultFinalStep
	case NoFinalStep:
		finalStep = ""
	}
	qualityKey := opts.QualityKey
	if qualityKey == "" {
		qualityKey = blackboard.KeyReviewReport
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	svc := opts.Services
	if svc.Logger == nil {
		svc.Logger = log
	}

	return &Executor{
		registry:    opts.Registry,
		planner:     opts.Planner,
		services:    svc,
		log:         log,
		stepTimeout: opts.StepTimeout,
		allow:       allow,
		finalStep:   finalStep,
		qualityKey:  qualityKey,
		observer:    opts.Observer,
	}
}

// Run executes one pipeline run against bb.
func (e *Executor) Run(ctx context.Context, bb *blackboard.Blackboard, req RunRequest) (*Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if bb == nil {
		return nil, ilerrors.NewExecutionError("", "planning", fmt.Errorf("blackboard is nil"))
	}
	if e.registry == nil {
		return nil, ilerrors.NewExecutionError("", "planning", fmt.Errorf("registry is nil"))
	}

	outcome := &Outcome{Blackboard: bb}
	finish := func(err error) (*Outcome, error) {
		outcome.Traces = bb.Traces()
		return outcome, err
	}

	// Planning.
	initial, err := e.initialPlan(ctx, bb, req)
	if err != nil {
		bb.Trace(fmt.Sprintf("planner: initial plan failed: %v", err))
		return finish(err)
	}
	outcome.Initial = initial
	bb.Put(blackboard.KeyPlanInitial, initial)

	graph, err := BuildFromPlan(initial)
	if err != nil {
		return finish(err)
	}
	if err := e.registry.Validate(initial.Steps); err != nil {
		return finish(err)
	}
	bb.Put(blackboard.KeyPlanDAG, graph.Payload())
	bb.Trace(fmt.Sprintf("planner: initial plan ready (%s)", initial.Strategy))
	e.log.WithFields(map[string]any{"strategy": initial.Strategy, "steps": initial.Steps}).Info("initial plan ready")

	// Executing(initial).
	if err := e.runGraph(ctx, bb, graph, model.PhaseInitial, outcome); err != nil {
		return finish(err)
	}

	// Refining.
	replan, refineSteps, err := e.refineDecision(ctx, bb, req, initial)
	outcome.Replan = replan
	if err != nil {
		return finish(err)
	}

	if len(refineSteps) > 0 {
		refineGraph, err := BuildFromSteps(refineSteps)
		if err != nil {
			return finish(err)
		}
		if err := e.runGraph(ctx, bb, refineGraph, model.PhaseRefine, outcome); err != nil {
			return finish(err)
		}
		outcome.RefineUsed = true

		if e.finalStep != "" && slices.Contains(initial.Steps, e.finalStep) && !slices.Contains(refineSteps, e.finalStep) {
			if err := e.runStep(ctx, bb, e.finalStep, model.PhaseFinal, outcome); err != nil {
				return finish(err)
			}
		}
	}

	// Reporting.
	outcome.Report = plan.BuildReport(initial, replan, outcome.RefineUsed)
	bb.Put(blackboard.KeyPlanReport, outcome.Report)
	bb.Trace("planner: report written")
	bb.Trace("pipeline: complete")
	e.log.WithFields(map[string]any{"refine_used": outcome.RefineUsed}).Info("pipeline complete")

	return finish(nil)
}

func (e *Executor) initialPlan(ctx context.Context, bb *blackboard.Blackboard, req RunRequest) (plan.Plan, error) {
	var p plan.Plan
	switch {
	case req.Plan != nil:
		p = req.Plan.Clone()
	case e.planner != nil:
		planned, err := e.planner.Plan(ctx, bb, req.Context)
		if err != nil {
			return plan.Plan{}, ilerrors.NewPlannerError("plan", err)
		}
		p = planned.Clone()
	default:
		return plan.Plan{}, ilerrors.NewValidationError("plan", "no plan supplied and no planner configured", nil)
	}

	if err := p.ValidateWith(e.allow); err != nil {
		return plan.Plan{}, err
	}
	return p, nil
}

// refineDecision asks the planner whether to refine and returns the recorded
// replan (nil when none was made) and the steps to run. Planner problems
// degrade to no refinement; only an unregistered allowed step is fatal, and
// that decision is still returned and recorded.
func (e *Executor) refineDecision(ctx context.Context, bb *blackboard.Blackboard, req RunRequest, initial plan.Plan) (*plan.Plan, []string, error) {
	if e.planner == nil {
		return nil, nil, nil
	}

	report, present, err := blackboard.ReviewReportAt(bb, e.qualityKey)
	if !present {
		bb.Trace("planner: no review report, skipping replan")
		return nil, nil, nil
	}
	if err != nil {
		e.log.WarnErr(err, "review report unusable")
		bb.Trace(fmt.Sprintf("planner: replan failed, skipping refinement: %v", err))
		return nil, nil, nil
	}

	decided, err := e.planner.Replan(ctx, bb, req.Context, initial, report)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return nil, nil, ilerrors.NewExecutionError("", model.PhaseRefine, ctx.Err())
			}
		}
		e.log.WarnErr(err, "replan failed")
		bb.Trace(fmt.Sprintf("planner: replan failed, skipping refinement: %v", err))
		return nil, nil, nil
	}

	replan := initial.WithReplan(plan.Decision{
		ShouldReplan: decided.ShouldReplan,
		Steps:        decided.ReplanSteps,
		Reason:       decided.ReplanReason,
	})

	if !replan.ShouldReplan {
		replan.ReplanSteps = nil
		bb.Put(blackboard.KeyPlanReplan, replan)
		bb.Trace(fmt.Sprintf("planner: replan declined (%s)", reasonOrDefault(replan.ReplanReason, "no reason given")))
		return &replan, nil, nil
	}

	valid, rejected := e.filterRefineSteps(replan.ReplanSteps)
	if len(rejected) > 0 {
		e.log.WithFields(map[string]any{"rejected": rejected}).Warn("replan steps rejected")
		bb.Trace(fmt.Sprintf("planner: replan steps rejected: %s", strings.Join(rejected, ", ")))
	}

	replan.ReplanSteps = valid
	if len(valid) == 0 {
		replan.ShouldReplan = false
		bb.Put(blackboard.KeyPlanReplan, replan)
		bb.Trace("planner: replan declined (no valid replan steps)")
		return &replan, nil, nil
	}

	bb.Put(blackboard.KeyPlanReplan, replan)
	for _, step := range valid {
		if _, err := e.registry.Get(step); err != nil {
			bb.Trace(fmt.Sprintf("executor: step %s failed: %v", step, err))
			return &replan, nil, err
		}
	}

	bb.Trace(fmt.Sprintf("planner: triggering replan with steps %s (reason: %s)",
		strings.Join(valid, ", "), reasonOrDefault(replan.ReplanReason, "none")))
	return &replan, valid, nil
}

// filterRefineSteps keeps allow-listed steps in order; repeats are rejected
// because each refine step runs once.
func (e *Executor) filterRefineSteps(steps []string) (valid, rejected []string) {
	allowed, denied := plan.FilterRefineSteps(steps, e.allow)
	seen := make(map[string]struct{}, len(allowed))
	for _, step := range allowed {
		if _, dup := seen[step]; dup {
			denied = append(denied, step)
			continue
		}
		seen[step] = struct{}{}
		valid = append(valid, step)
	}
	return valid, denied
}

func (e *Executor) runGraph(ctx context.Context, bb *blackboard.Blackboard, graph *Graph, phase string, outcome *Outcome) error {
	execPlan, err := GeneratePlan(graph, phase, e.registry)
	if err != nil {
		return err
	}
	for _, step := range execPlan.Steps {
		if err := e.runStep(ctx, bb, step.Name, phase, outcome); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runStep(ctx context.Context, bb *blackboard.Blackboard, name, phase string, outcome *Outcome) error {
	stepLog := e.log.WithStep(name, phase)

	if err := ctx.Err(); err != nil {
		e.record(outcome, model.StepResult{
			Step:      name,
			Phase:     phase,
			Status:    model.StatusSkipped,
			Message:   "context cancelled",
			Error:     err,
			Timestamp: e.services.Now(),
		})
		return ilerrors.NewExecutionError(name, phase, err)
	}

	handler, err := e.registry.Get(name)
	if err != nil {
		return err
	}

	stepCtx := ctx
	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}

	svc := e.services
	svc.Logger = stepLog

	if e.observer != nil {
		e.observer.StepStarted(name, phase)
	}
	start := time.Now()
	res := handler(stepCtx, bb, svc)
	duration := time.Since(start)

	stepResult := model.StepResult{
		Step:      name,
		Phase:     phase,
		Duration:  duration,
		Timestamp: e.services.Now(),
	}

	if res.IsErr() {
		stepErr := res.Error()
		stepResult.Status = model.StatusFailed
		stepResult.Error = stepErr
		stepResult.Message = stepErr.Error()
		if errors.Is(stepErr, context.DeadlineExceeded) || errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			stepResult.Message = "timeout exceeded"
		}
		e.record(outcome, stepResult)
		stepLog.Error(stepErr, "step failed")
		bb.Trace(fmt.Sprintf("executor: step %s failed: %v", name, stepErr))
		return ilerrors.NewExecutionError(name, phase, stepErr)
	}

	stepResult.Status = model.StatusSuccess
	stepResult.Message = "completed"
	e.record(outcome, stepResult)
	stepLog.StepDone(duration, "step completed")
	bb.Trace(fmt.Sprintf("executor: %s step %s done", phase, name))
	return nil
}

func (e *Executor) record(outcome *Outcome, res model.StepResult) {
	outcome.Results = append(outcome.Results, res)
	if e.observer != nil {
		e.observer.StepFinished(res)
	}
}

func reasonOrDefault(reason, def string) string {
	if strings.TrimSpace(reason) == "" {
		return def
	}
	return reason
}
