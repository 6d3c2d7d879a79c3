// Package pipeline runs one public-translation job end to end: it prepares
// the blackboard and its trace sinks, picks a planner, drives the executor
// and records the run in the registry.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/logger"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
	"github.com/Jalkey-Chen/InterLines/internal/planner"
	"github.com/Jalkey-Chen/InterLines/internal/runstore"
	"github.com/Jalkey-Chen/InterLines/internal/stages"
	"github.com/Jalkey-Chen/InterLines/internal/tracestore"
	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

// Planner kinds accepted by Settings.Planner.
const (
	PlannerStatic = "static"
	PlannerRules  = "rules"
	PlannerLLM    = "llm"
)

// Request describes one run.
type Request struct {
	Input         string
	EnableHistory bool
	// UseLLMPlanner forces the LLM planner regardless of Settings.Planner.
	UseLLMPlanner bool
	// Plan, when set, replaces the planner's initial plan. Refinement still
	// goes through the configured planner.
	Plan *plan.Plan
}

// Settings tunes the executor. Zero values select its defaults.
type Settings struct {
	OutputDir       string
	StepTimeout     time.Duration
	FinalStep       string
	QualityKey      string
	AllowList       plan.AllowList
	Planner         string
	PlannerModel    string
	ReplanThreshold float64
}

// Deps carries the collaborators of a run. Every field is optional.
type Deps struct {
	Generator llm.Generator
	Logger    *logger.Logger
	Runs      *runstore.Store
	// TraceDir receives one JSON file per snapshot under <TraceDir>/<run id>.
	TraceDir string
	Redis    *tracestore.RedisStore
	Sinks    []blackboard.Sink
	Observer engine.Observer
	Clock    func() time.Time
	Settings Settings
}

// Result is what a run leaves behind. It is returned alongside an error when
// the run fails after the blackboard was created.
type Result struct {
	RunID        string
	Blackboard   *blackboard.Blackboard
	ParsedChunks []model.Chunk
	Explanations []model.ExplanationCard
	Brief        model.PublicBrief
	BriefPath    string
	Report       plan.Report
	RefineUsed   bool
	Results      []model.StepResult
	Traces       []blackboard.TraceSnapshot
}

// Run executes req with deps.
func Run(ctx context.Context, req Request, deps Deps) (*Result, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, ilerrors.NewValidationError("input", "input text is empty", nil)
	}
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	runID, err := createRun(ctx, deps.Runs, req.Input)
	if err != nil {
		return nil, err
	}
	log = log.WithRun(runID)

	res, err := execute(ctx, runID, req, deps, log)
	if err != nil {
		failRun(ctx, deps.Runs, runID, err, log)
		log.Error(err, "run failed")
		return res, err
	}

	if deps.Runs != nil {
		completion := runstore.Completion{
			Strategy:   res.Report.Strategy,
			RefineUsed: res.RefineUsed,
			BriefPath:  res.BriefPath,
		}
		if err := deps.Runs.Complete(context.WithoutCancel(ctx), runID, completion); err != nil {
			log.WarnErr(err, "run store: mark completed")
		}
	}
	return res, nil
}

func execute(ctx context.Context, runID string, req Request, deps Deps, log *logger.Logger) (*Result, error) {
	sinks, err := buildSinks(runID, deps)
	if err != nil {
		return nil, err
	}
	opts := []blackboard.Option{blackboard.WithLogger(log)}
	if deps.Clock != nil {
		opts = append(opts, blackboard.WithClock(deps.Clock))
	}
	for _, sink := range sinks {
		opts = append(opts, blackboard.WithSink(sink))
	}
	bb := blackboard.New(opts...)
	bb.Put(blackboard.KeyInputText, req.Input)

	res := &Result{RunID: runID, Blackboard: bb}

	reg, err := stages.NewRegistry()
	if err != nil {
		return res, err
	}
	pl, runPlan, err := choosePlanner(req, deps, log)
	if err != nil {
		return res, err
	}

	if deps.Runs != nil {
		if err := deps.Runs.MarkProcessing(ctx, runID); err != nil {
			return res, fmt.Errorf("run store: %w", err)
		}
	}

	exec := engine.NewExecutor(engine.Options{
		Registry: reg,
		Planner:  pl,
		Services: engine.Services{
			Generator: deps.Generator,
			Logger:    log,
			Clock:     deps.Clock,
			RunID:     runID,
			OutputDir: deps.Settings.OutputDir,
		},
		Logger:      log,
		StepTimeout: deps.Settings.StepTimeout,
		AllowList:   deps.Settings.AllowList,
		FinalStep:   deps.Settings.FinalStep,
		QualityKey:  deps.Settings.QualityKey,
		Observer:    deps.Observer,
	})

	outcome, runErr := exec.Run(ctx, bb, engine.RunRequest{
		Plan:    runPlan,
		Context: plan.NewContext(req.Input, req.EnableHistory),
	})
	if outcome != nil {
		res.Report = outcome.Report
		res.RefineUsed = outcome.RefineUsed
		res.Results = outcome.Results
		res.Traces = outcome.Traces
	}
	res.ParsedChunks = blackboard.ParsedChunks(bb)
	res.Explanations = blackboard.Explanations(bb)
	res.Brief, _ = blackboard.PublicBrief(bb)
	res.BriefPath = blackboard.BriefPath(bb)
	return res, runErr
}

// choosePlanner returns the planner for the run and, for static runs or a
// caller-supplied plan, the initial plan handed to the executor.
func choosePlanner(req Request, deps Deps, log *logger.Logger) (engine.Planner, *plan.Plan, error) {
	kind := deps.Settings.Planner
	if req.UseLLMPlanner {
		kind = PlannerLLM
	}
	if kind == "" {
		kind = PlannerRules
	}

	var pl engine.Planner
	switch kind {
	case PlannerStatic:
	case PlannerRules:
		pl = planner.NewRules(deps.Settings.ReplanThreshold, deps.Settings.AllowList)
	case PlannerLLM:
		if deps.Generator == nil {
			return nil, nil, ilerrors.NewValidationError("planner", "the llm planner needs a text generator", llm.ErrNoGenerator)
		}
		opts := []planner.Option{planner.WithLogger(log)}
		if deps.Settings.AllowList != nil {
			opts = append(opts, planner.WithAllowList(deps.Settings.AllowList))
		}
		if deps.Settings.PlannerModel != "" {
			opts = append(opts, planner.WithModel(deps.Settings.PlannerModel))
		}
		llmPlanner, err := planner.NewLLM(deps.Generator, opts...)
		if err != nil {
			return nil, nil, err
		}
		pl = llmPlanner
	default:
		return nil, nil, ilerrors.NewValidationError("planner", fmt.Sprintf("unknown planner %q", kind), nil)
	}

	switch {
	case req.Plan != nil:
		p := req.Plan.Clone()
		return pl, &p, nil
	case pl == nil:
		p := plan.Default(req.EnableHistory)
		return nil, &p, nil
	}
	return pl, nil, nil
}

func buildSinks(runID string, deps Deps) ([]blackboard.Sink, error) {
	sinks := append([]blackboard.Sink(nil), deps.Sinks...)
	if deps.TraceDir != "" {
		fileSink, err := tracestore.NewFileSink(filepath.Join(deps.TraceDir, runID))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileSink)
	}
	if deps.Redis != nil {
		sinks = append(sinks, deps.Redis.Sink(runID))
	}
	return sinks, nil
}

func createRun(ctx context.Context, runs *runstore.Store, input string) (string, error) {
	if runs == nil {
		return uuid.NewString(), nil
	}
	run, err := runs.Create(ctx, input)
	if err != nil {
		return "", fmt.Errorf("run store: %w", err)
	}
	return run.ID, nil
}

func failRun(ctx context.Context, runs *runstore.Store, runID string, cause error, log *logger.Logger) {
	if runs == nil {
		return
	}
	if err := runs.Fail(context.WithoutCancel(ctx), runID, cause); err != nil {
		log.WarnErr(err, "run store: mark failed")
	}
}
