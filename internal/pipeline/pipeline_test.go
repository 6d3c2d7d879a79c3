package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
	"github.com/Jalkey-Chen/InterLines/internal/runstore"
	"github.com/Jalkey-Chen/InterLines/internal/tracestore"
	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

const sampleInput = `The General Data Protection Regulation (GDPR) was adopted by the European Union in 2016 and applies since 2018.

It gives individuals control over personal data and requires organisations to justify every processing activity.

Regulators may impose fines of up to four percent of global annual turnover for serious infringements.`

func openRuns(t *testing.T) *runstore.Store {
	t.Helper()
	store, err := runstore.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRun_RejectsEmptyInput(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), Request{Input: "  \n"}, Deps{})
	require.Nil(t, res)
	var valErr *ilerrors.ValidationError
	require.True(t, errors.As(err, &valErr))
	require.Equal(t, "input", valErr.Field)
}

func TestRun_RulesPlannerEndToEnd(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	traceDir := t.TempDir()
	runs := openRuns(t)

	var started []string
	observer := engine.ObserverFuncs{Started: func(name, phase string) {
		started = append(started, phase+":"+name)
	}}

	res, err := Run(context.Background(), Request{Input: sampleInput}, Deps{
		Runs:     runs,
		TraceDir: traceDir,
		Observer: observer,
		Settings: Settings{OutputDir: outDir},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	require.Equal(t, plan.StrategyNoHistory, res.Report.Strategy)
	require.Equal(t, plan.DefaultSteps(false), res.Report.InitialSteps)
	require.Len(t, res.ParsedChunks, 3)
	require.NotEmpty(t, res.Explanations)
	require.NotEmpty(t, res.Brief.Markdown)
	require.Equal(t, filepath.Join(outDir, res.RunID+".md"), res.BriefPath)
	require.FileExists(t, res.BriefPath)

	require.GreaterOrEqual(t, len(started), len(plan.DefaultSteps(false)))
	require.Equal(t, "initial:parse", started[0])

	last := res.Traces[len(res.Traces)-1]
	require.Equal(t, "pipeline: complete", last.Note)

	onDisk, err := tracestore.ReadDir(filepath.Join(traceDir, res.RunID))
	require.NoError(t, err)
	require.Len(t, onDisk, len(res.Traces))

	run, err := runs.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Equal(t, runstore.StatusCompleted, run.Status)
	require.Equal(t, plan.StrategyNoHistory, run.Strategy)
	require.Equal(t, res.RefineUsed, run.RefineUsed)
	require.Equal(t, res.BriefPath, run.BriefPath)
}

func TestRun_HistoryAddsTimeline(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), Request{Input: sampleInput, EnableHistory: true}, Deps{})
	require.NoError(t, err)
	require.Equal(t, plan.StrategyWithHistory, res.Report.Strategy)
	require.Contains(t, res.Report.InitialSteps, "timeline")
	require.Empty(t, res.BriefPath)
}

func TestRun_StaticPlanNeverRefines(t *testing.T) {
	t.Parallel()

	custom := plan.Plan{Strategy: "custom", Steps: []string{"parse", "translate", "review", "brief"}}
	res, err := Run(context.Background(), Request{Input: sampleInput, Plan: &custom}, Deps{
		Settings: Settings{Planner: PlannerStatic},
	})
	require.NoError(t, err)
	require.Equal(t, "custom", res.Report.Strategy)
	require.False(t, res.RefineUsed)
	for _, step := range res.Results {
		require.Equal(t, model.PhaseInitial, step.Phase)
	}
}

func TestRun_StaticWithoutPlanUsesRulePlan(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), Request{Input: sampleInput}, Deps{
		Settings: Settings{Planner: PlannerStatic},
	})
	require.NoError(t, err)
	require.Equal(t, plan.DefaultSteps(false), res.Report.InitialSteps)
	require.False(t, res.RefineUsed)
}

func TestRun_RedisTraces(t *testing.T) {
	t.Parallel()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)
	store, err := tracestore.NewRedisStore(&redis.Options{Addr: mr.Addr()}, tracestore.RedisOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	res, err := Run(context.Background(), Request{Input: sampleInput}, Deps{Redis: store})
	require.NoError(t, err)

	stored, err := store.Load(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, stored, len(res.Traces))
	require.Equal(t, res.Traces[0].Note, stored[0].Note)
}

func TestRun_LLMPlannerNeedsGenerator(t *testing.T) {
	t.Parallel()

	runs := openRuns(t)
	res, err := Run(context.Background(), Request{Input: sampleInput, UseLLMPlanner: true}, Deps{Runs: runs})
	var valErr *ilerrors.ValidationError
	require.True(t, errors.As(err, &valErr))
	require.Equal(t, "planner", valErr.Field)
	require.True(t, errors.Is(err, llm.ErrNoGenerator))

	run, getErr := runs.Get(context.Background(), res.RunID)
	require.NoError(t, getErr)
	require.Equal(t, runstore.StatusFailed, run.Status)
}

func TestRun_PlannerFailureMarksRunFailed(t *testing.T) {
	t.Parallel()

	runs := openRuns(t)
	gen := llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) {
		return "", errors.New("backend unavailable")
	})

	res, err := Run(context.Background(), Request{Input: sampleInput}, Deps{
		Generator: gen,
		Runs:      runs,
		Settings:  Settings{Planner: PlannerLLM},
	})
	var plannerErr *ilerrors.PlannerError
	require.True(t, errors.As(err, &plannerErr))
	require.NotNil(t, res)
	require.Empty(t, res.ParsedChunks)

	run, getErr := runs.Get(context.Background(), res.RunID)
	require.NoError(t, getErr)
	require.Equal(t, runstore.StatusFailed, run.Status)
	require.Contains(t, run.Error, "backend unavailable")
}

func TestRun_UnknownPlanner(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), Request{Input: sampleInput}, Deps{Settings: Settings{Planner: "oracle"}})
	var valErr *ilerrors.ValidationError
	require.True(t, errors.As(err, &valErr))
}

func TestRun_TraceDirMustBeWritable(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Run(context.Background(), Request{Input: sampleInput}, Deps{TraceDir: blocker})
	require.Error(t, err)
}
