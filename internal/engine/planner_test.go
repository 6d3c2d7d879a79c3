package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jalkey-Chen/InterLines/internal/model"
)

func TestGeneratePlan(t *testing.T) {
	t.Parallel()

	graph, err := BuildFromSteps([]string{"parse", "translate", "review"})
	require.NoError(t, err)

	execPlan, err := GeneratePlan(graph, model.PhaseInitial, nil)
	require.NoError(t, err)
	require.Equal(t, model.PhaseInitial, execPlan.Phase)
	require.Equal(t, []string{"parse", "translate", "review"}, execPlan.Names())
	require.Equal(t, 1, execPlan.Steps[0].Position)
	require.Equal(t, "translate", execPlan.Steps[1].Handler)
}

func TestGeneratePlan_ResolvesAliases(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register("review", okHandler("review")))
	require.NoError(t, reg.Alias("editor", "review"))

	graph, err := BuildFromSteps([]string{"editor"})
	require.NoError(t, err)

	execPlan, err := GeneratePlan(graph, model.PhaseRefine, reg)
	require.NoError(t, err)
	require.Equal(t, "review", execPlan.Steps[0].Handler)
	require.Equal(t, "Phase refine (1 steps)\n  1. editor -> review\n", execPlan.String())
}

func TestGeneratePlan_String(t *testing.T) {
	t.Parallel()

	graph, err := BuildFromSteps([]string{"a", "b"})
	require.NoError(t, err)

	execPlan, err := GeneratePlan(graph, model.PhaseInitial, nil)
	require.NoError(t, err)
	require.Equal(t, "Phase initial (2 steps)\n  1. a\n  2. b\n", execPlan.String())

	var nilPlan *ExecutionPlan
	require.Equal(t, "", nilPlan.String())
	require.Nil(t, nilPlan.Names())
}

func TestGeneratePlan_NilGraph(t *testing.T) {
	t.Parallel()

	_, err := GeneratePlan(nil, model.PhaseInitial, nil)
	require.Error(t, err)
}
