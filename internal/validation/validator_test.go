package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

type sample struct {
	StepName string   `validate:"required,step_name"`
	Scores   []string `validate:"min=1"`
}

func TestStructAcceptsValidInput(t *testing.T) {
	t.Parallel()

	require.NoError(t, Struct("sample", sample{StepName: "history_refine", Scores: []string{"x"}}))
}

func TestStructReportsSnakeCaseField(t *testing.T) {
	t.Parallel()

	err := Struct("sample", sample{StepName: "Bad-Name", Scores: []string{"x"}})
	require.Error(t, err)

	var validationErr *ilerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "step_name", validationErr.Field)
	require.Contains(t, validationErr.Message, "step_name")
}

func TestConvertFallsBackToRoot(t *testing.T) {
	t.Parallel()

	err := Convert("settings", errors.New("plain failure"))

	var validationErr *ilerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "settings", validationErr.Field)
	require.Nil(t, Convert("settings", nil))
}

func TestStepNamePattern(t *testing.T) {
	t.Parallel()

	require.True(t, StepNamePattern("explainer_refine"))
	require.False(t, StepNamePattern("Explainer"))
	require.False(t, StepNamePattern(""))
}
