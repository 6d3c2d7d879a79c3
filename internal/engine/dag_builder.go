package engine

import (
	"errors"
	"fmt"

	"github.com/Jalkey-Chen/InterLines/internal/plan"
	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

// BuildFromPlan builds the linear chain graph for the plan's initial steps.
func BuildFromPlan(p plan.Plan) (*Graph, error) {
	return BuildFromSteps(p.Steps)
}

// BuildFromSteps builds a chain step[i] -> step[i+1]. A repeated step name is
// rejected rather than collapsed.
func BuildFromSteps(steps []string) (*Graph, error) {
	if len(steps) == 0 {
		return nil, ilerrors.NewValidationError("steps", "at least one step is required", nil)
	}

	graph := NewGraph()
	for i, step := range steps {
		if _, err := graph.AddNode(step); err != nil {
			message := err.Error()
			var inner *ilerrors.ValidationError
			if errors.As(err, &inner) {
				message = inner.Message
			}
			return nil, ilerrors.NewValidationError(fmt.Sprintf("steps[%d]", i), message, err)
		}
	}

	for i := 0; i+1 < len(steps); i++ {
		if err := graph.AddEdge(steps[i], steps[i+1]); err != nil {
			return nil, err
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	return graph, nil
}
