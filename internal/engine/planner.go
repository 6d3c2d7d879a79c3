package engine

import (
	"fmt"
	"strings"
)

// ExecutionPlan is the ordered list of steps one phase will run.
type ExecutionPlan struct {
	Phase string
	Steps []PlannedStep
}

// PlannedStep is one entry of an ExecutionPlan.
type PlannedStep struct {
	Position int
	Name     string
	Handler  string
}

// GeneratePlan converts a graph into the ordered plan for phase. When reg is
// non-nil each step records the canonical handler it resolves to.
func GeneratePlan(graph *Graph, phase string, reg *Registry) (*ExecutionPlan, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}

	order, err := graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	steps := make([]PlannedStep, 0, len(order))
	for i, name := range order {
		handler := name
		if reg != nil {
			handler = reg.Resolve(name)
		}
		steps = append(steps, PlannedStep{Position: i + 1, Name: name, Handler: handler})
	}

	return &ExecutionPlan{Phase: phase, Steps: steps}, nil
}

// Names returns the step names in execution order.
func (p *ExecutionPlan) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		names[i] = step.Name
	}
	return names
}

// String renders a human readable summary of the plan.
func (p *ExecutionPlan) String() string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Phase %s (%d steps)\n", p.Phase, len(p.Steps))
	for _, step := range p.Steps {
		if step.Handler != "" && step.Handler != step.Name {
			fmt.Fprintf(&b, "  %d. %s -> %s\n", step.Position, step.Name, step.Handler)
			continue
		}
		fmt.Fprintf(&b, "  %d. %s\n", step.Position, step.Name)
	}
	return b.String()
}
