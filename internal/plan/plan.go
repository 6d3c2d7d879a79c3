// Package plan defines the serializable plan record exchanged between the
// planning collaborator and the executor, plus the end-of-run plan report.
package plan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/validation"
	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

// AllowedRefineSteps lists the step names a replan decision may request.
var AllowedRefineSteps = []string{
	"explainer_refine",
	"citizen_refine",
	"jargon_refine",
	"history_refine",
	"editor",
}

// AllowList is a set of permitted refine step names.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from names.
func NewAllowList(names ...string) AllowList {
	allow := make(AllowList, len(names))
	for _, name := range names {
		allow[name] = struct{}{}
	}
	return allow
}

// DefaultAllowList returns a fresh AllowList of AllowedRefineSteps.
func DefaultAllowList() AllowList {
	return NewAllowList(AllowedRefineSteps...)
}

// Contains reports whether name is permitted.
func (a AllowList) Contains(name string) bool {
	_, ok := a[name]
	return ok
}

// Names returns the permitted names in sorted order.
func (a AllowList) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRefineStep reports whether name is in the default allow-list.
func IsRefineStep(name string) bool {
	return slices.Contains(AllowedRefineSteps, name)
}

// FilterRefineSteps splits steps into those permitted by allow and those
// rejected, preserving the requested order.
func FilterRefineSteps(steps []string, allow AllowList) (valid, rejected []string) {
	for _, step := range steps {
		if allow.Contains(step) {
			valid = append(valid, step)
		} else {
			rejected = append(rejected, step)
		}
	}
	return valid, rejected
}

// Plan describes which steps to run, in order, and an optional refinement decision.
// A Plan is treated as a value: derived plans are built with WithReplan.
type Plan struct {
	Strategy      string   `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Steps         []string `json:"steps" yaml:"steps" validate:"min=1,dive,required"`
	EnableHistory bool     `json:"enable_history" yaml:"enable_history"`
	Notes         string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	ShouldReplan  bool     `json:"should_replan" yaml:"should_replan"`
	ReplanSteps   []string `json:"replan_steps,omitempty" yaml:"replan_steps,omitempty" validate:"omitempty,dive,required"`
	ReplanReason  string   `json:"replan_reason,omitempty" yaml:"replan_reason,omitempty"`
}

// Validate checks the plan against the default allow-list.
func (p Plan) Validate() error {
	return p.ValidateWith(DefaultAllowList())
}

// ValidateWith checks field constraints and that every replan step is in allow.
func (p Plan) ValidateWith(allow AllowList) error {
	if err := validation.Struct("plan", p); err != nil {
		return err
	}
	for i, step := range p.ReplanSteps {
		if !allow.Contains(step) {
			return ilerrors.NewValidationError(
				fmt.Sprintf("replan_steps[%d]", i),
				fmt.Sprintf("step %q is not an allowed refine step (allowed: %s)", step, strings.Join(allow.Names(), ", ")),
				nil,
			)
		}
	}
	return nil
}

// Decision is a planning collaborator's answer to a quality report.
type Decision struct {
	ShouldReplan bool
	Steps        []string
	Reason       string
}

// WithReplan returns a copy of p carrying decision. p is not modified.
func (p Plan) WithReplan(decision Decision) Plan {
	next := p.Clone()
	next.ShouldReplan = decision.ShouldReplan
	next.ReplanSteps = slices.Clone(decision.Steps)
	next.ReplanReason = decision.Reason
	return next
}

// Clone returns a deep copy of p.
func (p Plan) Clone() Plan {
	p.Steps = slices.Clone(p.Steps)
	p.ReplanSteps = slices.Clone(p.ReplanSteps)
	return p
}

// Context carries run metadata handed to the planning collaborator.
type Context struct {
	TaskType               string `json:"task_type"`
	DocumentKind           string `json:"document_kind,omitempty"`
	ApproxCharCount        int    `json:"approx_char_count"`
	Language               string `json:"language"`
	EnableHistoryRequested bool   `json:"enable_history_requested"`
}

// NewContext fills defaults for a public-translation run over input.
func NewContext(input string, enableHistory bool) Context {
	return Context{
		TaskType:               "public_translation",
		ApproxCharCount:        len(input),
		Language:               "en",
		EnableHistoryRequested: enableHistory,
	}
}
