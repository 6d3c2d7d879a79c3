package errors

import (
	stdErrors "errors"
	"fmt"
)

var (
	// ErrCycleDetected marks a step graph whose topological sort could not visit every node.
	ErrCycleDetected = stdErrors.New("cycle detected")
	// ErrUnknownStep marks a step name with no registered handler.
	ErrUnknownStep = stdErrors.New("unknown step")
)

// ParseError represents a plan or config file that could not be decoded.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures structural problems in plans, graphs and settings.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a step handler failure during a pipeline phase.
type ExecutionError struct {
	Step  string
	Phase string
	Err   error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(step, phase string, err error) error {
	return &ExecutionError{Step: step, Phase: phase, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Step != "" && e.Phase != "":
		return fmt.Sprintf("execution error in %s phase on step %s: %v", e.Phase, e.Step, e.Err)
	case e.Step != "":
		return fmt.Sprintf("execution error on step %s: %v", e.Step, e.Err)
	default:
		return fmt.Sprintf("execution error: %v", e.Err)
	}
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HandlerError indicates issues with step handler registration or lookup.
type HandlerError struct {
	Step    string
	Message string
	Err     error
}

// NewHandlerError constructs a HandlerError for the given step name.
func NewHandlerError(step string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &HandlerError{Step: step, Message: message, Err: err}
}

func (e *HandlerError) Error() string {
	if e == nil {
		return ""
	}
	if e.Step != "" {
		return fmt.Sprintf("handler error [%s]: %s", e.Step, e.Message)
	}
	return fmt.Sprintf("handler error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *HandlerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PlannerError wraps a failure reported by a planning collaborator.
type PlannerError struct {
	Op  string
	Err error
}

// NewPlannerError constructs a PlannerError for the given operation ("plan" or "replan").
func NewPlannerError(op string, err error) error {
	return &PlannerError{Op: op, Err: err}
}

func (e *PlannerError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("planner error [%s]: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PlannerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
