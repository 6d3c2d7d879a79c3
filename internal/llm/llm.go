// Package llm defines the text-generation collaborator used by planners and
// stages, and a Gemini-backed implementation of it.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrNoGenerator is returned when a component needs a generator but none was configured.
var ErrNoGenerator = errors.New("no text generator configured")

// Request is a single prompt to a text-generation backend.
type Request struct {
	// Model is an alias ("planner", "balanced") or a concrete model name.
	Model       string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int32
	// JSON asks the backend for an application/json response.
	JSON bool
}

// Generator produces text for a request. Implementations must honor ctx.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// WithTimeout bounds every Generate call of gen by d. A non-positive d or a
// nil gen returns gen unchanged.
func WithTimeout(gen Generator, d time.Duration) Generator {
	if gen == nil || d <= 0 {
		return gen
	}
	return GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return gen.Generate(ctx, req)
	})
}
