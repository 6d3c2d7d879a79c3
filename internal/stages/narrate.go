package stages

import (
	"context"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/pkg/result"
)

// Narrate runs the public-facing pair: relevance notes, then the glossary.
func Narrate(ctx context.Context, bb *blackboard.Blackboard, svc engine.Services) result.Result[any] {
	notes := Citizen(ctx, bb, svc)
	if notes.IsErr() {
		return notes
	}
	terms := Jargon(ctx, bb, svc)
	if terms.IsErr() {
		return terms
	}
	return result.Ok[any](map[string]any{
		blackboard.KeyRelevanceNotes: notes.Value(),
		blackboard.KeyTerms:          terms.Value(),
	})
}
