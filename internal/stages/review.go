package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/pkg/result"
)

// Fixed scores for dimensions the editor cannot measure yet.
const (
	baselineAccuracy = 0.7
	baselineSafety   = 0.9
	reviewConfidence = 0.7
)

// Review scores the artifacts on the blackboard and writes the review report.
// Clarity is the readability of all produced prose; completeness drops when
// explanations, relevance notes or terms are missing.
func Review(_ context.Context, bb *blackboard.Blackboard, svc engine.Services) result.Result[any] {
	var segments, comments []string

	hasExplanations := collectExplanations(bb, &segments, &comments)
	hasNotes := collectNotes(bb, &segments, &comments)
	hasTerms := collectTerms(bb, &segments, &comments)
	collectNarrative(bb, &segments, &comments)

	readability := AggregateReadability(segments)
	criteria := ScoreCriteria(readability, hasExplanations, hasNotes, hasTerms)
	comments = append(comments, fmt.Sprintf("[readability] Aggregate readability score: %.2f in [0,1].", readability))

	report := model.ReviewReport{
		Kind:       kindReviewReport,
		Version:    artifactVersion,
		Confidence: reviewConfidence,
		Overall:    criteria.Mean(),
		Criteria:   criteria,
		Comments:   comments,
		Actions:    []string{},
	}
	if err := report.Validate(); err != nil {
		return result.Err[any](fmt.Errorf("review: %w", err))
	}

	bb.Put(blackboard.KeyReviewReport, report)
	svc.Logger.WithFields(map[string]any{
		"overall": report.Overall,
		"clarity": criteria.Clarity,
	}).Debug("review scored")
	return result.Ok[any](report)
}

// ScoreCriteria maps readability and artifact coverage onto the four dimensions.
func ScoreCriteria(readability float64, hasExplanations, hasNotes, hasTerms bool) model.ReviewCriteria {
	completeness := 1.0
	if !hasExplanations {
		completeness -= 0.3
	}
	if !hasNotes {
		completeness -= 0.3
	}
	if !hasTerms {
		completeness -= 0.2
	}
	return model.ReviewCriteria{
		Accuracy:     baselineAccuracy,
		Clarity:      clamp01(readability),
		Completeness: clamp01(completeness),
		Safety:       baselineSafety,
	}
}

func collectExplanations(bb *blackboard.Blackboard, segments, comments *[]string) bool {
	if bb.Has(blackboard.KeyExplanations) {
		if _, ok := blackboard.Lookup[[]model.ExplanationCard](bb, blackboard.KeyExplanations); !ok {
			*comments = append(*comments, "[explanations] Unexpected value type.")
		}
	}
	cards := blackboard.Explanations(bb)
	for _, c := range cards {
		if strings.TrimSpace(c.Claim) != "" {
			*segments = append(*segments, c.Claim)
		}
		if strings.TrimSpace(c.Rationale) != "" {
			*segments = append(*segments, c.Rationale)
		} else {
			*comments = append(*comments, "[explanations] Missing rationale in an explanation card.")
		}
	}
	if len(cards) == 0 {
		*comments = append(*comments, "[explanations] No ExplanationCard objects found.")
	}
	return len(cards) > 0
}

func collectNotes(bb *blackboard.Blackboard, segments, comments *[]string) bool {
	notes := blackboard.RelevanceNotes(bb)
	for _, n := range notes {
		if strings.TrimSpace(n.Rationale) != "" {
			*segments = append(*segments, n.Rationale)
		} else {
			*comments = append(*comments, "[relevance_notes] Note has empty rationale.")
		}
	}
	if len(notes) == 0 {
		*comments = append(*comments, "[relevance_notes] No RelevanceNote objects found.")
	}
	return len(notes) > 0
}

func collectTerms(bb *blackboard.Blackboard, segments, comments *[]string) bool {
	terms := blackboard.Terms(bb)
	for _, t := range terms {
		if strings.TrimSpace(t.Definition) != "" {
			*segments = append(*segments, t.Definition)
		} else {
			*comments = append(*comments, "[terms] Term has empty definition.")
		}
		*segments = append(*segments, nonBlank(t.Examples)...)
	}
	if len(terms) == 0 {
		*comments = append(*comments, "[terms] No TermCard objects found.")
	}
	return len(terms) > 0
}

func collectNarrative(bb *blackboard.Blackboard, segments, comments *[]string) {
	raw, ok := bb.Get(blackboard.KeyEvolutionNarrative)
	if !ok || raw == nil {
		return
	}
	narrative, isString := raw.(string)
	if !isString {
		*comments = append(*comments, "[evolution_narrative] Unexpected type; expected text.")
		return
	}
	if strings.TrimSpace(narrative) != "" {
		*segments = append(*segments, narrative)
	}
}
