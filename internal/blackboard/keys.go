package blackboard

import (
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
)

// Well-known keys. Each is written by exactly one owner.
const (
	KeyInputText          = "input_text"
	KeyParsedChunks       = "parsed_chunks"
	KeyExplanations       = "explanations"
	KeyRelevanceNotes     = "relevance_notes"
	KeyTerms              = "terms"
	KeyTimelineEvents     = "timeline_events"
	KeyEvolutionNarrative = "evolution_narrative"
	KeyReviewReport       = "review_report"
	KeyPublicBrief        = "public_brief"
	KeyBriefPath          = "public_brief_md_path"
	KeyPlanInitial        = "planner_plan_spec.initial"
	KeyPlanReplan         = "planner_plan_spec.replan"
	KeyPlanReport         = "planner_report"
	KeyPlanDAG            = "planner_dag"
)

// Lookup returns the value under key when it holds a T.
func Lookup[T any](b *Blackboard, key string) (T, bool) {
	var zero T
	raw, ok := b.Get(key)
	if !ok {
		return zero, false
	}
	switch v := raw.(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	return zero, false
}

// InputText returns the raw document text.
func InputText(b *Blackboard) string {
	text, _ := Lookup[string](b, KeyInputText)
	return text
}

// ParsedChunks returns the parser output.
func ParsedChunks(b *Blackboard) []model.Chunk {
	chunks, _ := Lookup[[]model.Chunk](b, KeyParsedChunks)
	return chunks
}

// Explanations returns the explanation cards.
func Explanations(b *Blackboard) []model.ExplanationCard {
	cards, _ := Lookup[[]model.ExplanationCard](b, KeyExplanations)
	return cards
}

// RelevanceNotes returns the citizen notes.
func RelevanceNotes(b *Blackboard) []model.RelevanceNote {
	notes, _ := Lookup[[]model.RelevanceNote](b, KeyRelevanceNotes)
	return notes
}

// Terms returns the glossary cards.
func Terms(b *Blackboard) []model.TermCard {
	terms, _ := Lookup[[]model.TermCard](b, KeyTerms)
	return terms
}

// TimelineEvents returns the history events.
func TimelineEvents(b *Blackboard) []model.TimelineEvent {
	events, _ := Lookup[[]model.TimelineEvent](b, KeyTimelineEvents)
	return events
}

// ReviewReport returns the editor report. Values stored as generic maps are
// decoded and validated; an error means a report exists but is unusable.
func ReviewReport(b *Blackboard) (model.ReviewReport, bool, error) {
	return ReviewReportAt(b, KeyReviewReport)
}

// ReviewReportAt is ReviewReport for a report stored under key.
func ReviewReportAt(b *Blackboard, key string) (model.ReviewReport, bool, error) {
	raw, ok := b.Get(key)
	if !ok {
		return model.ReviewReport{}, false, nil
	}
	report, err := model.DecodeReviewReport(raw)
	if err != nil {
		return model.ReviewReport{}, true, err
	}
	return report, true, nil
}

// PublicBrief returns the assembled brief.
func PublicBrief(b *Blackboard) (model.PublicBrief, bool) {
	return Lookup[model.PublicBrief](b, KeyPublicBrief)
}

// BriefPath returns where the brief Markdown was written, if anywhere.
func BriefPath(b *Blackboard) string {
	path, _ := Lookup[string](b, KeyBriefPath)
	return path
}

// InitialPlan returns the plan recorded for the first pass.
func InitialPlan(b *Blackboard) (plan.Plan, bool) {
	return Lookup[plan.Plan](b, KeyPlanInitial)
}

// ReplanPlan returns the refinement decision, if one was recorded.
func ReplanPlan(b *Blackboard) (plan.Plan, bool) {
	return Lookup[plan.Plan](b, KeyPlanReplan)
}

// PlanReport returns the end-of-run plan report.
func PlanReport(b *Blackboard) (plan.Report, bool) {
	return Lookup[plan.Report](b, KeyPlanReport)
}
