package stages

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/pkg/result"
)

const citizenSystem = "You explain why research and policy findings matter to ordinary " +
	"people. Be concrete, colloquial and honest about uncertainty."

const citizenInstructions = `Return ONLY a JSON object of the form:
{"notes": [{"target": "who or what this matters for",
            "rationale": "1-3 colloquial sentences explaining why it matters",
            "score": 0.0}]}
"score" is relevance in [0,1].`

type relevanceReply struct {
	Notes []struct {
		Target     string   `json:"target"`
		Rationale  string   `json:"rationale"`
		Score      float64  `json:"score"`
		Confidence *float64 `json:"confidence"`
	} `json:"notes"`
}

// Citizen writes relevance notes explaining why the explanations matter.
func Citizen(ctx context.Context, bb *blackboard.Blackboard, svc engine.Services) result.Result[any] {
	cards := blackboard.Explanations(bb)
	if len(cards) == 0 {
		return result.Errf[any]("citizen: requires non-empty %s", blackboard.KeyExplanations)
	}

	var notes []model.RelevanceNote
	if svc.Generator != nil {
		var err error
		notes, err = relevanceWithGenerator(ctx, svc.Generator, cards)
		if err != nil {
			return result.Err[any](fmt.Errorf("citizen: %w", err))
		}
	} else {
		notes = relevanceFromCards(cards)
	}

	bb.Put(blackboard.KeyRelevanceNotes, notes)
	return result.Ok[any](notes)
}

func relevanceWithGenerator(ctx context.Context, gen llm.Generator, cards []model.ExplanationCard) ([]model.RelevanceNote, error) {
	var b strings.Builder
	b.WriteString("Explanations of the source:\n\n")
	for _, c := range cards {
		fmt.Fprintf(&b, "[%s] %s\n%s\n\n", c.Level, c.Claim, c.Rationale)
	}
	b.WriteString(citizenInstructions)

	var reply relevanceReply
	if err := generateJSON(ctx, gen, llm.Request{Model: "citizen", System: citizenSystem, Prompt: b.String()}, &reply); err != nil {
		return nil, err
	}

	var notes []model.RelevanceNote
	for _, n := range reply.Notes {
		rationale := strings.TrimSpace(n.Rationale)
		if rationale == "" {
			continue
		}
		notes = append(notes, model.RelevanceNote{
			Kind:       kindRelevanceNote,
			Version:    artifactVersion,
			Confidence: confidenceOr(n.Confidence, 0.7),
			Target:     strings.TrimSpace(n.Target),
			Rationale:  rationale,
			Score:      clamp01(n.Score),
		})
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("reply contained no usable notes")
	}
	return notes, nil
}

// relevanceFromCards writes one note per distinct claim.
func relevanceFromCards(cards []model.ExplanationCard) []model.RelevanceNote {
	seen := make(map[string]struct{}, len(cards))
	var notes []model.RelevanceNote
	for _, c := range cards {
		claim := strings.TrimSpace(c.Claim)
		if claim == "" {
			continue
		}
		if _, dup := seen[claim]; dup {
			continue
		}
		seen[claim] = struct{}{}
		notes = append(notes, model.RelevanceNote{
			Kind:       kindRelevanceNote,
			Version:    artifactVersion,
			Confidence: 0.5,
			Target:     "general public",
			Rationale:  "This matters because " + lowerFirst(claim),
			Score:      0.5,
		})
	}
	return notes
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	// keep acronyms such as "EU" intact
	if next, _ := utf8.DecodeRuneInString(s[size:]); unicode.IsUpper(next) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
