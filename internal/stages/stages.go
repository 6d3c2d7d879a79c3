// Package stages provides the default step handlers of the public-translation
// pipeline and registers them, with their refine aliases, on an engine registry.
package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/model"
)

// Step names of the default stages.
const (
	StepParse     = "parse"
	StepTranslate = "translate"
	StepCitizen   = "citizen"
	StepJargon    = "jargon"
	StepTimeline  = "timeline"
	StepNarrate   = "narrate"
	StepReview    = "review"
	StepBrief     = "brief"
)

// Artifact metadata stamped on everything the stages produce.
const (
	artifactVersion   = "1.0.0"
	kindExplanation   = "explanation.v1"
	kindRelevanceNote = "relevance_note.v1"
	kindTerm          = "term.v1"
	kindTimelineEvent = "timeline_event.v1"
	kindReviewReport  = "review_report.v1"
	kindPublicBrief   = "public_brief.v1"
)

type alias struct {
	name   string
	target string
}

// refineAliases maps the allow-listed refine step names onto the stage each re-runs.
var refineAliases = []alias{
	{name: "explainer_refine", target: StepTranslate},
	{name: "citizen_refine", target: StepCitizen},
	{name: "jargon_refine", target: StepJargon},
	{name: "history_refine", target: StepTimeline},
	{name: "editor", target: StepReview},
}

// Register adds every default stage and refine alias to reg.
func Register(reg *engine.Registry) error {
	handlers := []struct {
		name    string
		handler engine.Handler
	}{
		{StepParse, Parse},
		{StepTranslate, Translate},
		{StepCitizen, Citizen},
		{StepJargon, Jargon},
		{StepTimeline, Timeline},
		{StepNarrate, Narrate},
		{StepReview, Review},
		{StepBrief, Brief},
	}
	for _, h := range handlers {
		if err := reg.Register(h.name, h.handler); err != nil {
			return err
		}
	}
	for _, a := range refineAliases {
		if err := reg.Alias(a.name, a.target); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the default stages.
func NewRegistry() (*engine.Registry, error) {
	reg := engine.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// generateJSON asks the generator for a JSON reply and decodes it into out.
func generateJSON(ctx context.Context, gen llm.Generator, req llm.Request, out any) error {
	req.JSON = true
	raw, err := gen.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("%s generation: %w", req.Model, err)
	}
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), out); err != nil {
		return fmt.Errorf("%s reply is not valid JSON: %w", req.Model, err)
	}
	return nil
}

func numberedParagraphs(chunks []model.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", c.ID, text)
	}
	return b.String()
}

func chunkIDs(chunks []model.Chunk) map[string]struct{} {
	ids := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		ids[c.ID] = struct{}{}
	}
	return ids
}

// knownSources keeps the ids that name a parsed chunk, in order and without repeats.
func knownSources(sources []string, ids map[string]struct{}) []string {
	var out []string
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if _, ok := ids[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func confidenceOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return clamp01(*v)
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit])) + "…"
}
