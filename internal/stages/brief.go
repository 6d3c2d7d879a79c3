package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/pkg/result"
)

const inputPreviewLimit = 280

const briefSystem = "You are the editor of a public-interest magazine. You turn research " +
	"artifacts into a clear, well-structured Markdown brief for general readers. " +
	"Use only facts present in the artifacts."

const briefInstructions = `Write the brief in Markdown with a title, a short summary,
a "Why it matters" section, a glossary and, when events are present, a timeline.
Return the Markdown only, without code fences.`

// Brief assembles the public brief and, when the run has an output
// directory, writes its Markdown to <dir>/<run id>.md.
func Brief(ctx context.Context, bb *blackboard.Blackboard, svc engine.Services) result.Result[any] {
	cards := blackboard.Explanations(bb)
	chunks := blackboard.ParsedChunks(bb)
	if len(cards) == 0 && len(chunks) == 0 {
		return result.Errf[any]("brief: no artifacts found on blackboard to compose")
	}

	brief := AssembleBrief(bb, svc.RunID)
	if svc.Generator != nil {
		md, err := composeWithGenerator(ctx, svc.Generator, bb)
		if err != nil {
			return result.Err[any](fmt.Errorf("brief: %w", err))
		}
		brief.Markdown = md
	}

	bb.Put(blackboard.KeyPublicBrief, brief)

	if svc.OutputDir != "" {
		path, err := writeBrief(svc.OutputDir, svc.RunID, brief.Markdown)
		if err != nil {
			return result.Err[any](fmt.Errorf("brief: %w", err))
		}
		bb.Put(blackboard.KeyBriefPath, path)
		svc.Logger.WithFields(map[string]any{"path": path}).Info("brief written")
	}
	return result.Ok[any](brief)
}

// AssembleBrief builds the brief from whatever artifacts are present.
func AssembleBrief(bb *blackboard.Blackboard, runID string) model.PublicBrief {
	cards := blackboard.Explanations(bb)
	chunks := blackboard.ParsedChunks(bb)

	brief := model.PublicBrief{
		Kind:    kindPublicBrief,
		Version: artifactVersion,
		Title:   "Public brief",
	}

	if lead, ok := explanationFor(cards, model.LevelOneSentence); ok {
		if lead.Claim != "" {
			brief.Title = lead.Claim
		}
		brief.Summary = lead.Rationale
	} else if len(chunks) > 0 {
		brief.Summary = firstSentence(chunks[0])
	}
	brief.Sections = append(brief.Sections, model.BriefSection{ID: "summary", Heading: "Summary", Body: brief.Summary})

	if deep, ok := explanationFor(cards, model.LevelDeepDive); ok {
		section := model.BriefSection{ID: "deep_dive", Heading: "Deep dive", Body: deep.Rationale}
		for _, ev := range deep.Evidence {
			section.Bullets = append(section.Bullets, ev.Text)
		}
		brief.Sections = append(brief.Sections, section)
	}

	if notes := blackboard.RelevanceNotes(bb); len(notes) > 0 {
		section := model.BriefSection{ID: "why_it_matters", Heading: "Why it matters"}
		for _, n := range notes {
			if n.Target != "" {
				section.Bullets = append(section.Bullets, fmt.Sprintf("%s: %s", n.Target, n.Rationale))
			} else {
				section.Bullets = append(section.Bullets, n.Rationale)
			}
		}
		brief.Sections = append(brief.Sections, section)
	}

	if terms := blackboard.Terms(bb); len(terms) > 0 {
		section := model.BriefSection{ID: "glossary", Heading: "Glossary"}
		for _, t := range terms {
			section.Bullets = append(section.Bullets, fmt.Sprintf("**%s**: %s", t.Term, t.Definition))
		}
		brief.Sections = append(brief.Sections, section)
	}

	if events := blackboard.TimelineEvents(bb); len(events) > 0 {
		narrative, _ := blackboard.Lookup[string](bb, blackboard.KeyEvolutionNarrative)
		section := model.BriefSection{ID: "timeline", Heading: "Timeline", Body: narrative}
		for _, e := range events {
			section.Bullets = append(section.Bullets, fmt.Sprintf("%s: %s", e.When, e.Title))
		}
		brief.Sections = append(brief.Sections, section)
	}

	enableHistory := false
	if p, ok := blackboard.InitialPlan(bb); ok {
		enableHistory = p.EnableHistory
	}
	brief.Meta = map[string]any{
		"source_kind":    "text",
		"num_chunks":     len(chunks),
		"num_cards":      len(cards),
		"enable_history": enableHistory,
		"input_preview":  truncate(strings.TrimSpace(blackboard.InputText(bb)), inputPreviewLimit),
	}
	if runID != "" {
		brief.Meta["run_id"] = runID
	}
	if report, present, err := blackboard.ReviewReport(bb); present && err == nil {
		brief.Meta["review_overall"] = report.Overall
	}

	brief.Markdown = RenderMarkdown(brief)
	return brief
}

// RenderMarkdown renders the brief sections as a Markdown document.
func RenderMarkdown(brief model.PublicBrief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", brief.Title)
	for _, s := range brief.Sections {
		if strings.TrimSpace(s.Body) == "" && len(s.Bullets) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n", s.Heading)
		if body := strings.TrimSpace(s.Body); body != "" {
			fmt.Fprintf(&b, "\n%s\n", body)
		}
		if len(s.Bullets) > 0 {
			b.WriteString("\n")
			for _, bullet := range s.Bullets {
				fmt.Fprintf(&b, "- %s\n", bullet)
			}
		}
	}
	return b.String()
}

func composeWithGenerator(ctx context.Context, gen llm.Generator, bb *blackboard.Blackboard) (string, error) {
	artifacts := map[string]any{
		"explanations":    blackboard.Explanations(bb),
		"timeline":        blackboard.TimelineEvents(bb),
		"glossary":        blackboard.Terms(bb),
		"relevance_notes": blackboard.RelevanceNotes(bb),
	}
	if report, present, err := blackboard.ReviewReport(bb); present && err == nil {
		artifacts["quality_report"] = report
	}
	payload, err := json.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		return "", err
	}

	md, err := gen.Generate(ctx, llm.Request{
		Model:       "brief_builder",
		System:      briefSystem,
		Prompt:      "Artifacts:\n\n" + string(payload) + "\n\n" + briefInstructions,
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("brief_builder generation: %w", err)
	}
	md = llm.StripFences(md)
	if md == "" {
		return "", fmt.Errorf("brief_builder returned an empty document")
	}
	return md, nil
}

func writeBrief(dir, runID, markdown string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := "brief.md"
	if runID != "" {
		name = runID + ".md"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write brief: %w", err)
	}
	return path, nil
}
