package stages

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/pkg/result"
)

var yearPattern = regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})\b`)

const historySystem = "You are a historian of ideas. You trace how a topic, policy or " +
	"concept evolved over time, citing the paragraphs you rely on."

const historyInstructions = `Return ONLY a JSON object of the form:
{"events": [{"when": "2010" or "2010-05-01",
             "title": "Short event title",
             "description": "1-3 sentences describing the event and why it matters.",
             "tags": ["optional", "keywords"],
             "sources": ["p1", "p3"],
             "confidence": 0.0}],
 "narrative": "One or two paragraphs summarising the evolution over time."}`

type historyReply struct {
	Events []struct {
		When        string   `json:"when"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		Sources     []string `json:"sources"`
		Confidence  *float64 `json:"confidence"`
	} `json:"events"`
	Narrative string `json:"narrative"`
}

// Timeline extracts dated events and an evolution narrative.
func Timeline(ctx context.Context, bb *blackboard.Blackboard, svc engine.Services) result.Result[any] {
	chunks := blackboard.ParsedChunks(bb)
	if len(chunks) == 0 {
		return result.Errf[any]("timeline: requires non-empty %s", blackboard.KeyParsedChunks)
	}

	var (
		events    []model.TimelineEvent
		narrative string
		err       error
	)
	if svc.Generator != nil {
		events, narrative, err = historyWithGenerator(ctx, svc.Generator, chunks)
		if err != nil {
			return result.Err[any](fmt.Errorf("timeline: %w", err))
		}
	} else {
		events, narrative = historyFromChunks(chunks)
	}

	bb.Put(blackboard.KeyTimelineEvents, events)
	bb.Put(blackboard.KeyEvolutionNarrative, narrative)
	return result.Ok[any](events)
}

func historyWithGenerator(ctx context.Context, gen llm.Generator, chunks []model.Chunk) ([]model.TimelineEvent, string, error) {
	var reply historyReply
	req := llm.Request{
		Model:  "history",
		System: historySystem,
		Prompt: "Source paragraphs:\n\n" + numberedParagraphs(chunks) + "\n" + historyInstructions,
	}
	if err := generateJSON(ctx, gen, req, &reply); err != nil {
		return nil, "", err
	}

	ids := chunkIDs(chunks)
	var events []model.TimelineEvent
	for _, e := range reply.Events {
		when := strings.TrimSpace(e.When)
		title := strings.TrimSpace(e.Title)
		if when == "" || title == "" {
			continue
		}
		events = append(events, model.TimelineEvent{
			Kind:        kindTimelineEvent,
			Version:     artifactVersion,
			Confidence:  confidenceOr(e.Confidence, 0.7),
			When:        when,
			Title:       title,
			Description: strings.TrimSpace(e.Description),
			Tags:        nonBlank(e.Tags),
			Sources:     knownSources(e.Sources, ids),
		})
	}
	if len(events) == 0 {
		return nil, "", fmt.Errorf("reply contained no usable timeline events")
	}
	sortEvents(events)
	return events, strings.TrimSpace(reply.Narrative), nil
}

// historyFromChunks turns every sentence naming a year into an event.
func historyFromChunks(chunks []model.Chunk) ([]model.TimelineEvent, string) {
	events := []model.TimelineEvent{}
	for _, c := range chunks {
		for _, sentence := range sentencesOf(c) {
			year := yearPattern.FindString(sentence)
			if year == "" {
				continue
			}
			events = append(events, model.TimelineEvent{
				Kind:        kindTimelineEvent,
				Version:     artifactVersion,
				Confidence:  0.4,
				When:        year,
				Title:       truncate(sentence, 80),
				Description: sentence,
				Sources:     []string{c.ID},
			})
		}
	}
	sortEvents(events)

	if len(events) == 0 {
		return events, "The source does not mention dated events."
	}
	first, last := events[0].When, events[len(events)-1].When
	if first == last {
		return events, fmt.Sprintf("The source describes %d event(s) in %s.", len(events), first)
	}
	return events, fmt.Sprintf("The source describes %d dated events between %s and %s.", len(events), first, last)
}

func sortEvents(events []model.TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].When < events[j].When })
}
