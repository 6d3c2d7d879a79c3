package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/pkg/result"
)

// ExplanationLevels lists the depths produced by Translate, shallowest first.
var ExplanationLevels = []string{model.LevelOneSentence, model.LevelThreeParagraph, model.LevelDeepDive}

const translateSystem = "You are a careful scholar explaining an academic or policy text " +
	"to an informed but non-expert reader. You care about clarity, faithfulness to the " +
	"source, and explicit citation of which paragraphs support which claims."

const translateInstructions = `Produce THREE layers of explanation:
1. "one_sentence": a single-sentence, high-level claim.
2. "three_paragraph": a ~3-paragraph explanation (still concise).
3. "deep_dive": a more detailed, structured explanation.

Return ONLY a JSON object with exactly these keys. Each level has:
"claim" (main claim), "rationale" (explanation at that depth), "claims" (shorter
sub-claims), "provenance_ids" (paragraph ids shown above), "confidence" (0-1).`

type explanationNode struct {
	Claim         string   `json:"claim"`
	Rationale     string   `json:"rationale"`
	Claims        []string `json:"claims"`
	ProvenanceIDs []string `json:"provenance_ids"`
	Confidence    *float64 `json:"confidence"`
}

// Translate produces one explanation card per level from the parsed chunks.
func Translate(ctx context.Context, bb *blackboard.Blackboard, svc engine.Services) result.Result[any] {
	chunks := blackboard.ParsedChunks(bb)
	if len(chunks) == 0 {
		return result.Errf[any]("translate: requires non-empty %s", blackboard.KeyParsedChunks)
	}

	var cards []model.ExplanationCard
	if svc.Generator != nil {
		var err error
		cards, err = explainWithGenerator(ctx, svc.Generator, chunks)
		if err != nil {
			return result.Err[any](fmt.Errorf("translate: %w", err))
		}
	} else {
		cards = explainFromChunks(chunks)
	}

	bb.Put(blackboard.KeyExplanations, cards)
	return result.Ok[any](cards)
}

func explainWithGenerator(ctx context.Context, gen llm.Generator, chunks []model.Chunk) ([]model.ExplanationCard, error) {
	var payload map[string]explanationNode
	req := llm.Request{
		Model:  "explainer",
		System: translateSystem,
		Prompt: "Here is the source text, split into numbered paragraphs:\n\n" +
			numberedParagraphs(chunks) + "\n" + translateInstructions,
	}
	if err := generateJSON(ctx, gen, req, &payload); err != nil {
		return nil, err
	}

	ids := chunkIDs(chunks)
	cards := make([]model.ExplanationCard, 0, len(ExplanationLevels))
	for _, level := range ExplanationLevels {
		node, ok := payload[level]
		if !ok {
			return nil, fmt.Errorf("reply is missing level %q", level)
		}
		cards = append(cards, buildCard(level, node, ids))
	}
	return cards, nil
}

func buildCard(level string, node explanationNode, ids map[string]struct{}) model.ExplanationCard {
	claim := strings.TrimSpace(node.Claim)
	claims := nonBlank(node.Claims)
	if len(claims) == 0 && claim != "" {
		claims = []string{claim}
	}

	provenance := knownSources(node.ProvenanceIDs, ids)
	if len(provenance) == 0 {
		for id := range ids {
			provenance = append(provenance, id)
		}
		sort.Strings(provenance)
	}
	source := ""
	if len(provenance) > 0 {
		source = "paragraphs: " + strings.Join(provenance, ", ")
	}

	evidence := make([]model.EvidenceItem, 0, len(claims))
	for _, c := range claims {
		evidence = append(evidence, model.EvidenceItem{Text: c, Source: source})
	}

	return model.ExplanationCard{
		Kind:       kindExplanation,
		Version:    artifactVersion,
		Confidence: confidenceOr(node.Confidence, 0.7),
		Level:      level,
		Claim:      claim,
		Rationale:  strings.TrimSpace(node.Rationale),
		Evidence:   evidence,
	}
}

// explainFromChunks builds extractive cards: the lead sentence is the claim
// and each level widens how many paragraphs back the rationale.
func explainFromChunks(chunks []model.Chunk) []model.ExplanationCard {
	claim := firstSentence(chunks[0])
	spans := map[string]int{
		model.LevelOneSentence:    1,
		model.LevelThreeParagraph: 3,
		model.LevelDeepDive:       len(chunks),
	}

	cards := make([]model.ExplanationCard, 0, len(ExplanationLevels))
	for _, level := range ExplanationLevels {
		n := min(spans[level], len(chunks))
		used := chunks[:n]

		paragraphs := make([]string, 0, n)
		evidence := make([]model.EvidenceItem, 0, n)
		for _, c := range used {
			paragraphs = append(paragraphs, c.Text)
			evidence = append(evidence, model.EvidenceItem{Text: firstSentence(c), Source: "paragraphs: " + c.ID})
		}

		card := model.ExplanationCard{
			Kind:       kindExplanation,
			Version:    artifactVersion,
			Confidence: 0.5,
			Level:      level,
			Claim:      claim,
			Rationale:  strings.Join(paragraphs, "\n\n"),
			Evidence:   evidence,
		}
		if level == model.LevelDeepDive {
			card.Summary = fmt.Sprintf("Covers %d paragraph(s) of the source.", len(chunks))
		}
		cards = append(cards, card)
	}
	return cards
}

func explanationFor(cards []model.ExplanationCard, level string) (model.ExplanationCard, bool) {
	for _, c := range cards {
		if c.Level == level {
			return c, true
		}
	}
	return model.ExplanationCard{}, false
}
