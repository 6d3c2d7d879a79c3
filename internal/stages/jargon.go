package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/pkg/result"
)

// maxFallbackTerms caps the extractive glossary.
const maxFallbackTerms = 8

var jargonCandidate = regexp.MustCompile(`\b(?:[A-Z][A-Z0-9]{1,5}s?|[A-Za-z][a-z]{11,})\b`)

const jargonSystem = "You are a science communicator building a plain-language glossary " +
	"for technical terms in a document."

const jargonInstructions = `Pick the technical terms a non-expert would stumble on.
Return ONLY a JSON object of the form:
{"terms": [{"term": "machine learning",
            "definition": "Short plain-language definition",
            "aliases": ["ML"],
            "examples": ["Short example sentence"],
            "confidence": 0.0,
            "sources": ["p1", "p3"]}]}
"sources" must be paragraph ids shown above.`

type termReply struct {
	Terms []struct {
		Term       string   `json:"term"`
		Definition string   `json:"definition"`
		Aliases    []string `json:"aliases"`
		Examples   []string `json:"examples"`
		Confidence *float64 `json:"confidence"`
		Sources    []string `json:"sources"`
	} `json:"terms"`
}

// Jargon builds the glossary from the parsed chunks.
func Jargon(ctx context.Context, bb *blackboard.Blackboard, svc engine.Services) result.Result[any] {
	chunks := blackboard.ParsedChunks(bb)
	if len(chunks) == 0 {
		return result.Errf[any]("jargon: requires non-empty %s", blackboard.KeyParsedChunks)
	}

	var terms []model.TermCard
	if svc.Generator != nil {
		var err error
		terms, err = termsWithGenerator(ctx, svc.Generator, chunks)
		if err != nil {
			return result.Err[any](fmt.Errorf("jargon: %w", err))
		}
	} else {
		terms = termsFromChunks(chunks)
	}

	bb.Put(blackboard.KeyTerms, terms)
	return result.Ok[any](terms)
}

func termsWithGenerator(ctx context.Context, gen llm.Generator, chunks []model.Chunk) ([]model.TermCard, error) {
	var reply termReply
	req := llm.Request{
		Model:  "jargon",
		System: jargonSystem,
		Prompt: "Source paragraphs:\n\n" + numberedParagraphs(chunks) + "\n" + jargonInstructions,
	}
	if err := generateJSON(ctx, gen, req, &reply); err != nil {
		return nil, err
	}

	ids := chunkIDs(chunks)
	var terms []model.TermCard
	for _, t := range reply.Terms {
		term := strings.TrimSpace(t.Term)
		definition := strings.TrimSpace(t.Definition)
		if term == "" || definition == "" {
			continue
		}
		terms = append(terms, model.TermCard{
			Kind:       kindTerm,
			Version:    artifactVersion,
			Confidence: confidenceOr(t.Confidence, 0.7),
			Term:       term,
			Definition: definition,
			Aliases:    nonBlank(t.Aliases),
			Examples:   nonBlank(t.Examples),
			Sources:    knownSources(t.Sources, ids),
		})
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("reply contained no usable terms")
	}
	return terms, nil
}

// termsFromChunks picks acronyms and very long words in order of first use.
func termsFromChunks(chunks []model.Chunk) []model.TermCard {
	type candidate struct {
		term    string
		example string
		sources []string
	}
	var order []string
	found := map[string]*candidate{}

	for _, c := range chunks {
		for _, sentence := range sentencesOf(c) {
			for _, word := range jargonCandidate.FindAllString(sentence, -1) {
				key := strings.ToLower(word)
				cand, ok := found[key]
				if !ok {
					if len(order) == maxFallbackTerms {
						continue
					}
					cand = &candidate{term: word, example: sentence}
					found[key] = cand
					order = append(order, key)
				}
				if n := len(cand.sources); n == 0 || cand.sources[n-1] != c.ID {
					cand.sources = append(cand.sources, c.ID)
				}
			}
		}
	}

	terms := make([]model.TermCard, 0, len(order))
	for _, key := range order {
		cand := found[key]
		terms = append(terms, model.TermCard{
			Kind:       kindTerm,
			Version:    artifactVersion,
			Confidence: 0.4,
			Term:       cand.term,
			Definition: fmt.Sprintf("Technical term used in the source (%s).", strings.Join(cand.sources, ", ")),
			Examples:   []string{cand.example},
			Sources:    cand.sources,
		})
	}
	return terms
}
