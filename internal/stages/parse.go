package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/pkg/result"
)

var (
	blankLines    = regexp.MustCompile(`\n\s*\n+`)
	sentenceBreak = regexp.MustCompile(`([.!?])\s+`)
)

// Parse splits the input text into paragraph chunks with ids p1, p2, ...
func Parse(_ context.Context, bb *blackboard.Blackboard, svc engine.Services) result.Result[any] {
	chunks := SplitChunks(blackboard.InputText(bb))
	if len(chunks) == 0 {
		return result.Errf[any]("parse: input text is empty")
	}
	bb.Put(blackboard.KeyParsedChunks, chunks)
	svc.Logger.WithFields(map[string]any{"chunks": len(chunks)}).Debug("parsed input")
	return result.Ok[any](chunks)
}

// SplitChunks breaks text into blank-line separated paragraphs.
func SplitChunks(text string) []model.Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []model.Chunk
	for _, para := range blankLines.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunks = append(chunks, model.Chunk{
			ID:        fmt.Sprintf("p%d", len(chunks)+1),
			Text:      para,
			Sentences: SplitSentences(para),
		})
	}
	return chunks
}

// SplitSentences cuts text after each run of terminal punctuation that is
// followed by whitespace.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, m := range sentenceBreak.FindAllStringSubmatchIndex(text, -1) {
		if s := strings.TrimSpace(text[start:m[3]]); s != "" {
			sentences = append(sentences, s)
		}
		start = m[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func sentencesOf(c model.Chunk) []string {
	if len(c.Sentences) > 0 {
		return c.Sentences
	}
	return SplitSentences(c.Text)
}

func firstSentence(c model.Chunk) string {
	if s := sentencesOf(c); len(s) > 0 {
		return s[0]
	}
	return strings.TrimSpace(c.Text)
}
