package stages

import (
	"math"
	"regexp"
	"strings"
)

var (
	wordPattern         = regexp.MustCompile(`[A-Za-z0-9']+`)
	sentenceTerminators = regexp.MustCompile(`[.!?]+`)
)

// Readability scores text in [0,1]; higher reads easier. It blends average
// sentence length (0.5), average word length (0.3) and sentence-length
// variation (0.2). Blank text scores 0.
func Readability(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	sentences := sentenceLengths(text)
	if len(sentences) == 0 {
		return 0
	}
	words := wordLengths(text)
	if len(words) == 0 {
		return 0
	}

	score := 0.5*sentenceLengthScore(mean(sentences)) +
		0.3*lexicalScore(mean(words)) +
		0.2*variationScore(sentences)
	return clamp01(score)
}

// AggregateReadability scores the non-blank segments joined with spaces.
func AggregateReadability(segments []string) float64 {
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg) != "" {
			kept = append(kept, seg)
		}
	}
	if len(kept) == 0 {
		return 0
	}
	return Readability(strings.Join(kept, " "))
}

func sentenceLengths(text string) []int {
	var lengths []int
	for _, part := range sentenceTerminators.Split(text, -1) {
		if n := len(wordPattern.FindAllString(part, -1)); n > 0 {
			lengths = append(lengths, n)
		}
	}
	return lengths
}

func wordLengths(text string) []int {
	tokens := wordPattern.FindAllString(text, -1)
	lengths := make([]int, len(tokens))
	for i, tok := range tokens {
		lengths[i] = len(tok)
	}
	return lengths
}

func sentenceLengthScore(avg float64) float64 {
	switch {
	case avg <= 8:
		return 1
	case avg >= 35:
		return 0
	case avg <= 18:
		return clamp01(1 - 0.2*(avg-8)/10)
	default:
		return clamp01(0.8 * (1 - (avg-18)/17))
	}
}

func lexicalScore(avg float64) float64 {
	switch {
	case avg <= 3:
		return 0.8
	case avg <= 5:
		return clamp01(0.8 + 0.2*(avg-3)/2)
	case avg >= 8:
		return 0
	default:
		return clamp01(1 - (avg-5)/3)
	}
}

// variationScore rewards moderate spread in sentence lengths, measured as the
// coefficient of variation.
func variationScore(lengths []int) float64 {
	switch len(lengths) {
	case 0:
		return 0
	case 1:
		return 0.7
	}

	m := mean(lengths)
	if m <= 0 {
		return 0
	}
	var variance float64
	for _, l := range lengths {
		d := float64(l) - m
		variance += d * d
	}
	variance /= float64(len(lengths))
	cv := math.Sqrt(variance) / m

	switch {
	case cv <= 0.1:
		return 0.4
	case cv >= 1.2:
		return 0.5
	case cv >= 0.3 && cv <= 0.8:
		return clamp01(0.7 + 0.2*(cv-0.3)/0.5)
	case cv < 0.3:
		return clamp01(0.4 + 0.3*(cv-0.1)/0.2)
	default:
		return clamp01(0.9 - 0.4*(cv-0.8)/0.4)
	}
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
