package model

// Explanation levels produced by the translate stage.
const (
	LevelOneSentence    = "one_sentence"
	LevelThreeParagraph = "three_paragraph"
	LevelDeepDive       = "deep_dive"
)

// Chunk is one paragraph-like segment of the input document.
type Chunk struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Sentences []string `json:"sentences,omitempty"`
}

// EvidenceItem points at material supporting an explanation.
type EvidenceItem struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// ExplanationCard explains one claim at a given depth.
type ExplanationCard struct {
	Kind       string         `json:"kind"`
	Version    string         `json:"version"`
	Confidence float64        `json:"confidence"`
	Level      string         `json:"level"`
	Claim      string         `json:"claim"`
	Rationale  string         `json:"rationale"`
	Evidence   []EvidenceItem `json:"evidence,omitempty"`
	Summary    string         `json:"summary,omitempty"`
}

// RelevanceNote explains why a passage matters to a general reader.
type RelevanceNote struct {
	Kind       string  `json:"kind"`
	Version    string  `json:"version"`
	Confidence float64 `json:"confidence"`
	Target     string  `json:"target"`
	Rationale  string  `json:"rationale"`
	Score      float64 `json:"score"`
}

// TermCard is a glossary entry.
type TermCard struct {
	Kind       string   `json:"kind"`
	Version    string   `json:"version"`
	Confidence float64  `json:"confidence"`
	Term       string   `json:"term"`
	Definition string   `json:"definition"`
	Aliases    []string `json:"aliases,omitempty"`
	Examples   []string `json:"examples,omitempty"`
	Sources    []string `json:"sources,omitempty"`
}

// TimelineEvent is a dated event used for the history view.
type TimelineEvent struct {
	Kind        string   `json:"kind"`
	Version     string   `json:"version"`
	Confidence  float64  `json:"confidence"`
	When        string   `json:"when"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Sources     []string `json:"sources,omitempty"`
}

// BriefSection is a titled block of the public brief.
type BriefSection struct {
	ID      string   `json:"id"`
	Heading string   `json:"heading"`
	Body    string   `json:"body"`
	Bullets []string `json:"bullets,omitempty"`
}

// PublicBrief is the user-facing artifact assembled by the brief stage.
type PublicBrief struct {
	Kind     string         `json:"kind"`
	Version  string         `json:"version"`
	Title    string         `json:"title"`
	Summary  string         `json:"summary"`
	Sections []BriefSection `json:"sections"`
	Meta     map[string]any `json:"meta,omitempty"`
	Markdown string         `json:"markdown"`
}
