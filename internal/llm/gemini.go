package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Jalkey-Chen/InterLines/internal/logger"
)

// contentGenerator is the slice of *genai.Models the Gemini generator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configures NewGemini.
type GeminiOptions struct {
	APIKey string
	// DefaultModel replaces DefaultModel for requests without a model.
	DefaultModel string
	// Models overrides DefaultModels when non-nil.
	Models map[string]ModelConfig
	Logger *logger.Logger
}

// Gemini is a Generator backed by the Gemini API.
type Gemini struct {
	models       contentGenerator
	aliases      map[string]ModelConfig
	defaultModel string
	log          *logger.Logger
}

var _ Generator = (*Gemini)(nil)

// NewGemini creates a Gemini API client.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newGemini(client.Models, opts), nil
}

func newGemini(models contentGenerator, opts GeminiOptions) *Gemini {
	aliases := opts.Models
	if aliases == nil {
		aliases = DefaultModels()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Gemini{
		models:       models,
		aliases:      aliases,
		defaultModel: opts.DefaultModel,
		log:          log,
	}
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	cfg := Resolve(g.aliases, req.Model, g.defaultModel)

	config := &genai.GenerateContentConfig{}
	temperature := cfg.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if temperature > 0 {
		config.Temperature = genai.Ptr(temperature)
	}
	config.MaxOutputTokens = cfg.MaxTokens
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.models.GenerateContent(ctx, cfg.Name, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", cfg.Name, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini %s: empty response", cfg.Name)
	}
	g.log.WithFields(map[string]any{"model": cfg.Name, "alias": req.Model, "chars": len(text)}).Debug("generation complete")
	return text, nil
}
