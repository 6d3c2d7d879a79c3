package llm

// ModelConfig pins an alias to a concrete model and its sampling defaults.
type ModelConfig struct {
	Name        string
	Temperature float32
	MaxTokens   int32
}

// DefaultModel is used for unknown aliases when no override is configured.
const DefaultModel = "gemini-2.5-flash"

// DefaultModels maps the aliases used by planners and stages to Gemini models.
func DefaultModels() map[string]ModelConfig {
	return map[string]ModelConfig{
		"fast":          {Name: "gemini-2.5-flash-lite", Temperature: 0.3, MaxTokens: 1024},
		"balanced":      {Name: "gemini-2.5-flash", Temperature: 0.4, MaxTokens: 2048},
		"research":      {Name: "gemini-2.5-pro", Temperature: 0.3, MaxTokens: 4096},
		"planner":       {Name: "gemini-2.5-flash", Temperature: 0.2, MaxTokens: 512},
		"parser":        {Name: "gemini-2.5-flash", Temperature: 0.1, MaxTokens: 4096},
		"explainer":     {Name: "gemini-2.5-pro", Temperature: 0.4, MaxTokens: 4096},
		"citizen":       {Name: "gemini-2.5-flash", Temperature: 0.5, MaxTokens: 2048},
		"jargon":        {Name: "gemini-2.5-flash", Temperature: 0.2, MaxTokens: 2048},
		"history":       {Name: "gemini-2.5-pro", Temperature: 0.3, MaxTokens: 2048},
		"brief_builder": {Name: "gemini-2.5-pro", Temperature: 0.7, MaxTokens: 2000},
	}
}

// Resolve returns the config for alias. A name that is not an alias is
// treated as a concrete model; an empty name falls back to fallback.
func Resolve(models map[string]ModelConfig, alias, fallback string) ModelConfig {
	if cfg, ok := models[alias]; ok {
		return cfg
	}
	if alias != "" {
		return ModelConfig{Name: alias}
	}
	if fallback == "" {
		fallback = DefaultModel
	}
	return ModelConfig{Name: fallback}
}
