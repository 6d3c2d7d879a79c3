// Package config loads InterLines settings from defaults, an optional YAML
// file, .env files and INTERLINES_* environment variables, in increasing order
// of precedence.
package config

import (
	"time"

	"github.com/Jalkey-Chen/InterLines/internal/logger"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
	"github.com/Jalkey-Chen/InterLines/internal/validation"
	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

// Config is the root settings document.
type Config struct {
	Environment string         `mapstructure:"environment" validate:"oneof=dev test prod"`
	Log         LogConfig      `mapstructure:"log"`
	Trace       TraceConfig    `mapstructure:"trace"`
	Redis       RedisConfig    `mapstructure:"redis"`
	RunStore    RunStoreConfig `mapstructure:"run_store"`
	LLM         LLMConfig      `mapstructure:"llm"`
	Pipeline    PipelineConfig `mapstructure:"pipeline"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// TraceConfig controls the file trace sink. An empty Dir disables it.
type TraceConfig struct {
	Dir string `mapstructure:"dir"`
}

// RedisConfig controls the Redis trace sink.
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db" validate:"min=0,max=15"`
	KeyPrefix string        `mapstructure:"key_prefix" validate:"required"`
	TTL       time.Duration `mapstructure:"ttl" validate:"min=0"`
}

// RunStoreConfig locates the SQLite run registry. An empty Path disables it.
type RunStoreConfig struct {
	Path string `mapstructure:"path"`
}

// LLMConfig selects the text generator.
type LLMConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=none gemini"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"min=0"`
}

// PipelineConfig tunes the executor.
type PipelineConfig struct {
	OutputDir       string        `mapstructure:"output_dir"`
	StepTimeout     time.Duration `mapstructure:"step_timeout" validate:"min=0"`
	FinalStep       string        `mapstructure:"final_step" validate:"omitempty,step_name|eq=-"`
	QualityKey      string        `mapstructure:"quality_key" validate:"required"`
	AllowList       []string      `mapstructure:"allow_list" validate:"omitempty,dive,step_name"`
	Planner         string        `mapstructure:"planner" validate:"oneof=static rules llm"`
	ReplanThreshold float64       `mapstructure:"replan_threshold" validate:"gt=0,lte=1"`
	EnableHistory   bool          `mapstructure:"enable_history"`
}

// Validate checks field constraints and returns a ValidationError on the first failure.
func (c Config) Validate() error {
	if err := validation.Struct("config", c); err != nil {
		return err
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return ilerrors.NewValidationError("redis.addr", "redis.addr is required when redis.enabled is set", nil)
	}
	if c.LLM.Provider == "none" && c.Pipeline.Planner == "llm" {
		return ilerrors.NewValidationError("pipeline.planner", "the llm planner needs llm.provider other than none", nil)
	}
	return nil
}

// TimeoutOr returns the LLM timeout, or fallback when unset.
func (l LLMConfig) TimeoutOr(fallback time.Duration) time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return fallback
}

// IsProduction reports whether the environment is prod.
func (c Config) IsProduction() bool {
	return c.Environment == "prod"
}

// LoggerOptions converts the log settings for logger.New.
func (c Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:         c.Log.Level,
		HumanReadable: c.Log.Format == "console",
	}
}

// Allowed returns the configured refine allow-list, or nil for the default.
func (p PipelineConfig) Allowed() plan.AllowList {
	if len(p.AllowList) == 0 {
		return nil
	}
	return plan.NewAllowList(p.AllowList...)
}
