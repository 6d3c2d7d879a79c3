package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. INTERLINES_LOG_LEVEL.
const EnvPrefix = "INTERLINES"

// DefaultConfigName is searched for in the working directory when no file is given.
const DefaultConfigName = "interlines"

// Options controls where Load looks for settings.
type Options struct {
	// File is an explicit config file; a missing explicit file is an error.
	File string
	// Dir is searched for .env files and the default config file. Empty means ".".
	Dir string
	// SkipDotEnv disables .env loading.
	SkipDotEnv bool
}

var defaults = map[string]any{
	"environment":               "dev",
	"log.level":                 "info",
	"log.format":                "console",
	"trace.dir":                 "",
	"redis.enabled":             false,
	"redis.addr":                "localhost:6379",
	"redis.password":            "",
	"redis.db":                  0,
	"redis.key_prefix":          "interlines",
	"redis.ttl":                 "168h",
	"run_store.path":            "",
	"llm.provider":              "none",
	"llm.model":                 "gemini-2.5-flash",
	"llm.api_key":               "",
	"llm.timeout":               "60s",
	"pipeline.output_dir":       "artifacts/reports",
	"pipeline.step_timeout":     "0s",
	"pipeline.final_step":       "brief",
	"pipeline.quality_key":      "review_report",
	"pipeline.allow_list":       []string{},
	"pipeline.planner":          "rules",
	"pipeline.replan_threshold": 0.7,
	"pipeline.enable_history":   false,
}

// Default returns the built-in settings.
func Default() Config {
	cfg, err := decode(newViper(false))
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load resolves the settings described by opts and validates them.
func Load(opts Options) (Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	if !opts.SkipDotEnv {
		if err := loadDotEnv(dir); err != nil {
			return Config{}, err
		}
	}

	v := newViper(true)
	if err := readFile(v, opts.File, dir); err != nil {
		return Config{}, err
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, ilerrors.NewValidationError("config", err.Error(), err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper(withEnv bool) *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if !withEnv {
		return v
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	return v
}

func readFile(v *viper.Viper, file, dir string) error {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return ilerrors.NewParseError(file, 0, err)
		}
		return nil
	}

	v.SetConfigName(DefaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return ilerrors.NewParseError(filepath.Join(dir, DefaultConfigName+".yaml"), 0, err)
	}
	return nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Pipeline.AllowList = trimAll(cfg.Pipeline.AllowList)
	return cfg, nil
}

// loadDotEnv loads .env.local, .env.<environment> and .env from dir. Earlier
// files win, and variables already in the process environment are never replaced.
func loadDotEnv(dir string) error {
	env := os.Getenv(EnvPrefix + "_ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	for _, name := range []string{".env.local", ".env." + env, ".env"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return ilerrors.NewParseError(path, 0, err)
		}
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
