package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// unsetAfter removes keys that godotenv may have written into the process environment.
func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, key := range keys {
			_ = os.Unsetenv(key)
		}
	})
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.Equal(t, "dev", cfg.Environment)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "interlines", cfg.Redis.KeyPrefix)
	require.Equal(t, 168*time.Hour, cfg.Redis.TTL)
	require.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	require.Equal(t, "brief", cfg.Pipeline.FinalStep)
	require.Equal(t, "review_report", cfg.Pipeline.QualityKey)
	require.Equal(t, "rules", cfg.Pipeline.Planner)
	require.InDelta(t, 0.7, cfg.Pipeline.ReplanThreshold, 1e-9)
	require.Nil(t, cfg.Pipeline.Allowed())
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.LoggerOptions().HumanReadable)
}

func TestLoad_FilePrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "interlines.yaml", `
log:
  level: debug
  format: json
redis:
  enabled: true
  addr: redis.internal:6380
  ttl: 2h
pipeline:
  allow_list: [editor, explainer_refine]
  step_timeout: 30s
`)
	t.Setenv("INTERLINES_LOG_LEVEL", "warn")

	cfg, err := Load(Options{Dir: dir, SkipDotEnv: true})
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.False(t, cfg.LoggerOptions().HumanReadable)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	require.Equal(t, 2*time.Hour, cfg.Redis.TTL)
	require.Equal(t, 30*time.Second, cfg.Pipeline.StepTimeout)
	require.True(t, cfg.Pipeline.Allowed().Contains("editor"))
	require.False(t, cfg.Pipeline.Allowed().Contains("citizen_refine"))
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("INTERLINES_PIPELINE_ALLOW_LIST", "editor, citizen_refine")
	t.Setenv("INTERLINES_PIPELINE_STEP_TIMEOUT", "1m30s")
	t.Setenv("GEMINI_API_KEY", "from-gemini-var")

	cfg, err := Load(Options{Dir: t.TempDir(), SkipDotEnv: true})
	require.NoError(t, err)
	require.Equal(t, []string{"editor", "citizen_refine"}, cfg.Pipeline.AllowList)
	require.Equal(t, 90*time.Second, cfg.Pipeline.StepTimeout)
	require.Equal(t, "from-gemini-var", cfg.LLM.APIKey)
}

func TestLoad_DotEnvFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "INTERLINES_TRACE_DIR=from-dotenv\nINTERLINES_RUN_STORE_PATH=runs.db\n")
	writeFile(t, dir, ".env.local", "INTERLINES_TRACE_DIR=from-local\n")
	unsetAfter(t, "INTERLINES_TRACE_DIR", "INTERLINES_RUN_STORE_PATH")

	cfg, err := Load(Options{Dir: dir})
	require.NoError(t, err)
	require.Equal(t, "from-local", cfg.Trace.Dir)
	require.Equal(t, "runs.db", cfg.RunStore.Path)
}

func TestLoad_ExplicitFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(Options{File: filepath.Join(dir, "missing.yaml"), SkipDotEnv: true})
	var parseErr *ilerrors.ParseError
	require.True(t, errors.As(err, &parseErr))

	broken := writeFile(t, dir, "broken.yaml", "log: [unclosed\n")
	_, err = Load(Options{File: broken, SkipDotEnv: true})
	require.True(t, errors.As(err, &parseErr))
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"environment":               "environment: staging\n",
		"log.level":                 "log:\n  level: loud\n",
		"pipeline.planner":          "pipeline:\n  planner: magic\n",
		"redis.db":                  "redis:\n  db: 42\n",
		"pipeline.replan_threshold": "pipeline:\n  replan_threshold: 1.5\n",
		"pipeline.allow_list":       "pipeline:\n  allow_list: [Editor]\n",
	}
	for field, content := range cases {
		t.Run(field, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "interlines.yaml", content)
			_, err := Load(Options{File: path, SkipDotEnv: true})

			var valErr *ilerrors.ValidationError
			require.True(t, errors.As(err, &valErr), "got %v", err)
		})
	}
}

func TestValidate_CrossFieldRules(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = ""
	err := cfg.Validate()
	var valErr *ilerrors.ValidationError
	require.True(t, errors.As(err, &valErr))
	require.Equal(t, "redis.addr", valErr.Field)

	cfg = Default()
	cfg.Pipeline.Planner = "llm"
	err = cfg.Validate()
	require.True(t, errors.As(err, &valErr))
	require.Equal(t, "pipeline.planner", valErr.Field)

	cfg.LLM.Provider = "gemini"
	require.NoError(t, cfg.Validate())

	cfg.Pipeline.FinalStep = "-"
	require.NoError(t, cfg.Validate())
}

func TestLLMConfig_TimeoutOr(t *testing.T) {
	t.Parallel()

	require.Equal(t, time.Second, LLMConfig{}.TimeoutOr(time.Second))
	require.Equal(t, time.Minute, LLMConfig{Timeout: time.Minute}.TimeoutOr(time.Second))
}

func TestLoad_ShippedExample(t *testing.T) {
	cfg, err := Load(Options{File: filepath.Join("..", "..", "examples", "interlines.yaml"), SkipDotEnv: true})
	require.NoError(t, err)
	require.Equal(t, "artifacts/traces", cfg.Trace.Dir)
	require.Equal(t, "rules", cfg.Pipeline.Planner)
	require.Len(t, cfg.Pipeline.AllowList, 5)
}
