package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDocument = `The General Data Protection Regulation (GDPR) was adopted by the European Union in 2016.

It gives individuals control over personal data and requires organisations to justify processing.

Regulators may impose fines of up to four percent of global annual turnover.`

type workspace struct {
	dir      string
	config   string
	traceDir string
	briefDir string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:      dir,
		config:   filepath.Join(dir, "interlines.yaml"),
		traceDir: filepath.Join(dir, "traces"),
		briefDir: filepath.Join(dir, "briefs"),
	}
	content := fmt.Sprintf(`log:
  level: error
trace:
  dir: %s
run_store:
  path: %s
pipeline:
  output_dir: %s
`, ws.traceDir, filepath.Join(dir, "runs.db"), ws.briefDir)
	require.NoError(t, os.WriteFile(ws.config, []byte(content), 0o644))
	return ws
}

func (ws workspace) input(t *testing.T) string {
	t.Helper()
	path := filepath.Join(ws.dir, "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o644))
	return path
}

func (ws workspace) runIDs(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(ws.traceDir)
	require.NoError(t, err)
	var ids []string
	for _, entry := range entries {
		ids = append(ids, entry.Name())
	}
	return ids
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRunCommand_FileInput(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := execute(t, "", "run", ws.input(t), "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "✓ [initial] parse")
	require.Contains(t, out, "no_history")
	require.Contains(t, out, "Brief written to "+ws.briefDir)

	ids := ws.runIDs(t)
	require.Len(t, ids, 1)
	require.FileExists(t, filepath.Join(ws.briefDir, ids[0]+".md"))

	out, _, err = execute(t, "", "runs", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, ids[0])
	require.Contains(t, out, "completed")

	out, _, err = execute(t, "", "runs", "show", ids[0], "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "no_history")
	require.Contains(t, out, "brief_path")
}

func TestRunCommand_StdinAndShowBrief(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := execute(t, sampleDocument, "run", "-", "--history", "--show-brief", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "with_history")
	require.Contains(t, out, "## Summary")
}

func TestRunCommand_StaticPlanFile(t *testing.T) {
	ws := newWorkspace(t)
	planPath := filepath.Join(ws.dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("strategy: quick\nsteps: [parse, translate, brief]\n"), 0o644))

	out, _, err := execute(t, "", "run", ws.input(t), "--plan", planPath, "--planner", "static", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "quick")
	require.Contains(t, out, "parse → translate → brief")
	require.NotContains(t, out, "[refine]")
}

func TestRunCommand_ValidatesOptions(t *testing.T) {
	ws := newWorkspace(t)

	_, _, err := execute(t, "", "run", filepath.Join(ws.dir, "missing.txt"), "--config", ws.config)
	require.ErrorContains(t, err, "input file does not exist")

	_, _, err = execute(t, "", "run", ws.input(t), "--planner", "oracle", "--config", ws.config)
	require.ErrorContains(t, err, "unknown planner")

	_, _, err = execute(t, "", "run", ws.input(t), "--planner", "rules", "--llm-planner", "--config", ws.config)
	require.ErrorContains(t, err, "conflicts")

	_, _, err = execute(t, "   ", "run", "--config", ws.config)
	require.ErrorContains(t, err, "input is empty")
}

func TestRunCommand_LLMPlannerWithoutProvider(t *testing.T) {
	ws := newWorkspace(t)

	_, errOut, err := execute(t, "", "run", ws.input(t), "--llm-planner", "--config", ws.config)
	require.EqualError(t, err, "Pipeline run failed")
	require.Contains(t, errOut, "GEMINI_API_KEY")

	out, _, err := execute(t, "", "runs", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "failed")
}

func TestPlanCommand(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := execute(t, "", "plan", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "Strategy no_history")
	require.Contains(t, out, "Phase initial (5 steps)")

	out, errOut, err := execute(t, "", "plan", "--history", "--refine", "explainer_refine,bogus", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "3. timeline")
	require.Contains(t, out, "Phase refine (1 steps)")
	require.Contains(t, out, "explainer_refine -> translate")
	require.Contains(t, errOut, "bogus")

	out, _, err = execute(t, "", "plan", "--json", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, `"order"`)
}

func TestTracesCommand(t *testing.T) {
	ws := newWorkspace(t)
	_, _, err := execute(t, "", "run", ws.input(t), "--config", ws.config)
	require.NoError(t, err)
	runID := ws.runIDs(t)[0]

	out, _, err := execute(t, "", "traces", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, runID)

	out, _, err = execute(t, "", "traces", runID, "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "planner: initial plan ready (no_history)")
	require.Contains(t, out, "pipeline: complete")

	out, _, err = execute(t, "", "traces", runID, "--show", "0", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "input_text")

	out, _, err = execute(t, "", "traces", runID, "--diff", "0:2", "--config", ws.config)
	require.NoError(t, err)
	require.Contains(t, out, "--- #0")
	require.Contains(t, out, "+++ #2")

	_, _, err = execute(t, "", "traces", runID, "--diff", "0-2", "--config", ws.config)
	require.ErrorContains(t, err, "want FROM:TO")

	_, _, err = execute(t, "", "traces", "no-such-run", "--config", ws.config)
	require.EqualError(t, err, "No traces for run no-such-run")
}

func TestCommandsNeedConfiguredStores(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "interlines.yaml")
	require.NoError(t, os.WriteFile(config, []byte("log:\n  level: error\n"), 0o644))

	_, _, err := execute(t, "", "runs", "--config", config)
	require.EqualError(t, err, "No run store configured")

	_, _, err = execute(t, "", "traces", "--config", config)
	require.EqualError(t, err, "No trace source")

	_, _, err = execute(t, "", "traces", "--redis", "--config", config)
	require.EqualError(t, err, "Redis is not enabled")
}

func TestParseDiffSpec(t *testing.T) {
	t.Parallel()

	from, to, err := parseDiffSpec(" 3 : 7 ")
	require.NoError(t, err)
	require.Equal(t, 3, from)
	require.Equal(t, 7, to)

	_, _, err = parseDiffSpec("a:1")
	require.Error(t, err)
}

func TestPreviewTitle(t *testing.T) {
	t.Parallel()

	require.Equal(t, "First line", previewTitle("\n First line\nsecond"))
	require.Equal(t, 60, len([]rune(previewTitle(strings.Repeat("x", 80)))))
}
