package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/pipeline"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
	"github.com/Jalkey-Chen/InterLines/internal/stages"
	"github.com/Jalkey-Chen/InterLines/internal/tui"
)

type runOptions struct {
	InputPath   string
	PlanPath    string
	Planner     string
	History     bool
	LLMPlanner  bool
	Interactive bool
	ShowBrief   bool
	OutputDir   string
	TraceDir    string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run the public-translation pipeline on a document",
		Long: "Run the public-translation pipeline on a document read from file, or from " +
			"standard input when file is omitted or \"-\".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.InputPath = args[0]
			}
			if err := validateRunOptions(opts); err != nil {
				return err
			}
			app, err := newAppContext(cmd, root)
			if err != nil {
				return err
			}
			return runPipeline(cmd, app, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.PlanPath, "plan", "p", "", "Static plan file to run instead of asking the planner")
	cmd.Flags().StringVar(&opts.Planner, "planner", "", "Planner to use: static, rules or llm (overrides settings)")
	cmd.Flags().BoolVar(&opts.History, "history", false, "Include the historical timeline layer")
	cmd.Flags().BoolVar(&opts.LLMPlanner, "llm-planner", false, "Plan with the LLM planner")
	cmd.Flags().BoolVar(&opts.Interactive, "tui", false, "Show live progress in an interactive view")
	cmd.Flags().BoolVar(&opts.ShowBrief, "show-brief", false, "Print the brief when the run finishes")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "Directory for the brief Markdown (overrides settings)")
	cmd.Flags().StringVar(&opts.TraceDir, "trace-dir", "", "Directory for trace snapshots (overrides settings)")

	return cmd
}

func runPipeline(cmd *cobra.Command, app *appContext, opts runOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	input, err := readInput(cmd.InOrStdin(), opts.InputPath)
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Input:         input,
		EnableHistory: opts.History || app.cfg.Pipeline.EnableHistory,
		UseLLMPlanner: opts.LLMPlanner,
	}
	if opts.PlanPath != "" {
		p, err := plan.LoadFile(opts.PlanPath)
		if err != nil {
			return err
		}
		req.Plan = &p
	}

	deps, cleanup, err := buildDeps(ctx, app, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	var res *pipeline.Result
	var runErr error
	if opts.Interactive && isTerminal(os.Stdout) {
		res, runErr = runInteractive(ctx, req, deps, previewPlan(req, deps.Settings.Planner))
	} else {
		deps.Observer = app.printer.StepObserver()
		res, runErr = pipeline.Run(ctx, req, deps)
	}

	if runErr != nil {
		explanation := runErr.Error()
		if res != nil {
			explanation = fmt.Sprintf("Run %s stopped: %v", res.RunID, runErr)
		}
		return app.printer.Error("Pipeline run failed", explanation, failureSuggestions(runErr))
	}

	app.printer.Report(res.RunID, res.Report)
	if res.BriefPath != "" {
		app.printer.Success("Brief written to %s", res.BriefPath)
	}
	if opts.ShowBrief {
		return printBrief(cmd.OutOrStdout(), res.Brief)
	}
	return nil
}

func buildDeps(ctx context.Context, app *appContext, opts runOptions) (pipeline.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	gen, err := app.generator(ctx)
	if err != nil {
		return pipeline.Deps{}, cleanup, err
	}

	runs, err := app.runStore()
	if err != nil {
		return pipeline.Deps{}, cleanup, err
	}
	if runs != nil {
		closers = append(closers, func() { _ = runs.Close() })
	}

	redisStore, err := app.redisStore(ctx)
	if err != nil {
		app.printer.Warning("Redis trace sink disabled: %v", err)
	}
	if redisStore != nil {
		closers = append(closers, func() { _ = redisStore.Close() })
	}

	pc := app.cfg.Pipeline
	settings := pipeline.Settings{
		OutputDir:       firstNonEmpty(opts.OutputDir, pc.OutputDir),
		StepTimeout:     pc.StepTimeout,
		FinalStep:       pc.FinalStep,
		QualityKey:      pc.QualityKey,
		AllowList:       pc.Allowed(),
		Planner:         firstNonEmpty(opts.Planner, pc.Planner),
		PlannerModel:    app.cfg.LLM.Model,
		ReplanThreshold: pc.ReplanThreshold,
	}

	return pipeline.Deps{
		Generator: gen,
		Logger:    app.log,
		Runs:      runs,
		TraceDir:  firstNonEmpty(opts.TraceDir, app.cfg.Trace.Dir),
		Redis:     redisStore,
		Settings:  settings,
	}, cleanup, nil
}

// runInteractive drives the live step view while the pipeline runs on this
// goroutine; the view exits when the user quits after completion.
func runInteractive(ctx context.Context, req pipeline.Request, deps pipeline.Deps, initial *engine.ExecutionPlan) (*pipeline.Result, error) {
	program := tea.NewProgram(tui.NewModel(previewTitle(req.Input), initial))
	done := make(chan error, 1)
	go func() {
		_, err := program.Run()
		done <- err
	}()

	deps.Observer = tui.Observer(program.Send)
	deps.Sinks = append(deps.Sinks, blackboard.SinkFunc(func(snap blackboard.TraceSnapshot) error {
		program.Send(tui.TraceMsg{Note: snap.Note})
		return nil
	}))

	res, err := pipeline.Run(ctx, req, deps)
	var report plan.Report
	if res != nil {
		report = res.Report
	}
	program.Send(tui.DoneMsg{Report: report, Err: err})

	if programErr := <-done; programErr != nil && err == nil {
		err = programErr
	}
	return res, err
}

// previewPlan returns the initial phase the run will most likely execute, for
// seeding the live view. LLM-planned runs start empty and fill in as steps start.
func previewPlan(req pipeline.Request, planner string) *engine.ExecutionPlan {
	var p plan.Plan
	switch {
	case req.Plan != nil:
		p = *req.Plan
	case req.UseLLMPlanner || planner == pipeline.PlannerLLM:
		return nil
	default:
		p = plan.Default(req.EnableHistory)
	}
	graph, err := engine.BuildFromPlan(p)
	if err != nil {
		return nil
	}
	reg, err := stages.NewRegistry()
	if err != nil {
		return nil
	}
	execPlan, err := engine.GeneratePlan(graph, model.PhaseInitial, reg)
	if err != nil {
		return nil
	}
	return execPlan
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("input is empty")
	}
	return text, nil
}

// printBrief renders the brief with glamour on a terminal and prints the raw
// Markdown otherwise.
func printBrief(out io.Writer, brief model.PublicBrief) error {
	md := brief.Markdown
	if md == "" {
		md = stages.RenderMarkdown(brief)
	}
	if f, ok := out.(*os.File); ok && isTerminal(f) {
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			if rendered, err := renderer.Render(md); err == nil {
				md = rendered
			}
		}
	}
	_, err := fmt.Fprintln(out, md)
	return err
}

func failureSuggestions(err error) []string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "llm planner"), strings.Contains(msg, "generator"):
		return []string{
			"Set llm.provider to gemini and provide GEMINI_API_KEY",
			"Run with --planner rules",
		}
	case strings.Contains(msg, "unknown step"):
		return []string{"Check the step names in your plan file against `interlines plan`"}
	}
	return nil
}

func previewTitle(input string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(input), "\n")
	runes := []rune(line)
	if len(runes) > 60 {
		return string(runes[:59]) + "…"
	}
	return line
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
