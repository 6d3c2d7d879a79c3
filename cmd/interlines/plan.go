package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
	"github.com/Jalkey-Chen/InterLines/internal/stages"
)

type planOptions struct {
	PlanPath string
	History  bool
	Refine   []string
	JSON     bool
}

func newPlanCmd(root *rootFlags) *cobra.Command {
	opts := planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the execution order a run would follow",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.PlanPath != "" {
				if err := requireFile("plan", opts.PlanPath); err != nil {
					return err
				}
			}
			app, err := newAppContext(cmd, root)
			if err != nil {
				return err
			}
			return showPlan(cmd.OutOrStdout(), app, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.PlanPath, "plan", "p", "", "Static plan file to inspect instead of the rule plan")
	cmd.Flags().BoolVar(&opts.History, "history", false, "Include the historical timeline layer")
	cmd.Flags().StringSliceVar(&opts.Refine, "refine", nil, "Refine steps to preview, e.g. explainer_refine,editor")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the step graph as JSON")

	return cmd
}

func showPlan(out io.Writer, app *appContext, opts planOptions) error {
	p := plan.Default(opts.History || app.cfg.Pipeline.EnableHistory)
	if opts.PlanPath != "" {
		loaded, err := plan.LoadFile(opts.PlanPath)
		if err != nil {
			return err
		}
		p = loaded
	}

	reg, err := stages.NewRegistry()
	if err != nil {
		return err
	}
	if err := reg.Validate(p.Steps); err != nil {
		return err
	}
	graph, err := engine.BuildFromPlan(p)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(graph.Payload())
	}

	initial, err := engine.GeneratePlan(graph, model.PhaseInitial, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Strategy %s\n", p.Strategy)
	fmt.Fprint(out, initial.String())

	if len(opts.Refine) == 0 {
		return nil
	}
	allow := app.cfg.Pipeline.Allowed()
	if allow == nil {
		allow = plan.DefaultAllowList()
	}
	valid, rejected := plan.FilterRefineSteps(opts.Refine, allow)
	if len(rejected) > 0 {
		app.printer.Warning("Refine steps not allowed: %v", rejected)
	}
	if len(valid) == 0 {
		return nil
	}
	refineGraph, err := engine.BuildFromSteps(valid)
	if err != nil {
		return err
	}
	refine, err := engine.GeneratePlan(refineGraph, model.PhaseRefine, reg)
	if err != nil {
		return err
	}
	fmt.Fprint(out, refine.String())
	return nil
}
