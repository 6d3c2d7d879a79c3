package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jalkey-Chen/InterLines/internal/runstore"
)

func newRunsCmd(root *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, store, err := openRunRegistry(cmd, root)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			app.printer.Runs(runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	cmd.AddCommand(newRunsShowCmd(root))
	return cmd
}

func newRunsShowCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, store, err := openRunRegistry(cmd, root)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if errors.Is(err, runstore.ErrNotFound) {
				return app.printer.Error("Run not found", fmt.Sprintf("No run with id %s is recorded.", args[0]),
					[]string{"Run `interlines runs` to list recorded runs"})
			}
			if err != nil {
				return err
			}

			values := map[string]string{
				"id":         run.ID,
				"status":     string(run.Status),
				"input":      run.InputPreview,
				"created_at": run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				"updated_at": run.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			}
			if run.Strategy != "" {
				values["strategy"] = run.Strategy
				values["refine_used"] = fmt.Sprintf("%t", run.RefineUsed)
			}
			if run.BriefPath != "" {
				values["brief_path"] = run.BriefPath
			}
			if run.Error != "" {
				values["error"] = run.Error
			}
			app.printer.KeyValues(values)
			return nil
		},
	}
}

func openRunRegistry(cmd *cobra.Command, root *rootFlags) (*appContext, *runstore.Store, error) {
	app, err := newAppContext(cmd, root)
	if err != nil {
		return nil, nil, err
	}
	store, err := app.runStore()
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, app.printer.Error("No run store configured",
			"Run history is only kept when run_store.path is set.",
			[]string{"Set run_store.path in interlines.yaml", "Export INTERLINES_RUN_STORE_PATH"})
	}
	return app, store, nil
}
