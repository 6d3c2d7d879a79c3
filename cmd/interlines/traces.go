package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/tracestore"
	"github.com/Jalkey-Chen/InterLines/internal/tui"
)

type tracesOptions struct {
	Dir         string
	FromRedis   bool
	Interactive bool
	Show        int
	Diff        string
	Context     int
}

func newTracesCmd(root *rootFlags) *cobra.Command {
	opts := tracesOptions{Show: -1}

	cmd := &cobra.Command{
		Use:   "traces [run-id]",
		Short: "List, inspect and diff recorded trace snapshots",
		Long: "Without a run id, list the runs that have recorded traces. With a run id, " +
			"list its snapshots, show one, diff two, or browse them interactively.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(cmd, root)
			if err != nil {
				return err
			}
			if opts.Dir == "" {
				opts.Dir = app.cfg.Trace.Dir
			}
			if !opts.FromRedis && opts.Dir == "" {
				return app.printer.Error("No trace source",
					"Neither a trace directory nor Redis was selected.",
					[]string{"Pass --dir <path>", "Set trace.dir in interlines.yaml", "Pass --redis"})
			}

			source, err := openTraceSource(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			defer source.close()

			if len(args) == 0 {
				return listTraceRuns(cmd.Context(), app, source)
			}
			return showTraces(cmd, app, source, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "Trace directory (defaults to trace.dir)")
	cmd.Flags().BoolVar(&opts.FromRedis, "redis", false, "Read traces from Redis instead of disk")
	cmd.Flags().BoolVar(&opts.Interactive, "tui", false, "Browse snapshots interactively")
	cmd.Flags().IntVar(&opts.Show, "show", -1, "Print the snapshot with this sequence number")
	cmd.Flags().StringVar(&opts.Diff, "diff", "", "Diff two snapshots by sequence number, e.g. 3:7")
	cmd.Flags().IntVar(&opts.Context, "context", 3, "Unchanged lines kept around each change in --diff output")

	return cmd
}

// traceSource reads snapshots from either a directory tree or Redis.
type traceSource struct {
	dir   string
	redis *tracestore.RedisStore
}

func openTraceSource(ctx context.Context, app *appContext, opts tracesOptions) (*traceSource, error) {
	if !opts.FromRedis {
		return &traceSource{dir: opts.Dir}, nil
	}
	if !app.cfg.Redis.Enabled {
		return nil, app.printer.Error("Redis is not enabled",
			"Reading traces from Redis needs redis.enabled and redis.addr.",
			[]string{"Set INTERLINES_REDIS_ENABLED=true and INTERLINES_REDIS_ADDR"})
	}
	store, err := app.redisStore(ctx)
	if err != nil {
		return nil, err
	}
	return &traceSource{redis: store}, nil
}

func (s *traceSource) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func (s *traceSource) runs(ctx context.Context) ([]string, error) {
	if s.redis != nil {
		return s.redis.Runs(ctx)
	}
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *traceSource) load(ctx context.Context, runID string) ([]blackboard.TraceSnapshot, error) {
	if s.redis != nil {
		snaps, err := s.redis.Load(ctx, runID)
		if tracestore.IsNotFound(err) {
			return nil, nil
		}
		return snaps, err
	}
	return tracestore.ReadDir(filepath.Join(s.dir, runID))
}

func listTraceRuns(ctx context.Context, app *appContext, source *traceSource) error {
	ids, err := source.runs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		app.printer.Info("No traced runs found.")
		return nil
	}
	for _, id := range ids {
		app.printer.Info("%s", id)
	}
	return nil
}

func showTraces(cmd *cobra.Command, app *appContext, source *traceSource, runID string, opts tracesOptions) error {
	snaps, err := source.load(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return app.printer.Error("No traces for run "+runID, "", []string{"Run `interlines traces` to list traced runs"})
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.Interactive:
		_, err := tea.NewProgram(tui.NewInspector(runID, snaps), tea.WithAltScreen()).Run()
		return err
	case opts.Diff != "":
		return diffSnapshots(out, app, snaps, opts.Diff, opts.Context)
	case opts.Show >= 0:
		snap, ok := findSnapshot(snaps, opts.Show)
		if !ok {
			return fmt.Errorf("run %s has no snapshot #%d", runID, opts.Show)
		}
		fmt.Fprintln(out, tui.RenderSnapshot(snap))
		return nil
	}

	for _, snap := range snaps {
		fmt.Fprintf(out, "%4d  rev %-4d  %s  %s\n", snap.Seq, snap.Revision, snap.Timestamp, snap.Note)
	}
	return nil
}

func diffSnapshots(out io.Writer, app *appContext, snaps []blackboard.TraceSnapshot, spec string, contextLines int) error {
	from, to, err := parseDiffSpec(spec)
	if err != nil {
		return err
	}
	before, ok := findSnapshot(snaps, from)
	if !ok {
		return fmt.Errorf("no snapshot #%d", from)
	}
	after, ok := findSnapshot(snaps, to)
	if !ok {
		return fmt.Errorf("no snapshot #%d", to)
	}

	changes := tracestore.CompareKeys(before, after)
	if changes.Empty() {
		app.printer.Info("Snapshots #%d and #%d hold the same data.", from, to)
		return nil
	}
	app.printer.KeyValues(map[string]string{
		"added":   strings.Join(changes.Added, ", "),
		"removed": strings.Join(changes.Removed, ", "),
		"changed": strings.Join(changes.Changed, ", "),
	})

	text, err := tracestore.Diff(before, after, contextLines)
	if err != nil {
		return err
	}
	fmt.Fprint(out, text)
	return nil
}

func parseDiffSpec(spec string) (int, int, error) {
	left, right, ok := strings.Cut(spec, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid --diff %q: want FROM:TO", spec)
	}
	from, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --diff %q: %w", spec, err)
	}
	to, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --diff %q: %w", spec, err)
	}
	return from, to, nil
}

func findSnapshot(snaps []blackboard.TraceSnapshot, seq int) (blackboard.TraceSnapshot, bool) {
	for _, snap := range snaps {
		if snap.Seq == seq {
			return snap, true
		}
	}
	return blackboard.TraceSnapshot{}, false
}
