package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"liftplan/internal/logging"
	"liftplan/internal/search"
	"liftplan/internal/task"
)

var (
	recordRun bool
	planOut   string
)

// planCmd solves a single task
var planCmd = &cobra.Command{
	Use:   "plan <task.yaml>",
	Short: "Search for a plan for one task",
	Long: `Loads a task definition, searches it with the configured engine and
prints the plan, one action per line, followed by a summary.

Example:
  planner plan testdata/blocksworld.yaml --engine bfs
  planner plan testdata/gripper.yaml --generator mangle --record`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	tk, err := task.LoadFile(args[0])
	if err != nil {
		return err
	}
	logging.Task("loaded %s/%s: %d objects, %d schemas", tk.DomainName, tk.ProblemName, len(tk.Objects), len(tk.Schemas))

	res, err := solve(ctx, tk, cfg)
	if err != nil {
		if recordRun {
			_ = recordOne(ctx, errorRecord(args[0], tk, cfg, err))
		}
		return err
	}

	if succ, ok := res.Result.(search.Success); ok {
		fmt.Fprint(out, succ.Plan.String())
		if planOut != "" {
			if err := writePlan(planOut, succ.Plan.String()); err != nil {
				return err
			}
		}
	}
	fmt.Fprintln(out, renderSummary(res))

	if recordRun {
		rec := res.record()
		if err := recordOne(ctx, rec); err != nil {
			return err
		}
		fmt.Fprintf(out, "recorded run %s\n", rec.ID)
	}
	if !res.Result.Solved() {
		return fmt.Errorf("no plan found for %s/%s", tk.DomainName, tk.ProblemName)
	}
	return nil
}

func writePlan(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create plan directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}
