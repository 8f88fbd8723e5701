package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"liftplan/internal/logging"
	"liftplan/internal/store"
	"liftplan/internal/task"
)

// batchCmd solves several tasks in parallel
var batchCmd = &cobra.Command{
	Use:   "batch <task.yaml>...",
	Short: "Solve several tasks in parallel",
	Long: `Runs the configured planner on every task file, at most
limits.batch_workers at a time, and prints one line per task in
argument order. A task that fails to load or errors is reported in its
row and does not stop the others.

Example:
  planner batch testdata/*.yaml --record`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

// batchRow is the outcome of one task file.
type batchRow struct {
	path string
	rec  *store.RunRecord
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var runStore *store.RunStore
	if recordRun {
		var err error
		if runStore, err = openStore(cfg); err != nil {
			return err
		}
		defer runStore.Close()
	}

	rows := make([]batchRow, len(args))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Limits.BatchWorkers)
	for i, path := range args {
		eg.Go(func() error {
			rows[i] = batchRow{path: path, rec: solveFile(egCtx, path)}
			if runStore != nil {
				if err := runStore.Record(egCtx, rows[i].rec); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	header := []string{"TASK", "OUTCOME", "LENGTH", "EXPANDED", "MS", "DETAIL"}
	var table [][]string
	solved := 0
	for _, r := range rows {
		if r.rec.Solved() {
			solved++
		}
		table = append(table, []string{
			r.rec.Domain + "/" + r.rec.Problem,
			r.rec.Outcome,
			strconv.Itoa(r.rec.PlanLength),
			strconv.Itoa(r.rec.Expanded),
			strconv.FormatInt(r.rec.DurationMs, 10),
			r.rec.Reason,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderTable(header, table))
	fmt.Fprintf(out, "%d/%d solved\n", solved, len(rows))
	logging.Search("batch finished: %d/%d solved", solved, len(rows))
	return nil
}

// solveFile loads and solves one task, folding every failure into the
// record.
func solveFile(ctx context.Context, path string) *store.RunRecord {
	tk, err := task.LoadFile(path)
	if err != nil {
		return errorRecord(path, nil, cfg, err)
	}
	res, err := solve(ctx, tk, cfg)
	if err != nil {
		return errorRecord(path, tk, cfg, err)
	}
	return res.record()
}
