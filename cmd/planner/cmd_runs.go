package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"liftplan/internal/store"
)

var (
	runsDomain  string
	runsOutcome string
	runsLimit   int
)

// runsCmd lists recorded runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	Long: `Shows the runs recorded with --record from the run store at
store.database_path.

Example:
  planner runs --domain blocksworld --outcome solved -n 5`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.List(ctx, store.RunFilter{Domain: runsDomain, Outcome: runsOutcome, Limit: runsLimit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs found.")
		return nil
	}

	header := []string{"ID", "WHEN", "TASK", "ENGINE", "GENERATOR", "OUTCOME", "LENGTH", "EXPANDED"}
	var table [][]string
	for _, r := range runs {
		table = append(table, []string{
			r.ID[:min(8, len(r.ID))],
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Domain + "/" + r.Problem,
			r.Engine,
			r.Generator,
			r.Outcome,
			strconv.Itoa(r.PlanLength),
			strconv.Itoa(r.Expanded),
		})
	}
	fmt.Fprint(out, renderTable(header, table))
	return nil
}

// recordOne stores a single run record.
func recordOne(ctx context.Context, rec *store.RunRecord) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Record(ctx, rec)
}
