package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"liftplan/internal/logging"
	"liftplan/internal/plan"
	"liftplan/internal/task"
	"liftplan/internal/validate"
)

// validateCmd replays a plan against a task
var validateCmd = &cobra.Command{
	Use:   "validate <task.yaml> <plan.txt>",
	Short: "Check a plan against a task",
	Long: `Replays the plan from the initial state. Every step must be applicable
according to the configured successor generator, and the goal must hold
at the end.

Example:
  planner validate testdata/gripper.yaml gripper.plan`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	tk, err := task.LoadFile(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read plan: %w", err)
	}
	p, err := plan.Parse(string(data))
	if err != nil {
		return err
	}

	gen, kind, err := buildGenerator(tk, cfg, false)
	if err != nil {
		return err
	}
	res := validate.Validate(p, gen, tk)
	logging.Validate("%s/%s with %s: %s", tk.DomainName, tk.ProblemName, kind, res)

	if !res.OK() {
		fmt.Fprintln(out, failStyle.Render(res.String()))
		return fmt.Errorf("plan rejected")
	}
	fmt.Fprintln(out, okStyle.Render(res.String()))
	return nil
}
