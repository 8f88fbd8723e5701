package heuristic

import (
	"fmt"

	"liftplan/internal/datalog"
	"liftplan/internal/state"
	"liftplan/internal/task"
)

// relaxed evaluates a state by the cost of deriving the goal rule of the
// delete-relaxed program. With plan set it counts the distinct actions
// on the achiever chains of the goal instead, which is the FF estimate.
type relaxed struct {
	goal task.Goal
	x    *datalog.RelaxedExplorer
	plan bool
}

func newRelaxed(tk *task.Task, agg datalog.Aggregate, plan bool) (*relaxed, error) {
	p, err := datalog.CompileRelaxed(tk)
	if err != nil {
		return nil, fmt.Errorf("failed to compile relaxed program: %w", err)
	}
	datalog.AddGoalRule(p)
	x, err := datalog.NewRelaxedExplorer(p, agg)
	if err != nil {
		return nil, err
	}
	return &relaxed{goal: tk.Goal, x: x, plan: plan}, nil
}

func (h *relaxed) Evaluate(s *state.DBState) (Value, error) {
	if h.goal.Satisfied(s) {
		return 0, nil
	}
	cost, ok := h.x.Explore(s)
	if !ok {
		return Infinity, nil
	}
	if h.plan {
		return Value(len(h.x.RelaxedPlan())), nil
	}
	return Value(cost), nil
}
