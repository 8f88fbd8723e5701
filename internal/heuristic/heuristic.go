// Package heuristic provides state evaluators for informed search.
package heuristic

import (
	"fmt"
	"math"
	"strings"

	"liftplan/internal/datalog"
	"liftplan/internal/state"
	"liftplan/internal/task"
)

// Value is a heuristic estimate. Infinity marks a dead end.
type Value int

// Infinity is the estimate of a state from which the goal is unreachable.
const Infinity Value = math.MaxInt32

// IsInfinite reports whether v marks a dead end.
func (v Value) IsInfinite() bool { return v >= Infinity }

func (v Value) String() string {
	if v.IsInfinite() {
		return "inf"
	}
	return fmt.Sprint(int(v))
}

// Heuristic estimates the distance from a state to the goal. Errors are
// faults of the evaluator and abort search.
type Heuristic interface {
	Evaluate(s *state.DBState) (Value, error)
}

// Func adapts a function to Heuristic.
type Func func(s *state.DBState) (Value, error)

func (f Func) Evaluate(s *state.DBState) (Value, error) { return f(s) }

// Kind selects a built-in heuristic.
type Kind int

const (
	Blind Kind = iota
	GoalCount
	// Additive, Max and FF explore the delete relaxation of the task
	// compiled to a weighted Datalog program.
	Additive
	Max
	FF
)

var kindNames = map[Kind]string{
	Blind:     "blind",
	GoalCount: "goal-count",
	Additive:  "hadd",
	Max:       "hmax",
	FF:        "hff",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a configuration name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown heuristic %q", name)
}

// New returns the heuristic of the given kind for tk.
func New(kind Kind, tk *task.Task) (Heuristic, error) {
	switch kind {
	case Blind:
		return blind{}, nil
	case GoalCount:
		return &goalCount{goal: tk.Goal}, nil
	case Additive:
		return newRelaxed(tk, datalog.AggregateSum, false)
	case Max:
		return newRelaxed(tk, datalog.AggregateMax, false)
	case FF:
		return newRelaxed(tk, datalog.AggregateSum, true)
	}
	return nil, fmt.Errorf("unknown heuristic %v", kind)
}

type blind struct{}

func (blind) Evaluate(*state.DBState) (Value, error) { return 0, nil }

// goalCount counts violated goal literals.
type goalCount struct {
	goal task.Goal
}

func (h *goalCount) Evaluate(s *state.DBState) (Value, error) {
	return Value(h.goal.Unsatisfied(s)), nil
}
